package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/diffgrader/diffgrader/internal/fileproc"
	"github.com/diffgrader/diffgrader/internal/output"
	"github.com/diffgrader/diffgrader/pkg/analyzer/comparison"
	"github.com/diffgrader/diffgrader/pkg/config"
	"github.com/diffgrader/diffgrader/pkg/feedback"
	"github.com/diffgrader/diffgrader/pkg/models"
	"github.com/diffgrader/diffgrader/pkg/scanner"
)

func compareCmd() *cli.Command {
	return &cli.Command{
		Name:      "compare",
		Aliases:   []string{"cmp"},
		Usage:     "Grade one student submission against a reference implementation",
		ArgsUsage: "<student-path> <reference-path>",
		Flags: []cli.Flag{
			&cli.Float64Flag{
				Name:  "threshold",
				Usage: "Minimum similarity for an approximate match (overrides config)",
			},
			&cli.Float64Flag{
				Name:  "exact-threshold",
				Usage: "Similarity at which a match counts as exact (overrides config)",
			},
			&cli.BoolFlag{
				Name:    "suggestions",
				Aliases: []string{"s"},
				Usage:   "Include generated grading suggestions per element",
			},
		},
		Action: runCompareCmd,
	}
}

func runCompareCmd(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("expected <student-path> <reference-path>, got %d arguments", c.Args().Len())
	}
	studentPath := c.Args().Get(0)
	referencePath := c.Args().Get(1)

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("threshold") {
		cfg.Analysis.SimilarityThreshold = c.Float64("threshold")
	}
	if c.IsSet("exact-threshold") {
		cfg.Analysis.ExactThreshold = c.Float64("exact-threshold")
	}

	scan := scanner.NewScanner(cfg)

	studentFiles, err := collectJavaFiles(scan, studentPath)
	if err != nil {
		return err
	}
	referenceFiles, err := collectJavaFiles(scan, referencePath)
	if err != nil {
		return err
	}
	if len(studentFiles) == 0 && len(referenceFiles) == 0 {
		warnNoFiles()
		return nil
	}

	workers := fileproc.Workers(cfg.Analysis.Workers)
	student, err := extractElements(c.Context, "Parsing student sources...", studentFiles, workers)
	if err != nil {
		return err
	}
	reference, err := extractElements(c.Context, "Parsing reference sources...", referenceFiles, workers)
	if err != nil {
		return err
	}

	analyzer, err := newComparisonAnalyzer(cfg)
	if err != nil {
		return err
	}
	summary, err := analyzer.Compare(c.Context, student, reference)
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}

	formatter, err := newFormatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()

	report := comparisonReport(summary, formatter.Colored())
	if c.Bool("suggestions") {
		if sec := suggestionsSection(summary); sec != nil {
			report.Sections = append(report.Sections, sec)
		}
	}
	return formatter.Output(report)
}

// newComparisonAnalyzer builds a comparison analyzer from config.
func newComparisonAnalyzer(cfg *config.Config) (*comparison.Analyzer, error) {
	return comparison.New(
		comparison.WithThreshold(cfg.Analysis.SimilarityThreshold),
		comparison.WithExactThreshold(cfg.Analysis.ExactThreshold),
		comparison.WithWeights(cfg.Weights()),
	)
}

// comparisonReport renders a comparison summary as a multi-section report.
func comparisonReport(summary *comparison.Summary, colored bool) *output.Report {
	report := &output.Report{
		Title: "Comparison Report",
		Data:  summary,
	}

	report.Sections = append(report.Sections, &output.Section{
		Title: "Overview",
		Content: fmt.Sprintf(
			"Overall similarity: %s\nStudent elements: %d\nReference elements: %d\nMatched: %d\nMissing: %d\nExtra: %d",
			percent(summary.OverallSimilarity),
			summary.TotalStudent,
			summary.TotalReference,
			summary.MatchedCount,
			len(summary.UnmatchedReference),
			len(summary.UnmatchedStudent),
		),
	})

	if len(summary.Matches) > 0 {
		var rows [][]string
		for _, m := range summary.Matches {
			st := summary.StudentElement(m)
			ref := summary.ReferenceElement(m)
			matchType := st.MatchType.String()
			if colored {
				matchType = output.MatchColor(matchType, matchType)
			}
			rows = append(rows, []string{
				st.Name,
				ref.Name,
				st.Kind.String(),
				matchType,
				percent(m.Similarity),
			})
		}
		report.Sections = append(report.Sections, output.NewTable(
			"Matched Elements",
			[]string{"Student", "Reference", "Kind", "Match", "Similarity"},
			rows,
			nil,
			summary.Matches,
		))
	}

	if missing := summary.MissingElements(); len(missing) > 0 {
		var rows [][]string
		for _, el := range missing {
			rows = append(rows, []string{el.Name, el.Kind.String(), truncate(el.Signature, 60)})
		}
		report.Sections = append(report.Sections, output.NewTable(
			"Missing Elements",
			[]string{"Name", "Kind", "Signature"},
			rows,
			nil,
			missing,
		))
	}

	if extra := summary.ExtraElements(); len(extra) > 0 {
		var rows [][]string
		for _, el := range extra {
			rows = append(rows, []string{el.Name, el.Kind.String(), truncate(el.Signature, 60)})
		}
		report.Sections = append(report.Sections, output.NewTable(
			"Extra Elements",
			[]string{"Name", "Kind", "Signature"},
			rows,
			nil,
			extra,
		))
	}

	return report
}

// suggestionsSection builds a grading-suggestion table covering every
// student element plus the missing reference elements.
func suggestionsSection(summary *comparison.Summary) output.Renderable {
	elements := make([]models.CodeElement, 0, len(summary.Student)+len(summary.UnmatchedReference))
	elements = append(elements, summary.Student...)
	elements = append(elements, summary.MissingElements()...)
	if len(elements) == 0 {
		return nil
	}

	var rows [][]string
	suggestions := make([]*feedback.Suggestion, 0, len(elements))
	for i := range elements {
		sg := feedback.Suggest(&elements[i])
		suggestions = append(suggestions, sg)
		rows = append(rows, []string{
			elements[i].Name,
			elements[i].Kind.String(),
			elements[i].MatchType.String(),
			fmt.Sprintf("%d", sg.Score),
			truncate(sg.Comments, 70),
		})
	}
	return output.NewTable(
		"Grading Suggestions",
		[]string{"Name", "Kind", "Match", "Score", "Comments"},
		rows,
		nil,
		suggestions,
	)
}
