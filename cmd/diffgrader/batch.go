package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/diffgrader/diffgrader/internal/fileproc"
	"github.com/diffgrader/diffgrader/internal/output"
	"github.com/diffgrader/diffgrader/internal/progress"
	"github.com/diffgrader/diffgrader/pkg/analyzer/batch"
	"github.com/diffgrader/diffgrader/pkg/analyzer/comparison"
	"github.com/diffgrader/diffgrader/pkg/config"
	"github.com/diffgrader/diffgrader/pkg/scanner"
)

func batchCmd() *cli.Command {
	return &cli.Command{
		Name:      "batch",
		Aliases:   []string{"b"},
		Usage:     "Grade a directory of submissions against a reference implementation",
		ArgsUsage: "<submissions-dir> <reference-path>",
		Description: `Each immediate subdirectory of <submissions-dir> is graded as one
submission. Results are sorted by overall similarity, highest first.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of submissions graded concurrently (0 = NumCPU)",
			},
			&cli.BoolFlag{
				Name:  "summaries",
				Usage: "Include full per-submission summaries in structured output",
			},
		},
		Action: runBatchCmd,
	}
}

func runBatchCmd(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("expected <submissions-dir> <reference-path>, got %d arguments", c.Args().Len())
	}
	submissionsDir := c.Args().Get(0)
	referencePath := c.Args().Get(1)

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	scan := scanner.NewScanner(cfg)
	workers := fileproc.Workers(cfg.Analysis.Workers)

	referenceFiles, err := collectJavaFiles(scan, referencePath)
	if err != nil {
		return err
	}
	if len(referenceFiles) == 0 {
		return fmt.Errorf("no Java sources found in reference %s", referencePath)
	}
	reference, err := extractElements(c.Context, "Parsing reference sources...", referenceFiles, workers)
	if err != nil {
		return err
	}

	submissions, err := loadSubmissions(c, scan, submissionsDir, workers)
	if err != nil {
		return err
	}
	if len(submissions) == 0 {
		return fmt.Errorf("no submissions found in %s", submissionsDir)
	}

	tracker := progress.NewTracker("Grading submissions...", len(submissions))
	analyzer := batch.New(
		batch.WithComparisonOptions(comparisonOptions(cfg)...),
		batch.WithWorkers(c.Int("workers")),
		batch.WithProgress(tracker.Tick),
		batchSummariesOption(c.Bool("summaries")),
	)
	analysis, err := analyzer.Grade(c.Context, reference, submissions)
	if err != nil {
		tracker.FinishError(err)
		return err
	}
	tracker.FinishSuccess()

	formatter, err := newFormatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(batchTable(analysis))
}

// loadSubmissions extracts the elements of every subdirectory of root, in
// name order.
func loadSubmissions(c *cli.Context, scan *scanner.Scanner, root string, workers int) ([]batch.Submission, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read submissions dir %s: %w", root, err)
	}

	var submissions []batch.Submission
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		files, err := collectJavaFiles(scan, dir)
		if err != nil {
			return nil, err
		}
		label := fmt.Sprintf("Parsing %s...", entry.Name())
		elements, err := extractElements(c.Context, label, files, workers)
		if err != nil {
			return nil, fmt.Errorf("submission %s: %w", entry.Name(), err)
		}
		submissions = append(submissions, batch.Submission{
			Name:     entry.Name(),
			Elements: elements,
		})
	}
	return submissions, nil
}

// comparisonOptions translates analysis config into comparison options.
func comparisonOptions(cfg *config.Config) []comparison.Option {
	return []comparison.Option{
		comparison.WithThreshold(cfg.Analysis.SimilarityThreshold),
		comparison.WithExactThreshold(cfg.Analysis.ExactThreshold),
		comparison.WithWeights(cfg.Weights()),
	}
}

func batchSummariesOption(include bool) batch.Option {
	if include {
		return batch.WithSummaries()
	}
	return func(*batch.Analyzer) {}
}

// batchTable renders batch results ranked by score with cohort statistics.
func batchTable(analysis *batch.Analysis) *output.Table {
	ranked := append([]batch.Result(nil), analysis.Results...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].OverallSimilarity > ranked[j].OverallSimilarity
	})

	var rows [][]string
	for i, r := range ranked {
		if r.Error != "" {
			rows = append(rows, []string{
				fmt.Sprintf("%d", i+1), r.Name, "-", "-", "failed: " + truncate(r.Error, 50),
			})
			continue
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			r.Name,
			percent(r.OverallSimilarity),
			fmt.Sprintf("%d/%d", r.MatchedCount, r.TotalElements),
			"",
		})
	}

	return output.NewTable(
		"Batch Grading Results",
		[]string{"Rank", "Submission", "Score", "Matched", "Notes"},
		rows,
		[]string{
			fmt.Sprintf("Graded: %d", analysis.Graded),
			fmt.Sprintf("Failed: %d", analysis.Failed),
			fmt.Sprintf("Mean: %s", percent(analysis.Stats.Mean)),
			fmt.Sprintf("Median: %s", percent(analysis.Stats.Median)),
			fmt.Sprintf("StdDev: %.2f", analysis.Stats.StdDev),
		},
		analysis,
	)
}
