package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/diffgrader/diffgrader/internal/fileproc"
	"github.com/diffgrader/diffgrader/internal/output"
	"github.com/diffgrader/diffgrader/internal/progress"
	"github.com/diffgrader/diffgrader/pkg/scanner"
)

func parseCmd() *cli.Command {
	return &cli.Command{
		Name:      "parse",
		Aliases:   []string{"p"},
		Usage:     "Extract the structural elements of Java sources",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "show-source",
				Usage: "Include element source code in structured output",
			},
		},
		Action: runParseCmd,
	}
}

func runParseCmd(c *cli.Context) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		paths = []string{"."}
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	scan := scanner.NewScanner(cfg)

	var files []string
	for _, path := range paths {
		found, err := collectJavaFiles(scan, path)
		if err != nil {
			return err
		}
		files = append(files, found...)
	}

	if len(files) == 0 {
		warnNoFiles()
		return nil
	}

	tracker := progress.NewTracker("Parsing Java sources...", len(files))
	structures, errs := fileproc.ExtractAll(c.Context, files, cfg.Analysis.Workers, tracker.Tick)
	if errs != nil {
		tracker.FinishError(errs)
		return errs
	}
	tracker.FinishSuccess()

	if !c.Bool("show-source") {
		for _, fs := range structures {
			for i := range fs.Elements {
				fs.Elements[i].SourceCode = ""
			}
		}
	}

	formatter, err := newFormatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()

	var rows [][]string
	total := 0
	for _, fs := range structures {
		total += len(fs.Elements)
		for _, el := range fs.Elements {
			rows = append(rows, []string{
				fs.FileName,
				el.Name,
				el.Kind.String(),
				fmt.Sprintf("%d", el.LineNumber),
				truncate(el.Signature, 60),
			})
		}
	}

	table := output.NewTable(
		"Extracted Elements",
		[]string{"File", "Name", "Kind", "Line", "Signature"},
		rows,
		[]string{
			fmt.Sprintf("Files: %d", len(structures)),
			fmt.Sprintf("Elements: %d", total),
			"", "", "",
		},
		structures,
	)

	return formatter.Output(table)
}
