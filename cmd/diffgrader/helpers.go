package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/diffgrader/diffgrader/internal/fileproc"
	"github.com/diffgrader/diffgrader/internal/output"
	"github.com/diffgrader/diffgrader/internal/progress"
	"github.com/diffgrader/diffgrader/pkg/models"
	"github.com/diffgrader/diffgrader/pkg/scanner"
)

// newFormatter builds a formatter from the global output flags.
func newFormatter(c *cli.Context) (*output.Formatter, error) {
	return output.NewFormatter(
		output.ParseFormat(c.String("format")),
		c.String("output"),
		!c.Bool("no-color"),
	)
}

// collectJavaFiles scans a path for Java sources. A path naming a single
// file is accepted as-is when it passes the scanner's filters.
func collectJavaFiles(scan *scanner.Scanner, path string) ([]string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path %s: %w", path, err)
	}
	files, err := scan.ScanDir(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", path, err)
	}
	return files, nil
}

// extractElements parses the given files and flattens the results into a
// single element list, preserving file order.
func extractElements(ctx context.Context, label string, files []string, workers int) ([]models.CodeElement, error) {
	tracker := progress.NewTracker(label, len(files))
	structures, errs := fileproc.ExtractAll(ctx, files, workers, tracker.Tick)
	if errs != nil {
		tracker.FinishError(errs)
		return nil, errs
	}
	tracker.FinishSuccess()

	var elements []models.CodeElement
	for _, fs := range structures {
		elements = append(elements, fs.Elements...)
	}
	return elements, nil
}

// percent renders a similarity score as a whole percentage.
func percent(similarity float64) string {
	return fmt.Sprintf("%.0f%%", similarity*100)
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 4 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// warnNoFiles prints the standard empty-scan notice.
func warnNoFiles() {
	color.Yellow("No Java source files found")
}
