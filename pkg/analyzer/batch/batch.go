// Package batch grades many submissions against one reference solution and
// aggregates score statistics across the cohort.
package batch

import (
	"context"
	"runtime"
	"sort"
	"time"

	"github.com/sourcegraph/conc/pool"
	"gonum.org/v1/gonum/stat"

	"github.com/diffgrader/diffgrader/pkg/analyzer/comparison"
	"github.com/diffgrader/diffgrader/pkg/models"
)

// Analyzer grades batches of submissions.
type Analyzer struct {
	comparisonOpts []comparison.Option
	workers        int
	includeSummary bool
	onProgress     func()
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithComparisonOptions forwards options to the per-submission comparison.
func WithComparisonOptions(opts ...comparison.Option) Option {
	return func(a *Analyzer) {
		a.comparisonOpts = append(a.comparisonOpts, opts...)
	}
}

// WithWorkers sets the number of submissions graded concurrently.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		a.workers = n
	}
}

// WithSummaries retains the full per-submission comparison summaries.
// Off by default; a large cohort with full summaries gets expensive.
func WithSummaries() Option {
	return func(a *Analyzer) {
		a.includeSummary = true
	}
}

// WithProgress sets a callback invoked after each graded submission.
func WithProgress(fn func()) Option {
	return func(a *Analyzer) {
		a.onProgress = fn
	}
}

// New creates a batch analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.workers <= 0 {
		a.workers = runtime.NumCPU()
	}
	return a
}

// Grade compares every submission against the reference elements. Results
// keep the submission order. A submission that fails to compare is recorded
// with its error and excluded from the statistics.
func (a *Analyzer) Grade(ctx context.Context, reference []models.CodeElement, submissions []Submission) (*Analysis, error) {
	analyzer, err := comparison.New(a.comparisonOpts...)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(submissions))

	p := pool.New().WithMaxGoroutines(a.workers).WithContext(ctx)
	for i, sub := range submissions {
		p.Go(func(ctx context.Context) error {
			defer func() {
				if a.onProgress != nil {
					a.onProgress()
				}
			}()

			summary, err := analyzer.Compare(ctx, sub.Elements, reference)
			if err != nil {
				results[i] = Result{Name: sub.Name, Error: err.Error()}
				return err
			}

			r := Result{
				Name:              sub.Name,
				OverallSimilarity: summary.OverallSimilarity,
				MatchedCount:      summary.MatchedCount,
				TotalElements:     summary.TotalStudent,
			}
			if a.includeSummary {
				r.Summary = summary
			}
			results[i] = r
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	analysis := &Analysis{
		Results:    results,
		AnalyzedAt: time.Now().UTC(),
	}

	var scores []float64
	for _, r := range results {
		if r.Error != "" {
			analysis.Failed++
			continue
		}
		analysis.Graded++
		scores = append(scores, r.OverallSimilarity)
	}
	analysis.Stats = computeStats(scores)

	return analysis, nil
}

// computeStats summarizes a score distribution.
func computeStats(scores []float64) Stats {
	if len(scores) == 0 {
		return Stats{}
	}

	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)

	s := Stats{
		Mean:   stat.Mean(sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
	}
	if len(sorted) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	return s
}
