// Package comparison implements the code-structure matching engine: given
// the extracted elements of a student submission and a reference solution,
// it pairs corresponding elements kind by kind and classifies everything
// left over as missing or extra.
//
// Matching is deliberately greedy and order-dependent: within a kind, exact
// signature+name matches are taken first-found in input order, then each
// remaining student element takes the best-scoring reference element above
// the threshold, strict greater-than deciding ties in favor of the first
// candidate seen. The result is deterministic for a given input order, not
// a globally optimal assignment.
package comparison

import (
	"context"
	"fmt"
	"time"

	"github.com/diffgrader/diffgrader/pkg/models"
	"github.com/diffgrader/diffgrader/pkg/similarity"
)

const (
	// DefaultThreshold is the minimum score an approximate match must reach.
	DefaultThreshold = 0.7
	// DefaultExactThreshold splits accepted matches into exact vs similar.
	DefaultExactThreshold = 0.95
)

// Analyzer runs comparisons between student and reference element sets.
// It is stateless across calls and safe for concurrent use as long as each
// call owns its input slices.
type Analyzer struct {
	threshold      float64
	exactThreshold float64
	weights        similarity.Weights
	scorer         *similarity.Scorer
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithThreshold sets the minimum similarity for an approximate match.
func WithThreshold(threshold float64) Option {
	return func(a *Analyzer) {
		a.threshold = threshold
	}
}

// WithExactThreshold sets the similarity at which a match counts as exact.
func WithExactThreshold(threshold float64) Option {
	return func(a *Analyzer) {
		a.exactThreshold = threshold
	}
}

// WithWeights sets the similarity blend weights.
func WithWeights(w similarity.Weights) Option {
	return func(a *Analyzer) {
		a.weights = w
	}
}

// New creates a comparison analyzer. Thresholds outside [0,1] are a
// configuration error and rejected here rather than clamped.
func New(opts ...Option) (*Analyzer, error) {
	a := &Analyzer{
		threshold:      DefaultThreshold,
		exactThreshold: DefaultExactThreshold,
		weights:        similarity.DefaultWeights(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.threshold < 0 || a.threshold > 1 {
		return nil, fmt.Errorf("similarity threshold %v outside [0,1]", a.threshold)
	}
	if a.exactThreshold < 0 || a.exactThreshold > 1 {
		return nil, fmt.Errorf("exact threshold %v outside [0,1]", a.exactThreshold)
	}

	a.scorer = similarity.NewScorer(a.weights)
	return a, nil
}

// Compare matches student elements against reference elements and returns
// the full summary. The inputs are copied; outcome fields are written onto
// the summary's copies, never the caller's slices. Cancellation is checked
// between the per-kind passes, which are the expensive O(n*m) units.
//
// Malformed or empty names, signatures, and bodies are valid inputs; the
// engine never fails on data content.
func (a *Analyzer) Compare(ctx context.Context, student, reference []models.CodeElement) (*Summary, error) {
	summary := &Summary{
		Student:        append([]models.CodeElement(nil), student...),
		Reference:      append([]models.CodeElement(nil), reference...),
		TotalStudent:   len(student),
		TotalReference: len(reference),
		AnalyzedAt:     time.Now().UTC(),
	}

	studentByKind := partitionByKind(summary.Student)
	referenceByKind := partitionByKind(summary.Reference)

	for _, kind := range models.Kinds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		matches, restStudent, restReference := a.matchKind(
			summary, kind, studentByKind[kind], referenceByKind[kind])

		summary.Matches = append(summary.Matches, matches...)
		summary.UnmatchedStudent = append(summary.UnmatchedStudent, restStudent...)
		summary.UnmatchedReference = append(summary.UnmatchedReference, restReference...)
	}

	a.applyOutcomes(summary)
	summary.MatchedCount = len(summary.Matches)
	summary.OverallSimilarity = overallSimilarity(summary)

	return summary, nil
}

// partitionByKind groups element indices by kind, preserving input order.
func partitionByKind(elements []models.CodeElement) map[models.ElementKind][]int {
	byKind := make(map[models.ElementKind][]int, len(models.Kinds))
	for i := range elements {
		byKind[elements[i].Kind] = append(byKind[elements[i].Kind], i)
	}
	return byKind
}

// applyOutcomes writes the match status back onto every element.
func (a *Analyzer) applyOutcomes(s *Summary) {
	for _, m := range s.Matches {
		matchType := models.MatchSimilar
		if m.Similarity >= a.exactThreshold {
			matchType = models.MatchExact
		}
		for _, el := range []*models.CodeElement{s.StudentElement(m), s.ReferenceElement(m)} {
			el.Matched = true
			el.MatchType = matchType
			el.Similarity = m.Similarity
		}
	}

	for _, i := range s.UnmatchedStudent {
		s.Student[i].Matched = false
		s.Student[i].MatchType = models.MatchExtra
		s.Student[i].Similarity = 0.0
	}
	for _, i := range s.UnmatchedReference {
		s.Reference[i].Matched = false
		s.Reference[i].MatchType = models.MatchMissing
		s.Reference[i].Similarity = 0.0
	}
}

// overallSimilarity is the mean pairwise similarity scaled by coverage, so
// a handful of perfect matches in a large submission still scores low.
func overallSimilarity(s *Summary) float64 {
	if len(s.Matches) == 0 || s.TotalStudent == 0 {
		return 0.0
	}

	total := 0.0
	for _, m := range s.Matches {
		total += m.Similarity
	}
	average := total / float64(len(s.Matches))

	larger := s.TotalStudent
	if s.TotalReference > larger {
		larger = s.TotalReference
	}
	coverage := float64(len(s.Matches)) / float64(larger)

	return average * coverage
}
