package batch

import (
	"time"

	"github.com/diffgrader/diffgrader/pkg/analyzer/comparison"
	"github.com/diffgrader/diffgrader/pkg/models"
)

// Submission is one student submission to grade against the reference.
type Submission struct {
	Name     string
	Elements []models.CodeElement
}

// Result is the graded outcome for a single submission.
type Result struct {
	Name              string              `json:"name" toon:"name"`
	OverallSimilarity float64             `json:"overall_similarity" toon:"overall_similarity"`
	MatchedCount      int                 `json:"matched_count" toon:"matched_count"`
	TotalElements     int                 `json:"total_elements" toon:"total_elements"`
	Error             string              `json:"error,omitempty" toon:"error,omitempty"`
	Summary           *comparison.Summary `json:"summary,omitempty" toon:"-"`
}

// Stats aggregates overall similarity across graded submissions.
type Stats struct {
	Mean   float64 `json:"mean" toon:"mean"`
	Median float64 `json:"median" toon:"median"`
	StdDev float64 `json:"std_dev" toon:"std_dev"`
	Min    float64 `json:"min" toon:"min"`
	Max    float64 `json:"max" toon:"max"`
}

// Analysis is the result of grading a batch of submissions.
type Analysis struct {
	Results    []Result  `json:"results" toon:"results"`
	Stats      Stats     `json:"stats" toon:"stats"`
	Graded     int       `json:"graded" toon:"graded"`
	Failed     int       `json:"failed" toon:"failed"`
	AnalyzedAt time.Time `json:"analyzed_at" toon:"analyzed_at"`
}
