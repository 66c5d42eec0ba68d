package similarity

import "github.com/diffgrader/diffgrader/pkg/models"

// Weights controls how the three per-element measures blend into one score.
type Weights struct {
	Signature float64 `json:"signature"`
	Name      float64 `json:"name"`
	Structure float64 `json:"structure"`
}

// DefaultWeights returns the standard 0.4 / 0.3 / 0.3 blend.
func DefaultWeights() Weights {
	return Weights{Signature: 0.4, Name: 0.3, Structure: 0.3}
}

// Scorer computes a combined similarity score for a pair of code elements.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with the given weights.
func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// Score blends signature, name, and structural similarity into a single
// value, clamped to at most 1.0. Empty strings on either side degrade
// gracefully through the underlying measures; no input is an error.
func (s *Scorer) Score(student, reference *models.CodeElement) float64 {
	signatureSim := Normalized(student.Signature, reference.Signature)
	nameSim := Normalized(student.Name, reference.Name)
	structuralSim := FeatureSimilarity(
		ExtractFeatures(student.SourceCode),
		ExtractFeatures(reference.SourceCode),
	)

	score := signatureSim*s.weights.Signature +
		nameSim*s.weights.Name +
		structuralSim*s.weights.Structure
	if score > 1.0 {
		return 1.0
	}
	return score
}
