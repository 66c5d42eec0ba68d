package comparison

import (
	"time"

	"github.com/diffgrader/diffgrader/pkg/models"
)

// Match pairs one student element with one reference element. Elements are
// referenced by index into the owning Summary's slices, never by pointer.
type Match struct {
	StudentIndex   int      `json:"student_index" toon:"student_index"`
	ReferenceIndex int      `json:"reference_index" toon:"reference_index"`
	Similarity     float64  `json:"similarity" toon:"similarity"`
	Differences    []string `json:"differences,omitempty" toon:"differences,omitempty"`
}

// Summary is the full result of one comparison run. It owns flat copies of
// both element lists with their outcome fields filled in; every input
// element appears in exactly one of Matches, UnmatchedStudent, or
// UnmatchedReference.
type Summary struct {
	Student   []models.CodeElement `json:"student" toon:"student"`
	Reference []models.CodeElement `json:"reference" toon:"reference"`

	Matches            []Match `json:"matches" toon:"matches"`
	UnmatchedStudent   []int   `json:"unmatched_student,omitempty" toon:"unmatched_student,omitempty"`
	UnmatchedReference []int   `json:"unmatched_reference,omitempty" toon:"unmatched_reference,omitempty"`

	OverallSimilarity float64   `json:"overall_similarity" toon:"overall_similarity"`
	TotalStudent      int       `json:"total_student" toon:"total_student"`
	TotalReference    int       `json:"total_reference" toon:"total_reference"`
	MatchedCount      int       `json:"matched_count" toon:"matched_count"`
	AnalyzedAt        time.Time `json:"analyzed_at" toon:"analyzed_at"`
}

// StudentElement returns the student side of a match.
func (s *Summary) StudentElement(m Match) *models.CodeElement {
	return &s.Student[m.StudentIndex]
}

// ReferenceElement returns the reference side of a match.
func (s *Summary) ReferenceElement(m Match) *models.CodeElement {
	return &s.Reference[m.ReferenceIndex]
}

// MissingElements returns the reference elements with no student
// counterpart, in input order.
func (s *Summary) MissingElements() []models.CodeElement {
	out := make([]models.CodeElement, 0, len(s.UnmatchedReference))
	for _, i := range s.UnmatchedReference {
		out = append(out, s.Reference[i])
	}
	return out
}

// ExtraElements returns the student elements with no reference counterpart,
// in input order.
func (s *Summary) ExtraElements() []models.CodeElement {
	out := make([]models.CodeElement, 0, len(s.UnmatchedStudent))
	for _, i := range s.UnmatchedStudent {
		out = append(out, s.Student[i])
	}
	return out
}
