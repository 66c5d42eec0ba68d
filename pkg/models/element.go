package models

// ElementKind classifies a structural code element.
type ElementKind string

// String implements fmt.Stringer for toon serialization.
func (k ElementKind) String() string {
	return string(k)
}

const (
	KindClass       ElementKind = "class"
	KindField       ElementKind = "field"
	KindMethod      ElementKind = "method"
	KindConstructor ElementKind = "constructor"
)

// Kinds lists every element kind in the order matching passes run.
var Kinds = []ElementKind{KindClass, KindField, KindMethod, KindConstructor}

// MatchType classifies how an element fared against the other side.
type MatchType string

// String implements fmt.Stringer for toon serialization.
func (m MatchType) String() string {
	return string(m)
}

const (
	// MatchExact is a pairing with similarity at or above the exact threshold.
	MatchExact MatchType = "exact"
	// MatchSimilar is a pairing below the exact threshold.
	MatchSimilar MatchType = "similar"
	// MatchMissing is a reference element with no student counterpart.
	MatchMissing MatchType = "missing"
	// MatchExtra is a student element with no reference counterpart.
	MatchExtra MatchType = "extra"
)

// CodeElement is one extracted declaration: a class, field, method, or
// constructor. Identity is by value (name+signature); two elements from
// different files can be structurally identical.
//
// The Matched/MatchType/Similarity fields are outcome fields written by the
// comparison pass. They are zero until an element has been through a
// comparison.
type CodeElement struct {
	Name       string      `json:"name" toon:"name"`
	Kind       ElementKind `json:"kind" toon:"kind"`
	Signature  string      `json:"signature" toon:"signature"`
	SourceCode string      `json:"source_code,omitempty" toon:"source_code,omitempty"`
	LineNumber int         `json:"line_number" toon:"line_number"`
	File       string      `json:"file,omitempty" toon:"file,omitempty"`

	Matched    bool      `json:"matched" toon:"matched"`
	MatchType  MatchType `json:"match_type,omitempty" toon:"match_type,omitempty"`
	Similarity float64   `json:"similarity" toon:"similarity"`
}
