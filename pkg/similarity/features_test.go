package similarity

import (
	"reflect"
	"testing"
)

func TestExtractFeaturesEmpty(t *testing.T) {
	features := ExtractFeatures("")
	// Punctuation counts are always present, even at zero.
	want := []string{
		"openBrace:0", "closeBrace:0", "openParen:0", "closeParen:0", "semicolon:0",
	}
	if !reflect.DeepEqual(features, want) {
		t.Errorf("ExtractFeatures(\"\") = %v, want %v", features, want)
	}
}

func TestExtractFeatures(t *testing.T) {
	code := `public int add(int a, int b) {
		return Math.addExact(a, b);
	}`
	features := ExtractFeatures(code)

	has := make(map[string]bool, len(features))
	for _, f := range features {
		has[f] = true
	}

	for _, want := range []string{
		"public:1", "return:1",
		"openBrace:1", "closeBrace:1", "openParen:2", "closeParen:2", "semicolon:1",
	} {
		if !has[want] {
			t.Errorf("feature %q missing from %v", want, features)
		}
	}
	if has["private:0"] || has["private:1"] {
		t.Errorf("absent keyword should not be emitted: %v", features)
	}
}

func TestExtractFeaturesNonOverlappingCount(t *testing.T) {
	// "forfor" contains two non-overlapping occurrences of "for".
	features := ExtractFeatures("forfor")
	has := false
	for _, f := range features {
		if f == "for:2" {
			has = true
		}
	}
	if !has {
		t.Errorf("expected for:2 in %v", features)
	}
}

func TestFeatureSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{"both empty", nil, nil, 1.0},
		{"one empty", []string{"public:1"}, nil, 0.0},
		{"identical", []string{"public:1", "openBrace:1"}, []string{"public:1", "openBrace:1"}, 1.0},
		{"different counts are not common", []string{"public:1"}, []string{"public:2"}, 0.0},
		{"partial overlap", []string{"public:1", "static:1"}, []string{"public:1"}, 0.5},
	}

	for _, tt := range tests {
		if got := FeatureSimilarity(tt.a, tt.b); got != tt.want {
			t.Errorf("%s: FeatureSimilarity = %v, want %v", tt.name, got, tt.want)
		}
	}
}
