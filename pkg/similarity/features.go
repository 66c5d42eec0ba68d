package similarity

import (
	"regexp"
	"strconv"
	"strings"
)

// structuralKeywords is the fixed vocabulary counted when fingerprinting a
// declaration body. Order matters: features are emitted in this order so two
// fingerprints of the same code are identical token lists.
var structuralKeywords = []string{
	"public", "private", "protected", "static", "final", "abstract",
	"class", "interface", "extends", "implements", "throws",
	"if", "else", "for", "while", "switch", "case", "try", "catch",
	"return", "new", "this", "super",
}

// punctuation features are always emitted, even at count zero.
var punctuationFeatures = []struct {
	name  string
	token string
}{
	{"openBrace", "{"},
	{"closeBrace", "}"},
	{"openParen", "("},
	{"closeParen", ")"},
	{"semicolon", ";"},
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// ExtractFeatures converts a source-code string into an ordered list of
// "feature:count" tokens. Keyword features appear only when the count is
// positive; punctuation counts are always present.
func ExtractFeatures(code string) []string {
	normalized := strings.ToLower(whitespaceRE.ReplaceAllString(code, " "))

	features := make([]string, 0, len(structuralKeywords)+len(punctuationFeatures))
	for _, kw := range structuralKeywords {
		if count := countOccurrences(normalized, kw); count > 0 {
			features = append(features, kw+":"+strconv.Itoa(count))
		}
	}
	for _, p := range punctuationFeatures {
		features = append(features, p.name+":"+strconv.Itoa(countOccurrences(normalized, p.token)))
	}

	return features
}

// FeatureSimilarity compares two fingerprints by exact token membership:
// a feature with a different count is not common. The result is
// |common| / max(len(a), len(b)), with two empty fingerprints fully similar
// and exactly one empty scoring zero.
func FeatureSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	inB := make(map[string]bool, len(b))
	for _, f := range b {
		inB[f] = true
	}

	common := 0
	for _, f := range a {
		if inB[f] {
			common++
		}
	}

	total := len(a)
	if len(b) > total {
		total = len(b)
	}
	return float64(common) / float64(total)
}

// countOccurrences counts non-overlapping occurrences of pattern in text,
// advancing the cursor past each match.
func countOccurrences(text, pattern string) int {
	if pattern == "" {
		return 0
	}
	count := 0
	for idx := 0; ; {
		i := strings.Index(text[idx:], pattern)
		if i < 0 {
			return count
		}
		count++
		idx += i + len(pattern)
	}
}
