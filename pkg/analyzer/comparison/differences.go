package comparison

import (
	"strings"

	"github.com/diffgrader/diffgrader/pkg/models"
	"github.com/diffgrader/diffgrader/pkg/similarity"
)

// Explain produces short human-readable discrepancy notes for a pair of
// signatures. Identical signatures produce no notes. The checks are shallow
// substring heuristics over the normalized signature text, not a parser;
// callers must not expect semantic accuracy beyond that.
func Explain(studentSig, referenceSig string, kind models.ElementKind) []string {
	if studentSig == referenceSig {
		return nil
	}

	var diffs []string
	switch kind {
	case models.KindMethod:
		diffs = methodDifferences(studentSig, referenceSig)
	case models.KindField:
		diffs = fieldDifferences(studentSig, referenceSig)
	case models.KindClass:
		diffs = classDifferences(studentSig, referenceSig)
	case models.KindConstructor:
		diffs = constructorDifferences(studentSig, referenceSig)
	default:
		diffs = genericDifferences(studentSig, referenceSig)
	}
	return diffs
}

func methodDifferences(a, b string) []string {
	var diffs []string
	if accessModifier(a) != accessModifier(b) {
		diffs = append(diffs, "Different access modifiers")
	}
	if returnType(a) != returnType(b) {
		diffs = append(diffs, "Different return types")
	}
	if parameters(a) != parameters(b) {
		diffs = append(diffs, "Different parameters")
	}
	if strings.Contains(a, "static") != strings.Contains(b, "static") {
		diffs = append(diffs, "Different static modifier")
	}
	return diffs
}

func fieldDifferences(a, b string) []string {
	var diffs []string
	if accessModifier(a) != accessModifier(b) {
		diffs = append(diffs, "Different access modifiers")
	}
	if fieldType(a) != fieldType(b) {
		diffs = append(diffs, "Different field types")
	}
	if strings.Contains(a, "static") != strings.Contains(b, "static") {
		diffs = append(diffs, "Different static modifier")
	}
	if strings.Contains(a, "final") != strings.Contains(b, "final") {
		diffs = append(diffs, "Different final modifier")
	}
	return diffs
}

func classDifferences(a, b string) []string {
	var diffs []string
	if accessModifier(a) != accessModifier(b) {
		diffs = append(diffs, "Different access modifiers")
	}
	if strings.Contains(a, "abstract") != strings.Contains(b, "abstract") {
		diffs = append(diffs, "Different abstract modifier")
	}
	if strings.Contains(a, "final") != strings.Contains(b, "final") {
		diffs = append(diffs, "Different final modifier")
	}
	if strings.Contains(a, "interface") != strings.Contains(b, "interface") {
		diffs = append(diffs, "Different class/interface type")
	}
	return diffs
}

func constructorDifferences(a, b string) []string {
	var diffs []string
	if accessModifier(a) != accessModifier(b) {
		diffs = append(diffs, "Different access modifiers")
	}
	if parameters(a) != parameters(b) {
		diffs = append(diffs, "Different parameters")
	}
	return diffs
}

func genericDifferences(a, b string) []string {
	var diffs []string
	sim := similarity.Normalized(a, b)
	if sim < 0.8 {
		diffs = append(diffs, "Significant structural differences")
	}
	if sim < 0.5 {
		diffs = append(diffs, "Major differences in implementation")
	}
	return diffs
}

// accessModifier extracts the first access modifier present in the
// signature text, defaulting to package-private.
func accessModifier(sig string) string {
	switch {
	case strings.Contains(sig, "public"):
		return "public"
	case strings.Contains(sig, "private"):
		return "private"
	case strings.Contains(sig, "protected"):
		return "protected"
	default:
		return "package-private"
	}
}

// returnType is the token immediately preceding the token that carries the
// opening parenthesis.
func returnType(sig string) string {
	parts := strings.Fields(sig)
	for i := 0; i+1 < len(parts); i++ {
		if strings.Contains(parts[i+1], "(") {
			return parts[i]
		}
	}
	return ""
}

// fieldType is the second-to-last whitespace-separated token.
func fieldType(sig string) string {
	parts := strings.Fields(sig)
	if len(parts) >= 2 {
		return parts[len(parts)-2]
	}
	return ""
}

// parameters is the text between the first '(' and the first ')'.
func parameters(sig string) string {
	start := strings.IndexByte(sig, '(')
	end := strings.IndexByte(sig, ')')
	if start >= 0 && end > start {
		return sig[start+1 : end]
	}
	return ""
}
