// Package feedback generates grading suggestions for matched code elements
// and validates instructor-entered feedback.
package feedback

import (
	"fmt"
	"math"
	"strings"

	"github.com/diffgrader/diffgrader/pkg/models"
)

// Score limits for instructor feedback.
const (
	MinScore = 0
	MaxScore = 100

	maxCommentsLen  = 2000
	maxCategoryLen  = 1000
	bonusExact      = 10
	penaltyExtra    = 20
	reviewThreshold = 0.8
)

// Suggestion is an automatically generated grading proposal for one element.
type Suggestion struct {
	Score         int    `json:"score" toon:"score"`
	Comments      string `json:"comments" toon:"comments"`
	DesignPattern string `json:"design_pattern_feedback" toon:"design_pattern_feedback"`
	BestPractices string `json:"best_practices_feedback" toon:"best_practices_feedback"`
}

// Suggest builds a grading suggestion from an element's match outcome.
func Suggest(el *models.CodeElement) *Suggestion {
	return &Suggestion{
		Score:         suggestedScore(el),
		Comments:      suggestedComments(el),
		DesignPattern: designPatternAdvice(el.Kind),
		BestPractices: bestPracticesAdvice(el.Kind),
	}
}

// suggestedScore derives a 0-100 score from similarity, nudged by the match
// outcome: exact matches get a bonus, extra elements a penalty, missing
// elements zero.
func suggestedScore(el *models.CodeElement) int {
	base := int(math.Round(el.Similarity * 100))

	switch el.MatchType {
	case models.MatchExact:
		if base+bonusExact > MaxScore {
			return MaxScore
		}
		return base + bonusExact
	case models.MatchExtra:
		if base-penaltyExtra < MinScore {
			return MinScore
		}
		return base - penaltyExtra
	case models.MatchMissing:
		return 0
	default:
		return base
	}
}

func suggestedComments(el *models.CodeElement) string {
	var b strings.Builder

	switch el.MatchType {
	case models.MatchExact:
		b.WriteString("Perfect match with reference implementation. ")
	case models.MatchSimilar:
		fmt.Fprintf(&b, "Good implementation with %.0f%% similarity to reference. ", el.Similarity*100)
		if el.Similarity < reviewThreshold {
			b.WriteString("Consider reviewing the implementation for closer alignment. ")
		}
	case models.MatchExtra:
		b.WriteString("Additional element not found in reference. ")
		b.WriteString("Evaluate if this is necessary or could be refactored. ")
	case models.MatchMissing:
		b.WriteString("This element is missing from your implementation. ")
		b.WriteString("Please ensure all required functionality is implemented. ")
	}

	switch el.Kind {
	case models.KindClass:
		b.WriteString("Class structure and organization are important for maintainability.")
	case models.KindMethod:
		b.WriteString("Method implementation should follow single responsibility principle.")
	case models.KindField:
		b.WriteString("Field declarations should follow proper encapsulation principles.")
	case models.KindConstructor:
		b.WriteString("Constructor should properly initialize all necessary fields.")
	}

	return strings.TrimSpace(b.String())
}

func designPatternAdvice(kind models.ElementKind) string {
	switch kind {
	case models.KindClass:
		return "Consider applying appropriate design patterns like Singleton, Factory, or Strategy pattern where suitable."
	case models.KindMethod:
		return "Ensure methods follow SOLID principles, especially Single Responsibility and Open/Closed principles."
	case models.KindField:
		return "Consider using private fields with appropriate getters/setters for proper encapsulation."
	case models.KindConstructor:
		return "Constructor should use dependency injection pattern where appropriate."
	default:
		return "Apply relevant design patterns to improve code structure and maintainability."
	}
}

func bestPracticesAdvice(kind models.ElementKind) string {
	var b strings.Builder
	b.WriteString("Follow Java naming conventions: ")

	switch kind {
	case models.KindClass:
		b.WriteString("class names should be PascalCase. ")
	case models.KindMethod:
		b.WriteString("method names should be camelCase and start with a verb. ")
	case models.KindField:
		b.WriteString("field names should be camelCase. ")
	case models.KindConstructor:
		b.WriteString("constructor should validate inputs and handle edge cases. ")
	}

	b.WriteString("Add meaningful comments for complex logic. ")
	b.WriteString("Ensure proper error handling and input validation.")
	return b.String()
}

// Validate checks instructor feedback fields before they are stored.
func Validate(score int, comments, designPattern, bestPractices string) error {
	if score < MinScore || score > MaxScore {
		return fmt.Errorf("score must be between %d and %d", MinScore, MaxScore)
	}
	if len(comments) > maxCommentsLen {
		return fmt.Errorf("comments cannot exceed %d characters", maxCommentsLen)
	}
	if len(designPattern) > maxCategoryLen {
		return fmt.Errorf("design pattern feedback cannot exceed %d characters", maxCategoryLen)
	}
	if len(bestPractices) > maxCategoryLen {
		return fmt.Errorf("best practices feedback cannot exceed %d characters", maxCategoryLen)
	}
	return nil
}
