package main

import (
	"strings"
	"testing"

	"github.com/diffgrader/diffgrader/pkg/analyzer/batch"
	"github.com/diffgrader/diffgrader/pkg/analyzer/comparison"
	"github.com/diffgrader/diffgrader/pkg/config"
	"github.com/diffgrader/diffgrader/pkg/models"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"this is a longer string", 10, "this is..."},
		{"tiny", 3, "tin"},
	}

	for _, tt := range tests {
		if got := truncate(tt.input, tt.maxLen); got != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.expected)
		}
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		similarity float64
		expected   string
	}{
		{1.0, "100%"},
		{0.725, "72%"},
		{0, "0%"},
	}

	for _, tt := range tests {
		if got := percent(tt.similarity); got != tt.expected {
			t.Errorf("percent(%v) = %q, want %q", tt.similarity, got, tt.expected)
		}
	}
}

func TestComparisonReport(t *testing.T) {
	summary := &comparison.Summary{
		Student: []models.CodeElement{
			{Name: "add", Kind: models.KindMethod, Matched: true, MatchType: models.MatchExact, Similarity: 1.0},
			{Name: "helper", Kind: models.KindMethod, MatchType: models.MatchExtra},
		},
		Reference: []models.CodeElement{
			{Name: "add", Kind: models.KindMethod, Matched: true, MatchType: models.MatchExact, Similarity: 1.0},
			{Name: "subtract", Kind: models.KindMethod, MatchType: models.MatchMissing, Signature: "public int subtract(int a, int b)"},
		},
		Matches:            []comparison.Match{{StudentIndex: 0, ReferenceIndex: 0, Similarity: 1.0}},
		UnmatchedStudent:   []int{1},
		UnmatchedReference: []int{1},
		OverallSimilarity:  0.5,
		TotalStudent:       2,
		TotalReference:     2,
		MatchedCount:       1,
	}

	report := comparisonReport(summary, false)
	if len(report.Sections) != 4 {
		t.Fatalf("expected overview, matched, missing, and extra sections, got %d", len(report.Sections))
	}

	var sb strings.Builder
	if err := report.RenderText(&sb, false); err != nil {
		t.Fatalf("RenderText failed: %v", err)
	}
	text := sb.String()

	for _, want := range []string{
		"Overall similarity: 50%",
		"Matched Elements",
		"Missing Elements",
		"subtract",
		"Extra Elements",
		"helper",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report text missing %q", want)
		}
	}
}

func TestComparisonReportEmpty(t *testing.T) {
	report := comparisonReport(&comparison.Summary{}, false)
	if len(report.Sections) != 1 {
		t.Fatalf("expected only the overview section, got %d", len(report.Sections))
	}
}

func TestSuggestionsSection(t *testing.T) {
	summary := &comparison.Summary{
		Student: []models.CodeElement{
			{Name: "add", Kind: models.KindMethod, Matched: true, MatchType: models.MatchExact, Similarity: 1.0},
		},
		Reference: []models.CodeElement{
			{Name: "add", Kind: models.KindMethod, Matched: true, MatchType: models.MatchExact, Similarity: 1.0},
			{Name: "subtract", Kind: models.KindMethod, MatchType: models.MatchMissing},
		},
		UnmatchedReference: []int{1},
	}

	sec := suggestionsSection(summary)
	if sec == nil {
		t.Fatal("expected a suggestions section")
	}

	var sb strings.Builder
	if err := sec.RenderText(&sb, false); err != nil {
		t.Fatalf("RenderText failed: %v", err)
	}
	text := sb.String()

	if !strings.Contains(text, "Grading Suggestions") {
		t.Errorf("section text missing title: %q", text)
	}
	if !strings.Contains(text, "100") {
		t.Errorf("expected capped exact-match score in %q", text)
	}
	if !strings.Contains(text, "subtract") {
		t.Errorf("expected missing element row in %q", text)
	}

	if suggestionsSection(&comparison.Summary{}) != nil {
		t.Error("expected nil section for an empty summary")
	}
}

func TestBatchTable(t *testing.T) {
	analysis := &batch.Analysis{
		Results: []batch.Result{
			{Name: "alice", OverallSimilarity: 0.5, MatchedCount: 1, TotalElements: 2},
			{Name: "bob", OverallSimilarity: 0.9, MatchedCount: 2, TotalElements: 2},
			{Name: "carol", Error: "archive broken"},
		},
		Stats:  batch.Stats{Mean: 0.7, Median: 0.7},
		Graded: 2,
		Failed: 1,
	}

	table := batchTable(analysis)
	if len(table.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(table.Rows))
	}
	if table.Rows[0][1] != "bob" {
		t.Errorf("expected bob ranked first, got %q", table.Rows[0][1])
	}
	if table.Rows[2][1] != "carol" || !strings.Contains(table.Rows[2][4], "failed") {
		t.Errorf("expected carol last with a failure note, got %v", table.Rows[2])
	}
}

func TestComparisonOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	opts := comparisonOptions(cfg)
	if len(opts) != 3 {
		t.Fatalf("expected 3 options, got %d", len(opts))
	}
	if _, err := comparison.New(opts...); err != nil {
		t.Fatalf("default config should produce a valid analyzer: %v", err)
	}
}
