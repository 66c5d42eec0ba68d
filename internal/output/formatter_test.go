package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"markdown", FormatMarkdown},
		{"md", FormatMarkdown},
		{"toon", FormatTOON},
		{"text", FormatText},
		{"", FormatText},
		{"bogus", FormatText},
	}

	for _, tt := range tests {
		if got := ParseFormat(tt.input); got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func newBufferFormatter(format Format) (*Formatter, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return &Formatter{format: format, writer: buf}, buf
}

func TestOutputJSON(t *testing.T) {
	f, buf := newBufferFormatter(FormatJSON)

	data := map[string]any{"overall_similarity": 0.85, "matched": 7}
	if err := f.Output(data); err != nil {
		t.Fatalf("Output() error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["matched"] != float64(7) {
		t.Errorf("matched = %v, want 7", decoded["matched"])
	}
}

func TestOutputTOON(t *testing.T) {
	f, buf := newBufferFormatter(FormatTOON)

	data := map[string]any{"matched": 3}
	if err := f.Output(data); err != nil {
		t.Fatalf("Output() error: %v", err)
	}
	if !strings.Contains(buf.String(), "matched") {
		t.Errorf("TOON output missing key, got %q", buf.String())
	}
}

func TestTableRenderText(t *testing.T) {
	tbl := NewTable("Element Matches",
		[]string{"Student", "Reference", "Similarity"},
		[][]string{
			{"add", "add", "1.00"},
			{"substract", "subtract", "0.89"},
		},
		nil, nil)

	buf := &bytes.Buffer{}
	if err := tbl.RenderText(buf, false); err != nil {
		t.Fatalf("RenderText() error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Element Matches") {
		t.Error("text output missing title")
	}
	if !strings.Contains(out, "substract") {
		t.Error("text output missing row data")
	}
}

func TestTableRenderMarkdown(t *testing.T) {
	tbl := NewTable("Matches",
		[]string{"Name", "Score"},
		[][]string{{"add", "1.00"}},
		[]string{"Total", "1"}, nil)

	buf := &bytes.Buffer{}
	if err := tbl.RenderMarkdown(buf); err != nil {
		t.Fatalf("RenderMarkdown() error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "## Matches") {
		t.Error("markdown output missing title heading")
	}
	if !strings.Contains(out, "| Name | Score |") {
		t.Error("markdown output missing header row")
	}
	if !strings.Contains(out, "| --- | --- |") {
		t.Error("markdown output missing separator row")
	}
	if !strings.Contains(out, "| Total | 1 |") {
		t.Error("markdown output missing footer row")
	}
}

func TestTableRenderData(t *testing.T) {
	tbl := NewTable("", []string{"Name", "Score"}, [][]string{{"add", "1.00"}}, nil, nil)

	data, ok := tbl.RenderData().([]map[string]string)
	if !ok {
		t.Fatalf("RenderData() = %T, want []map[string]string", tbl.RenderData())
	}
	if data[0]["Name"] != "add" {
		t.Errorf("RenderData()[0][Name] = %q, want add", data[0]["Name"])
	}

	wrapped := NewTable("", nil, nil, nil, map[string]int{"x": 1})
	if _, ok := wrapped.RenderData().(map[string]int); !ok {
		t.Error("RenderData() should return wrapped data when present")
	}
}

func TestSectionRendering(t *testing.T) {
	s := &Section{
		Title:   "Summary",
		Content: "2 of 3 elements matched.",
		Sections: []Section{
			{Title: "Missing", Content: "reset"},
		},
	}

	buf := &bytes.Buffer{}
	if err := s.RenderText(buf, false); err != nil {
		t.Fatalf("RenderText() error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Summary\n=======") {
		t.Error("top-level section should be underlined with =")
	}
	if !strings.Contains(out, "Missing\n-------") {
		t.Error("nested section should be underlined with -")
	}

	buf.Reset()
	if err := s.RenderMarkdown(buf); err != nil {
		t.Fatalf("RenderMarkdown() error: %v", err)
	}
	if !strings.Contains(buf.String(), "### Missing") {
		t.Error("nested markdown section should use deeper heading")
	}
}

func TestReportRendering(t *testing.T) {
	r := &Report{
		Title: "Comparison Report",
		Sections: []Renderable{
			&Section{Title: "Overview", Content: "ok"},
			NewTable("", []string{"A"}, [][]string{{"1"}}, nil, nil),
		},
	}

	buf := &bytes.Buffer{}
	if err := r.RenderText(buf, false); err != nil {
		t.Fatalf("RenderText() error: %v", err)
	}
	if !strings.Contains(buf.String(), "Comparison Report") {
		t.Error("report text missing title")
	}

	data, ok := r.RenderData().(map[string]any)
	if !ok {
		t.Fatalf("RenderData() = %T, want map", r.RenderData())
	}
	if data["title"] != "Comparison Report" {
		t.Errorf("RenderData() title = %v", data["title"])
	}
}

func TestFormatterFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")

	f, err := NewFormatter(FormatJSON, path, true)
	if err != nil {
		t.Fatalf("NewFormatter() error: %v", err)
	}
	if f.Colored() {
		t.Error("file output should disable color")
	}
	if err := f.Output(map[string]string{"status": "ready"}); err != nil {
		t.Fatalf("Output() error: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if !strings.Contains(string(content), "ready") {
		t.Errorf("file content = %q", content)
	}
}

func TestMatchColor(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	for _, mt := range []string{"exact", "similar", "missing", "extra", "unknown"} {
		if got := MatchColor(mt, "text"); got != "text" {
			t.Errorf("MatchColor(%q) = %q with color disabled", mt, got)
		}
	}
}

func TestFormatterMessages(t *testing.T) {
	f, buf := newBufferFormatter(FormatText)

	f.Success("done %d", 1)
	f.Warning("careful")
	f.Error("broken")
	f.Info("note")

	out := buf.String()
	for _, want := range []string{"done 1", "WARNING: careful", "ERROR: broken", "note"} {
		if !strings.Contains(out, want) {
			t.Errorf("messages output missing %q, got %q", want, out)
		}
	}
}
