package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/resumerank/internal/matcher"
	"github.com/hyperjump/resumerank/internal/models"
	"github.com/hyperjump/resumerank/internal/ranking"
	"github.com/hyperjump/resumerank/internal/suggest"
)

func sampleResults() []ranking.RankedResult {
	return []ranking.RankedResult{
		{
			Resume: ranking.Resume{ID: "a", Filename: "alice.pdf"},
			Score:  87.5,
			Rank:   1,
			Analysis: ranking.Analysis{
				SemanticScore:   82.14,
				SkillScore:      100,
				MatchedSkills:   []string{"python", "docker"},
				MissingSkills:   []string{},
				ExperienceYears: 6,
			},
		},
		{
			Resume: ranking.Resume{ID: "b", Filename: "bob.docx"},
			Score:  12.25,
			Rank:   2,
			Analysis: ranking.Analysis{
				SemanticScore: 17.5,
				MatchedSkills: []string{},
				MissingSkills: []string{"python", "docker"},
			},
		},
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{" compact ", OutputCompact, false},
		{"xlsx", OutputXLSX, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteRankResults_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRankResults(&buf, sampleResults(), 42*time.Millisecond, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Ranked 2 resumes in 42ms",
		"#1  alice.pdf  score 87.50",
		"semantic 82.14 | skills 100.00 | experience 6 years",
		"matched: python, docker",
		"missing: none",
		"experience not stated",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteRankResults_TextTruncatesLongSkillLists(t *testing.T) {
	missing := make([]string, 40)
	for i := range missing {
		missing[i] = "kubernetes"
	}
	results := []ranking.RankedResult{{
		Resume:   ranking.Resume{ID: "c", Filename: "carol.txt"},
		Rank:     1,
		Analysis: ranking.Analysis{MissingSkills: missing},
	}}

	var buf bytes.Buffer
	if err := WriteRankResults(&buf, results, 0, OutputText); err != nil {
		t.Fatal(err)
	}
	var line string
	for _, l := range strings.Split(buf.String(), "\n") {
		if strings.HasPrefix(l, "    missing: ") {
			line = strings.TrimPrefix(l, "    missing: ")
		}
	}
	if !strings.HasSuffix(line, "...") {
		t.Errorf("missing line not truncated: %q", line)
	}
	if got := len([]rune(line)); got != maxSkillLine+3 {
		t.Errorf("missing line has %d runes, want %d", got, maxSkillLine+3)
	}
}

func TestWriteRankResults_Compact(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRankResults(&buf, sampleResults(), 0, OutputCompact); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "1") || !strings.Contains(lines[0], "alice.pdf") {
		t.Errorf("line 1 = %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "python,docker") {
		t.Errorf("line 2 = %q", lines[1])
	}
}

func TestWriteRankResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRankResults(&buf, nil, 5*time.Millisecond, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"results": []`) {
		t.Errorf("empty results should encode as []:\n%s", buf.String())
	}

	buf.Reset()
	if err := WriteRankResults(&buf, sampleResults(), 5*time.Millisecond, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.RankResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Total != 2 || decoded.QueryTime != 5 || decoded.Results[0].Filename != "alice.pdf" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteRankResultsXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRankResults(&buf, sampleResults(), 0, OutputXLSX); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(rankingSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	if rows[0][0] != "Rank" || rows[0][7] != "Missing skills" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][1] != "alice.pdf" || rows[1][2] != "87.5" || rows[1][6] != "python, docker" {
		t.Errorf("row 1 = %v", rows[1])
	}
	if rows[2][7] != "python, docker" {
		t.Errorf("row 2 = %v", rows[2])
	}
}

func TestWriteMatchReport(t *testing.T) {
	report := &matcher.Report{
		MatchScore:      66.67,
		MatchedSkills:   []string{"python", "aws"},
		MissingSkills:   []string{"docker"},
		ExperienceYears: 1,
		Role:            "Backend Engineer",
		Suggestions:     suggest.Suggestion{Text: suggest.Fallback([]string{"docker"}), Status: suggest.StatusDegraded},
	}

	var buf bytes.Buffer
	if err := WriteMatchReport(&buf, "me.pdf", report, OutputText); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"me.pdf vs Backend Engineer", "Match score: 66.67", "1 year", "Missing:     docker", "Suggestions (degraded):"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("text output missing %q:\n%s", want, buf.String())
		}
	}

	buf.Reset()
	if err := WriteMatchReport(&buf, "me.pdf", report, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.AnalyzeResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Filename != "me.pdf" || decoded.Analysis.MatchScore != 66.67 {
		t.Errorf("decoded = %+v", decoded)
	}

	buf.Reset()
	if err := WriteMatchReport(&buf, "me.pdf", report, OutputCompact); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "66.67\tme.pdf\tdocker\n" {
		t.Errorf("compact = %q", buf.String())
	}
}
