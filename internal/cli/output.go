// Package cli renders ranking results and match reports for the command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hyperjump/resumerank/internal/matcher"
	"github.com/hyperjump/resumerank/internal/models"
	"github.com/hyperjump/resumerank/internal/ranking"
	"github.com/hyperjump/resumerank/pkg/utils"
)

// maxSkillLine caps the matched and missing lines of the ranking text output, in runes.
const maxSkillLine = 96

// OutputFormat is the format for result output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact prints one tab-separated line per result.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
	// OutputXLSX is an Excel workbook; it needs a file destination.
	OutputXLSX OutputFormat = "xlsx"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputText, OutputCompact, OutputJSON, OutputXLSX:
		return f, nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, compact, json or xlsx)", s)
	}
}

// WriteRankResults writes ranked results to w. OutputXLSX is written with WriteRankResultsXLSX.
func WriteRankResults(w io.Writer, results []ranking.RankedResult, elapsed time.Duration, format OutputFormat) error {
	switch format {
	case OutputJSON:
		if results == nil {
			results = []ranking.RankedResult{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(models.RankResponse{
			Results:   results,
			Total:     len(results),
			QueryTime: elapsed.Milliseconds(),
		})
	case OutputCompact:
		return writeRankCompact(w, results)
	case OutputXLSX:
		return WriteRankResultsXLSX(w, results)
	default:
		writeRankText(w, results, elapsed)
		return nil
	}
}

func writeRankText(w io.Writer, results []ranking.RankedResult, elapsed time.Duration) {
	fmt.Fprintf(w, "\nRanked %d resumes in %dms\n\n", len(results), elapsed.Milliseconds())
	for _, r := range results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "#%d  %s  score %.2f\n", r.Rank, r.Filename, r.Score)
		fmt.Fprintf(w, "    semantic %.2f | skills %.2f | experience %s\n",
			r.Analysis.SemanticScore, r.Analysis.SkillScore, formatYears(r.Analysis.ExperienceYears))
		fmt.Fprintf(w, "    matched: %s\n", utils.Truncate(joinOrNone(r.Analysis.MatchedSkills), maxSkillLine))
		fmt.Fprintf(w, "    missing: %s\n", utils.Truncate(joinOrNone(r.Analysis.MissingSkills), maxSkillLine))
	}
	if len(results) > 0 {
		fmt.Fprintln(w)
	}
}

func writeRankCompact(w io.Writer, results []ranking.RankedResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range results {
		fmt.Fprintf(tw, "%d\t%.2f\t%s\t%s\n", r.Rank, r.Score, r.Filename, strings.Join(r.Analysis.MissingSkills, ","))
	}
	return tw.Flush()
}

// WriteMatchReport writes a single-resume analysis to w. OutputXLSX falls back to text.
func WriteMatchReport(w io.Writer, filename string, report *matcher.Report, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(models.AnalyzeResponse{Filename: filename, Analysis: report})
	case OutputCompact:
		_, err := fmt.Fprintf(w, "%.2f\t%s\t%s\n", report.MatchScore, filename, strings.Join(report.MissingSkills, ","))
		return err
	default:
		fmt.Fprintf(w, "\n%s vs %s\n\n", filename, report.Role)
		fmt.Fprintf(w, "Match score: %.2f\n", report.MatchScore)
		fmt.Fprintf(w, "Experience:  %s\n", formatYears(report.ExperienceYears))
		fmt.Fprintf(w, "Matched:     %s\n", joinOrNone(report.MatchedSkills))
		fmt.Fprintf(w, "Missing:     %s\n", joinOrNone(report.MissingSkills))
		fmt.Fprintf(w, "\nSuggestions (%s):\n%s\n", report.Suggestions.Status, report.Suggestions.Text)
		return nil
	}
}

func joinOrNone(list []string) string {
	if len(list) == 0 {
		return "none"
	}
	return strings.Join(list, ", ")
}

func formatYears(years float64) string {
	if years == 0 {
		return "not stated"
	}
	if years == 1 {
		return "1 year"
	}
	return fmt.Sprintf("%g years", years)
}
