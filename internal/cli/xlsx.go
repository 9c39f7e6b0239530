package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/resumerank/internal/ranking"
)

const rankingSheet = "Ranking"

var xlsxHeader = []interface{}{
	"Rank", "Filename", "Score", "Semantic", "Skills", "Experience (years)", "Matched skills", "Missing skills",
}

// WriteRankResultsXLSX writes results as a single-sheet Excel workbook.
func WriteRankResultsXLSX(w io.Writer, results []ranking.RankedResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", rankingSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(rankingSheet, "A1", &xlsxHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range results {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			r.Rank,
			r.Filename,
			r.Score,
			r.Analysis.SemanticScore,
			r.Analysis.SkillScore,
			r.Analysis.ExperienceYears,
			strings.Join(r.Analysis.MatchedSkills, ", "),
			strings.Join(r.Analysis.MissingSkills, ", "),
		}
		if err := f.SetSheetRow(rankingSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := f.SetColWidth(rankingSheet, "B", "B", 32); err != nil {
		return err
	}
	if err := f.SetColWidth(rankingSheet, "G", "H", 48); err != nil {
		return err
	}
	if err := f.SetPanes(rankingSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	return f.Write(w)
}
