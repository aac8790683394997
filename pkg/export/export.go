package export

import (
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/arnavshah/course-planner-api/pkg/models"
	"github.com/arnavshah/course-planner-api/pkg/scheduler"
)

// SummarySheet is the name of the overview sheet in an exported workbook
const SummarySheet = "Summary"

// SummaryRow is one candidate in the overview
type SummaryRow struct {
	Rank            int    `csv:"rank"`
	Partition       string `csv:"partition"`
	ConflictCount   int    `csv:"conflict_count"`
	TotalPriority   int    `csv:"total_priority"`
	TotalCredits    int    `csv:"total_credits"`
	RequiredCredits int    `csv:"required_credits"`
	ElectiveCredits int    `csv:"elective_credits"`
	Sections        string `csv:"sections"`
}

// Summarize turns ranked candidates into overview rows
func Summarize(candidates []models.Candidate) []*SummaryRow {
	rows := make([]*SummaryRow, 0, len(candidates))
	for i, c := range candidates {
		partition := "conflict_free"
		if c.ConflictCount > 0 {
			partition = "with_conflicts"
		}
		names := make([]string, len(c.Sections))
		for j, s := range c.Sections {
			names[j] = s.Name + " [" + s.ClassID + "]"
		}
		rows = append(rows, &SummaryRow{
			Rank:            i + 1,
			Partition:       partition,
			ConflictCount:   c.ConflictCount,
			TotalPriority:   c.TotalPriority,
			TotalCredits:    c.TotalCredits,
			RequiredCredits: c.RequiredCredits,
			ElectiveCredits: c.ElectiveCredits,
			Sections:        strings.Join(names, "; "),
		})
	}
	return rows
}

// SummaryCSV renders the overview as CSV
func SummaryCSV(candidates []models.Candidate) ([]byte, error) {
	rows := Summarize(candidates)
	data, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("encode summary: %w", err)
	}
	return data, nil
}

// PlanSheet names the grid sheet of the n-th candidate (1-based)
func PlanSheet(n int) string {
	return fmt.Sprintf("Plan %d", n)
}

// Workbook builds a workbook with an overview sheet and one grid sheet for
// each of the first limit candidates. Colliding cells are highlighted.
func Workbook(candidates []models.Candidate, limit int) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	conflictStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#FECACA"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", WrapText: true},
	})
	if err != nil {
		return nil, err
	}

	headers := []interface{}{"Rank", "Partition", "Conflicts", "Total priority", "Total credits", "Required credits", "Elective credits", "Sections"}
	if err := f.SetSheetRow(SummarySheet, "A1", &headers); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(SummarySheet, 1, 1, headerStyle); err != nil {
		return nil, err
	}
	for i, row := range Summarize(candidates) {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []interface{}{row.Rank, row.Partition, row.ConflictCount, row.TotalPriority,
			row.TotalCredits, row.RequiredCredits, row.ElectiveCredits, row.Sections}
		if err := f.SetSheetRow(SummarySheet, cell, &values); err != nil {
			return nil, err
		}
	}

	if limit > len(candidates) {
		limit = len(candidates)
	}
	for i := 0; i < limit; i++ {
		if err := writePlan(f, PlanSheet(i+1), candidates[i], headerStyle, conflictStyle); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func writePlan(f *excelize.File, sheet string, c models.Candidate, headerStyle, conflictStyle int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	header := []interface{}{"Period"}
	for _, d := range models.Weekdays {
		header = append(header, d)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return err
	}

	collisions := make(map[models.TimeSlot]bool, len(c.Conflicts))
	for _, cf := range c.Conflicts {
		collisions[models.TimeSlot{Day: cf.Day, Period: cf.Period}] = true
	}

	for p, row := range scheduler.Grid(c) {
		values := []interface{}{p + 1}
		for _, cell := range row {
			values = append(values, cell)
		}
		start, _ := excelize.CoordinatesToCellName(1, p+2)
		if err := f.SetSheetRow(sheet, start, &values); err != nil {
			return err
		}
		for d, day := range models.Weekdays {
			if !collisions[models.TimeSlot{Day: day, Period: p + 1}] {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(d+2, p+2)
			if err := f.SetCellStyle(sheet, cell, cell, conflictStyle); err != nil {
				return err
			}
		}
	}
	return f.SetColWidth(sheet, "B", "F", 24)
}
