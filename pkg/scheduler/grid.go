package scheduler

import (
	"strings"

	"github.com/arnavshah/course-planner-api/pkg/models"
)

// EmptyCell marks a free period in a grid
const EmptyCell = "-"

// Grid lays a candidate out as PeriodsPerDay rows by len(Weekdays) columns.
// Colliding sections share a cell, separated by commas. Slots outside the
// week are not shown.
func Grid(c models.Candidate) [][]string {
	col := make(map[string]int, len(models.Weekdays))
	for i, d := range models.Weekdays {
		col[d] = i
	}

	cells := make([][][]string, models.PeriodsPerDay)
	for i := range cells {
		cells[i] = make([][]string, len(models.Weekdays))
	}
	for _, sec := range c.Sections {
		for _, ts := range sec.TimeSlots {
			d, ok := col[ts.Day]
			if !ok || ts.Period < 1 || ts.Period > models.PeriodsPerDay {
				continue
			}
			cells[ts.Period-1][d] = append(cells[ts.Period-1][d], sec.Label())
		}
	}

	grid := make([][]string, models.PeriodsPerDay)
	for p := range cells {
		grid[p] = make([]string, len(models.Weekdays))
		for d, labels := range cells[p] {
			if len(labels) == 0 {
				grid[p][d] = EmptyCell
				continue
			}
			grid[p][d] = strings.Join(labels, ", ")
		}
	}
	return grid
}

// GridResponse wraps Grid with its axis labels
func GridResponse(c models.Candidate) models.GridResponse {
	periods := make([]int, models.PeriodsPerDay)
	for i := range periods {
		periods[i] = i + 1
	}
	return models.GridResponse{
		Days:    models.Weekdays,
		Periods: periods,
		Cells:   Grid(c),
	}
}
