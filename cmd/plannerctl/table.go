package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/arnavshah/course-planner-api/pkg/models"
)

// writeTable prints rows as columns padded to display width, so CJK course
// names line up in a terminal.
func writeTable(w io.Writer, header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if n := runewidth.StringWidth(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	line := func(cells []string) {
		padded := make([]string, len(cells))
		for i, cell := range cells {
			padded[i] = runewidth.FillRight(cell, widths[i])
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(padded, " | "), " "))
	}
	line(header)
	sep := make([]string, len(widths))
	for i, n := range widths {
		sep[i] = strings.Repeat("-", n)
	}
	fmt.Fprintln(w, strings.Join(sep, "-+-"))
	for _, row := range rows {
		line(row)
	}
}

func writeSummary(w io.Writer, candidates []models.Candidate) {
	rows := make([][]string, 0, len(candidates))
	for rank, c := range candidates {
		names := make([]string, len(c.Sections))
		for i, s := range c.Sections {
			names[i] = s.Name + "/" + s.ClassID
		}
		rows = append(rows, []string{
			fmt.Sprint(rank + 1),
			fmt.Sprint(c.ConflictCount),
			fmt.Sprint(c.TotalPriority),
			fmt.Sprintf("%d (%d+%d)", c.TotalCredits, c.RequiredCredits, c.ElectiveCredits),
			strings.Join(names, ", "),
		})
	}
	writeTable(w, []string{"#", "Conflicts", "Priority", "Credits", "Sections"}, rows)
}

// writePartitions lists both partitions in the order the server returned them,
// at most top of each, and returns the listed candidates, conflict-free first.
func writePartitions(w io.Writer, free, withConflicts []models.Candidate, top int) []models.Candidate {
	var shown []models.Candidate
	for _, part := range []struct {
		title      string
		candidates []models.Candidate
	}{
		{"Conflict-free", free},
		{"With conflicts", withConflicts},
	} {
		list := part.candidates
		if len(list) > top {
			list = list[:top]
		}
		fmt.Fprintf(w, "%s (%d)\n", part.title, len(part.candidates))
		if len(list) > 0 {
			writeSummary(w, list)
		}
		fmt.Fprintln(w)
		shown = append(shown, list...)
	}
	return shown
}

func writeGrid(w io.Writer, grid models.GridResponse) {
	header := append([]string{""}, grid.Days...)
	rows := make([][]string, len(grid.Cells))
	for i, cells := range grid.Cells {
		rows[i] = append([]string{fmt.Sprint(grid.Periods[i])}, cells...)
	}
	writeTable(w, header, rows)
}
