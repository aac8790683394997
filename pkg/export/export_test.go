package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/arnavshah/course-planner-api/pkg/models"
	"github.com/arnavshah/course-planner-api/pkg/scheduler"
)

func sampleCandidates() []models.Candidate {
	a := models.CourseSection{Name: "A", ClassID: "1", Category: models.Required, Credits: 3, Priority: 5,
		TimeSlots: []models.TimeSlot{{Day: "Mon", Period: 1}}}
	b := models.CourseSection{Name: "B", ClassID: "2", Category: models.Elective, Credits: 2, Priority: 3,
		TimeSlots: []models.TimeSlot{{Day: "Mon", Period: 1}, {Day: "Wed", Period: 4}}}
	c := models.CourseSection{Name: "C", ClassID: "1", Category: models.Elective, Credits: 1, Priority: 1,
		TimeSlots: []models.TimeSlot{{Day: "Tue", Period: 2}}}
	return []models.Candidate{
		scheduler.Evaluate(0, []models.CourseSection{a, c}),
		scheduler.Evaluate(1, []models.CourseSection{a, b}),
	}
}

func TestSummaryCSV(t *testing.T) {
	data, err := SummaryCSV(sampleCandidates())
	if err != nil {
		t.Fatalf("SummaryCSV returned error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header and 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "rank,partition,conflict_count") {
		t.Errorf("Unexpected header: %s", lines[0])
	}
	if !strings.HasPrefix(lines[2], "2,with_conflicts,1,8,5,3,2") {
		t.Errorf("Unexpected second row: %s", lines[2])
	}
}

func TestWorkbook(t *testing.T) {
	f, err := Workbook(sampleCandidates(), 5)
	if err != nil {
		t.Fatalf("Workbook returned error: %v", err)
	}

	sheets := f.GetSheetList()
	if len(sheets) != 3 || sheets[0] != SummarySheet || sheets[2] != PlanSheet(2) {
		t.Fatalf("Unexpected sheets: %v", sheets)
	}

	v, _ := f.GetCellValue(PlanSheet(2), "B2")
	if v != "A, B" {
		t.Errorf("Expected Mon 1 of plan 2 to read \"A, B\", got %q", v)
	}
	v, _ = f.GetCellValue(PlanSheet(1), "C3")
	if v != "C" {
		t.Errorf("Expected Tue 2 of plan 1 to read C, got %q", v)
	}
	v, _ = f.GetCellValue(SummarySheet, "C3")
	if v != "1" {
		t.Errorf("Expected conflict count 1 in the summary, got %q", v)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	reopened, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("Reopening workbook failed: %v", err)
	}
	if len(reopened.GetSheetList()) != 3 {
		t.Errorf("Expected 3 sheets after reopening")
	}

	limited, err := Workbook(sampleCandidates(), 1)
	if err != nil {
		t.Fatalf("Workbook returned error: %v", err)
	}
	if len(limited.GetSheetList()) != 2 {
		t.Errorf("Expected summary plus one plan, got %v", limited.GetSheetList())
	}
}
