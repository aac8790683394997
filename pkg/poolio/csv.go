package poolio

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/arnavshah/course-planner-api/pkg/models"
)

// csvRecord is one row of the tabular pool format. Numbers and flags are
// read as text so a bad cell can be reported with its column.
type csvRecord struct {
	Name               string `csv:"name"`
	Type               string `csv:"type"`
	ClassID            string `csv:"class_id"`
	Credits            string `csv:"credits"`
	Priority           string `csv:"priority"`
	TimeSlots          string `csv:"time_slots"`
	MustSelect         string `csv:"must_select"`
	TemporarilyExclude string `csv:"temporarily_exclude"`
	Teacher            string `csv:"teacher"`
	Notes              string `csv:"notes"`
}

// ParseTimeSlots reads the "Mon 1; Tue 2" notation
func ParseTimeSlots(s string) ([]models.TimeSlot, error) {
	var slots []models.TimeSlot
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Fields(part)
		if len(fields) != 2 {
			return nil, fmt.Errorf("time slot %q must be \"<day> <period>\"", part)
		}
		period, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("period of %q must be a number", part)
		}
		slots = append(slots, models.TimeSlot{Day: fields[0], Period: period})
	}
	return slots, nil
}

// FormatTimeSlots writes slots in the "Mon 1; Tue 2" notation
func FormatTimeSlots(slots []models.TimeSlot) string {
	parts := make([]string, len(slots))
	for i, ts := range slots {
		parts[i] = ts.String()
	}
	return strings.Join(parts, "; ")
}

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "false", "0", "no", "n", "否":
		return false, nil
	case "true", "1", "yes", "y", "是":
		return true, nil
	}
	return false, fmt.Errorf("%q is not a yes/no value", s)
}

// LoadCSV reads a pool from a CSV file with a header row
func LoadCSV(r io.Reader) ([]models.CourseSection, error) {
	var rows []*csvRecord
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, &ParseError{Index: -1, Err: err}
	}

	sections := make([]models.CourseSection, 0, len(rows))
	for i, row := range rows {
		c, err := row.section()
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Index = i
			}
			return nil, err
		}
		sections = append(sections, c)
	}

	if err := ValidatePool(sections); err != nil {
		return nil, err
	}
	return sections, nil
}

func (row *csvRecord) section() (models.CourseSection, error) {
	fail := func(field string, err error) (models.CourseSection, error) {
		return models.CourseSection{}, &ParseError{Field: field, Err: err}
	}
	for _, f := range []struct{ name, value string }{
		{"name", row.Name},
		{"type", row.Type},
		{"class_id", row.ClassID},
		{"credits", row.Credits},
		{"time_slots", row.TimeSlots},
	} {
		if strings.TrimSpace(f.value) == "" {
			return fail(f.name, errors.New("field is required"))
		}
	}

	cat, err := models.ParseCategory(row.Type)
	if err != nil {
		return fail("type", err)
	}
	credits, err := strconv.Atoi(strings.TrimSpace(row.Credits))
	if err != nil {
		return fail("credits", err)
	}
	priority := DefaultPriority
	if strings.TrimSpace(row.Priority) != "" {
		if priority, err = strconv.Atoi(strings.TrimSpace(row.Priority)); err != nil {
			return fail("priority", err)
		}
	}
	slots, err := ParseTimeSlots(row.TimeSlots)
	if err != nil {
		return fail("time_slots", err)
	}
	must, err := parseFlag(row.MustSelect)
	if err != nil {
		return fail("must_select", err)
	}
	excluded, err := parseFlag(row.TemporarilyExclude)
	if err != nil {
		return fail("temporarily_exclude", err)
	}

	c := models.CourseSection{
		Name:               strings.TrimSpace(row.Name),
		Category:           cat,
		ClassID:            strings.TrimSpace(row.ClassID),
		Credits:            credits,
		Priority:           priority,
		TimeSlots:          slots,
		MustSelect:         must,
		TemporarilyExclude: excluded,
		Teacher:            row.Teacher,
		Notes:              row.Notes,
	}
	return c.Clone(), nil
}

// SaveCSV writes a pool in the tabular format read by LoadCSV
func SaveCSV(sections []models.CourseSection) ([]byte, error) {
	rows := make([]*csvRecord, 0, len(sections))
	for _, c := range sections {
		rows = append(rows, &csvRecord{
			Name:               c.Name,
			Type:               string(c.Category),
			ClassID:            c.ClassID,
			Credits:            strconv.Itoa(c.Credits),
			Priority:           strconv.Itoa(c.Priority),
			TimeSlots:          FormatTimeSlots(c.TimeSlots),
			MustSelect:         strconv.FormatBool(c.MustSelect),
			TemporarilyExclude: strconv.FormatBool(c.TemporarilyExclude),
			Teacher:            c.Teacher,
			Notes:              c.Notes,
		})
	}
	data, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("encode course pool: %w", err)
	}
	return data, nil
}

// Load picks the decoder from a file name, defaulting to JSON
func Load(filename string, r io.Reader) ([]models.CourseSection, error) {
	if strings.HasSuffix(strings.ToLower(filename), ".csv") {
		return LoadCSV(r)
	}
	return LoadJSON(r)
}
