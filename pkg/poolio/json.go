package poolio

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/arnavshah/course-planner-api/pkg/models"
)

// DefaultPriority applies when a record carries no priority
const DefaultPriority = 3

type jsonRecord struct {
	Name               *string            `json:"name"`
	Type               *string            `json:"type"`
	ClassID            *string            `json:"class_id"`
	Credits            *int               `json:"credits"`
	Priority           *int               `json:"priority"`
	TimeSlots          *[]models.TimeSlot `json:"time_slots"`
	MustSelect         bool               `json:"must_select"`
	TemporarilyExclude bool               `json:"temporarily_exclude"`
	Teacher            string             `json:"teacher"`
	Notes              string             `json:"notes"`
}

// LoadJSON reads a pool saved by SaveJSON. Nothing is returned unless every
// record is well formed.
func LoadJSON(r io.Reader) ([]models.CourseSection, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, &ParseError{Index: -1, Err: err}
	}

	sections := make([]models.CourseSection, 0, len(raw))
	for i, msg := range raw {
		var rec jsonRecord
		if err := json.Unmarshal(msg, &rec); err != nil {
			field := ""
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				field = typeErr.Field
			}
			return nil, &ParseError{Index: i, Field: field, Err: err}
		}
		c, err := rec.section()
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

func (rec jsonRecord) section() (models.CourseSection, error) {
	missing := func(field string) error {
		return &ParseError{Field: field, Err: errors.New("field is required")}
	}
	switch {
	case rec.Name == nil:
		return models.CourseSection{}, missing("name")
	case rec.Type == nil:
		return models.CourseSection{}, missing("type")
	case rec.ClassID == nil:
		return models.CourseSection{}, missing("class_id")
	case rec.Credits == nil:
		return models.CourseSection{}, missing("credits")
	case rec.TimeSlots == nil:
		return models.CourseSection{}, missing("time_slots")
	}

	cat, err := models.ParseCategory(*rec.Type)
	if err != nil {
		return models.CourseSection{}, &ParseError{Field: "type", Err: err}
	}
	priority := DefaultPriority
	if rec.Priority != nil {
		priority = *rec.Priority
	}

	c := models.CourseSection{
		Name:               *rec.Name,
		Category:           cat,
		ClassID:            *rec.ClassID,
		Credits:            *rec.Credits,
		Priority:           priority,
		TimeSlots:          *rec.TimeSlots,
		MustSelect:         rec.MustSelect,
		TemporarilyExclude: rec.TemporarilyExclude,
		Teacher:            rec.Teacher,
		Notes:              rec.Notes,
	}
	return c.Clone(), nil
}

// SaveJSON serialises a pool as an indented JSON list
func SaveJSON(sections []models.CourseSection) ([]byte, error) {
	if sections == nil {
		sections = []models.CourseSection{}
	}
	data, err := json.MarshalIndent(sections, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode course pool: %w", err)
	}
	return data, nil
}
