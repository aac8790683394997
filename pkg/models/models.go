package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Category tells whether a course is required or elective
type Category string

const (
	Required Category = "required"
	Elective Category = "elective"
)

// ParseCategory accepts the canonical names in any case and the legacy
// labels used by older pool files.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "required", "必修":
		return Required, nil
	case "elective", "選修", "选修":
		return Elective, nil
	}
	return "", fmt.Errorf("unknown course type %q", s)
}

// UnmarshalJSON normalises legacy and mixed-case labels.
func (c *Category) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCategory(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Weekdays on which classes meet, in display order
var Weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri"}

// PeriodsPerDay is the number of periods in a school day
const PeriodsPerDay = 10

// TimeSlot is one (day, period) meeting of a section
type TimeSlot struct {
	Day    string `json:"day" validate:"oneof=Mon Tue Wed Thu Fri"`
	Period int    `json:"period" validate:"min=1,max=10"`
}

func (ts TimeSlot) String() string {
	return fmt.Sprintf("%s %d", ts.Day, ts.Period)
}

// MarshalJSON writes the slot as a [day, period] pair.
func (ts TimeSlot) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{ts.Day, ts.Period})
}

// UnmarshalJSON reads a [day, period] pair. The object form is accepted too.
func (ts *TimeSlot) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		type plain TimeSlot
		var p plain
		if objErr := json.Unmarshal(data, &p); objErr != nil {
			return fmt.Errorf("time slot must be [day, period]: %w", err)
		}
		*ts = TimeSlot(p)
		return nil
	}
	if len(pair) != 2 {
		return fmt.Errorf("time slot must have 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &ts.Day); err != nil {
		return fmt.Errorf("time slot day: %w", err)
	}
	if err := json.Unmarshal(pair[1], &ts.Period); err != nil {
		return fmt.Errorf("time slot period: %w", err)
	}
	return nil
}

// CourseSection is one offering of a course. Sections sharing a Name are
// alternatives for the same course.
type CourseSection struct {
	Name               string     `json:"name" validate:"required"`
	Category           Category   `json:"type" validate:"oneof=required elective"`
	ClassID            string     `json:"class_id" validate:"required"`
	Credits            int        `json:"credits" validate:"min=1"`
	Priority           int        `json:"priority" validate:"min=1,max=5"`
	TimeSlots          []TimeSlot `json:"time_slots" validate:"required,min=1,dive"`
	MustSelect         bool       `json:"must_select"`
	TemporarilyExclude bool       `json:"temporarily_exclude"`
	Teacher            string     `json:"teacher"`
	Notes              string     `json:"notes"`
}

// Key identifies a section inside a pool
func (c CourseSection) Key() string {
	return c.Name + "/" + c.ClassID
}

// Label is the display text of the section in a grid cell
func (c CourseSection) Label() string {
	if c.Teacher != "" {
		return c.Name + "(" + c.Teacher + ")"
	}
	return c.Name
}

// Clone returns a copy that shares no slices with the receiver. Time slots
// repeated inside the section are dropped, keeping first occurrence order.
func (c CourseSection) Clone() CourseSection {
	out := c
	out.TimeSlots = make([]TimeSlot, 0, len(c.TimeSlots))
	seen := make(map[TimeSlot]bool, len(c.TimeSlots))
	for _, ts := range c.TimeSlots {
		if seen[ts] {
			continue
		}
		seen[ts] = true
		out.TimeSlots = append(out.TimeSlots, ts)
	}
	return out
}

// Conflict is a slot occupied by two or more chosen sections
type Conflict struct {
	Day      string          `json:"day"`
	Period   int             `json:"period"`
	Sections []CourseSection `json:"sections"`
}

// Candidate is one complete timetable: one section per distinct course name
type Candidate struct {
	Index           int             `json:"index"`
	Sections        []CourseSection `json:"sections"`
	TotalPriority   int             `json:"total_priority"`
	TotalCredits    int             `json:"total_credits"`
	RequiredCredits int             `json:"required_credits"`
	ElectiveCredits int             `json:"elective_credits"`
	Conflicts       []Conflict      `json:"conflicts"`
	ConflictCount   int             `json:"conflict_count"`
}

// GenerateInput is the body of a generation request. Courses is a pool in
// the pool file format, decoded with the same defaults.
type GenerateInput struct {
	Courses json.RawMessage `json:"courses"`
	Budget  *int            `json:"budget,omitempty"`
	Policy  string          `json:"policy,omitempty"`
}

// GenerateResponse carries the partitioned, ranked candidates
type GenerateResponse struct {
	ID            string      `json:"id"`
	Policy        string      `json:"policy"`
	Budget        int         `json:"budget"`
	Generated     int         `json:"generated"`
	Truncated     bool        `json:"truncated"`
	Message       string      `json:"message,omitempty"`
	ConflictFree  []Candidate `json:"conflict_free"`
	WithConflicts []Candidate `json:"with_conflicts"`
}

// RankInput re-orders previously generated candidates
type RankInput struct {
	Candidates []Candidate `json:"candidates"`
	Policy     string      `json:"policy"`
}

// GridResponse is a day×period rendering of one candidate
type GridResponse struct {
	Days    []string   `json:"days"`
	Periods []int      `json:"periods"`
	Cells   [][]string `json:"cells"`
}
