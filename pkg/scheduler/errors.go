package scheduler

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyPool is returned when a generation request carries no sections
	ErrEmptyPool = errors.New("course pool is empty")
	// ErrNoRequiredCourses rejects pools without a single required section
	ErrNoRequiredCourses = errors.New("course pool has no required courses")
	// ErrMissingMustSelectCourse is matched by *MissingMustSelectError
	ErrMissingMustSelectCourse = errors.New("must-select course has no available section")
	// ErrEmptyGroup rejects a course group left without sections
	ErrEmptyGroup = errors.New("course group has no sections")
	// ErrEmptyResult is informational: enumeration finished without candidates.
	// It is returned together with a valid, empty result.
	ErrEmptyResult = errors.New("no timetable candidates were generated")
	// ErrInvalidBudget rejects negative budgets
	ErrInvalidBudget = errors.New("budget must not be negative")
	// ErrUnknownPolicy is returned by ParsePolicy
	ErrUnknownPolicy = errors.New("unknown ranking policy")
)

// MissingMustSelectError names the must-select course that lost all of its
// sections to exclusion.
type MissingMustSelectError struct {
	Name string
}

func (e *MissingMustSelectError) Error() string {
	return fmt.Sprintf("must-select course %q has no available section or is temporarily excluded", e.Name)
}

func (e *MissingMustSelectError) Is(target error) bool {
	return target == ErrMissingMustSelectCourse
}
