package scheduler

import (
	"context"
	"fmt"

	"github.com/arnavshah/course-planner-api/pkg/models"
)

// Tuple is one raw draw of the Cartesian product, numbered in enumeration order
type Tuple struct {
	Index    int
	Sections []models.CourseSection
}

// EnumerationStats describes how an enumeration pass ended
type EnumerationStats struct {
	Produced  int
	Truncated bool
}

// CheckMustSelect verifies that every must-select name still has a group
// after exclusion. Names are checked in alphabetical order so the reported
// course is stable.
func CheckMustSelect(groups []CourseGroup, mustSelect map[string]bool) error {
	present := make(map[string]bool, len(groups))
	for _, g := range groups {
		if len(g.Sections) > 0 {
			present[g.Name] = true
		}
	}
	for _, name := range (Pool{MustSelectNames: mustSelect}).SortedMustSelectNames() {
		if !present[name] {
			return &MissingMustSelectError{Name: name}
		}
	}
	return nil
}

// Enumerate walks the Cartesian product of the groups and hands each tuple to
// yield, stopping once budget tuples were produced.
//
// The product is walked like an odometer: the last group varies fastest and
// the first group slowest. Truncation is positional, so this order decides
// which tuples survive a budget cut. An empty group list produces nothing; a
// group without sections is an error.
func Enumerate(ctx context.Context, groups []CourseGroup, mustSelect map[string]bool, budget int, yield func(Tuple) error) (EnumerationStats, error) {
	var stats EnumerationStats
	if budget < 0 {
		return stats, ErrInvalidBudget
	}
	if err := CheckMustSelect(groups, mustSelect); err != nil {
		return stats, err
	}
	for _, g := range groups {
		if len(g.Sections) == 0 {
			return stats, fmt.Errorf("%w: %q", ErrEmptyGroup, g.Name)
		}
	}
	if len(groups) == 0 {
		return stats, nil
	}

	pos := make([]int, len(groups))
	for {
		if stats.Produced >= budget {
			stats.Truncated = true
			return stats, nil
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		sections := make([]models.CourseSection, len(groups))
		for i, g := range groups {
			sections[i] = g.Sections[pos[i]]
		}
		if err := assertMustSelect(sections, mustSelect); err != nil {
			return stats, err
		}
		if err := yield(Tuple{Index: stats.Produced, Sections: sections}); err != nil {
			return stats, err
		}
		stats.Produced++

		i := len(pos) - 1
		for ; i >= 0; i-- {
			pos[i]++
			if pos[i] < len(groups[i].Sections) {
				break
			}
			pos[i] = 0
		}
		if i < 0 {
			return stats, nil
		}
	}
}

// assertMustSelect holds by construction once CheckMustSelect passed: every
// tuple carries one section of every group. A failure means the groups were
// built wrongly, it never filters a tuple.
func assertMustSelect(sections []models.CourseSection, mustSelect map[string]bool) error {
	if len(mustSelect) == 0 {
		return nil
	}
	found := 0
	for _, c := range sections {
		if mustSelect[c.Name] {
			found++
		}
	}
	if found != len(mustSelect) {
		return fmt.Errorf("enumeration invariant broken: tuple holds %d of %d must-select courses", found, len(mustSelect))
	}
	return nil
}
