package scheduler

import (
	"sort"

	"github.com/arnavshah/course-planner-api/pkg/models"
)

// CourseGroup holds the interchangeable sections of one course name
type CourseGroup struct {
	Name     string
	Sections []models.CourseSection
}

// Pool is the per-run view of a course pool
type Pool struct {
	Available       []models.CourseSection
	MustSelectNames map[string]bool
	Groups          []CourseGroup
}

// BuildPool derives the available sections, the must-select names and the
// course groups from a raw pool. The input is not modified; every section
// in the result is a deduplicated copy.
func BuildPool(sections []models.CourseSection) Pool {
	p := Pool{MustSelectNames: make(map[string]bool)}

	// Computed on the full pool: exclusion does not unmark a course.
	for _, c := range sections {
		if c.Category == models.Required && c.MustSelect {
			p.MustSelectNames[c.Name] = true
		}
	}

	index := make(map[string]int)
	for _, c := range sections {
		if c.TemporarilyExclude {
			continue
		}
		c = c.Clone()
		p.Available = append(p.Available, c)

		i, ok := index[c.Name]
		if !ok {
			i = len(p.Groups)
			index[c.Name] = i
			p.Groups = append(p.Groups, CourseGroup{Name: c.Name})
		}
		p.Groups[i].Sections = append(p.Groups[i].Sections, c)
	}

	for _, g := range p.Groups {
		sort.SliceStable(g.Sections, func(i, j int) bool {
			a, b := g.Sections[i], g.Sections[j]
			if a.MustSelect != b.MustSelect {
				return a.MustSelect
			}
			return a.Priority > b.Priority
		})
	}

	return p
}

// Group returns the course group for a name
func (p Pool) Group(name string) (CourseGroup, bool) {
	for _, g := range p.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return CourseGroup{}, false
}

// SortedMustSelectNames lists the must-select names alphabetically
func (p Pool) SortedMustSelectNames() []string {
	names := make([]string, 0, len(p.MustSelectNames))
	for name := range p.MustSelectNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasRequired reports whether any section of the raw pool is required
func HasRequired(sections []models.CourseSection) bool {
	for _, c := range sections {
		if c.Category == models.Required {
			return true
		}
	}
	return false
}
