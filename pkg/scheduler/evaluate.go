package scheduler

import "github.com/arnavshah/course-planner-api/pkg/models"

// Evaluate scores one tuple: slot collisions, total priority and credits.
// It is pure and safe to call from several goroutines.
func Evaluate(index int, sections []models.CourseSection) models.Candidate {
	c := models.Candidate{
		Index:    index,
		Sections: sections,
	}

	var order []models.TimeSlot
	occupants := make(map[models.TimeSlot][]models.CourseSection)
	for _, sec := range sections {
		for _, ts := range sec.TimeSlots {
			if _, ok := occupants[ts]; !ok {
				order = append(order, ts)
			}
			occupants[ts] = append(occupants[ts], sec)
		}

		c.TotalPriority += sec.Priority
		c.TotalCredits += sec.Credits
		switch sec.Category {
		case models.Required:
			c.RequiredCredits += sec.Credits
		case models.Elective:
			c.ElectiveCredits += sec.Credits
		}
	}

	for _, ts := range order {
		list := occupants[ts]
		if len(list) < 2 {
			continue
		}
		c.Conflicts = append(c.Conflicts, models.Conflict{
			Day:      ts.Day,
			Period:   ts.Period,
			Sections: list,
		})
		// a 3-way overlap counts as 2 conflicts
		c.ConflictCount += len(list) - 1
	}

	return c
}
