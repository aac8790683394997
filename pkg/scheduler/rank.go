package scheduler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arnavshah/course-planner-api/pkg/models"
)

// Policy selects the two-key order used to rank candidates
type Policy string

const (
	// ConflictsFirst orders by conflict count ascending, then total priority descending
	ConflictsFirst Policy = "conflicts_first"
	// PriorityFirst orders by total priority descending, then conflict count ascending
	PriorityFirst Policy = "priority_first"
)

// ParsePolicy maps a request value to a Policy. An empty value selects
// ConflictsFirst.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "conflicts_first", "conflicts", "p1":
		return ConflictsFirst, nil
	case "priority_first", "priority", "p2":
		return PriorityFirst, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// Less reports whether a ranks before b under the policy
func (p Policy) Less(a, b models.Candidate) bool {
	if p == PriorityFirst {
		if a.TotalPriority != b.TotalPriority {
			return a.TotalPriority > b.TotalPriority
		}
		return a.ConflictCount < b.ConflictCount
	}
	if a.ConflictCount != b.ConflictCount {
		return a.ConflictCount < b.ConflictCount
	}
	return a.TotalPriority > b.TotalPriority
}

// Rank returns a copy of the candidates ordered by the policy's two keys.
// The sort is stable, so ties keep their input order and ranking the same
// set twice yields the same order.
func Rank(candidates []models.Candidate, p Policy) []models.Candidate {
	out := make([]models.Candidate, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool {
		return p.Less(out[i], out[j])
	})
	return out
}

// generationOrder is the order of freshly generated candidates: grouped by
// conflict count, then total priority and total credits descending, then
// re-sorted stably by the policy. Total credits only survive as a tie
// breaker here; Rank does not use them.
func generationOrder(candidates []models.Candidate, p Policy) []models.Candidate {
	out := make([]models.Candidate, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ConflictCount != b.ConflictCount {
			return a.ConflictCount < b.ConflictCount
		}
		if a.TotalPriority != b.TotalPriority {
			return a.TotalPriority > b.TotalPriority
		}
		return a.TotalCredits > b.TotalCredits
	})
	return Rank(out, p)
}

// Partition splits ranked candidates into conflict-free ones and ones with
// conflicts, keeping their relative order.
func Partition(candidates []models.Candidate) (conflictFree, withConflicts []models.Candidate) {
	conflictFree = []models.Candidate{}
	withConflicts = []models.Candidate{}
	for _, c := range candidates {
		if c.ConflictCount == 0 {
			conflictFree = append(conflictFree, c)
		} else {
			withConflicts = append(withConflicts, c)
		}
	}
	return conflictFree, withConflicts
}
