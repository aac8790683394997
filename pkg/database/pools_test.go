package database

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/arnavshah/course-planner-api/pkg/config"
	"github.com/arnavshah/course-planner-api/pkg/models"
	"github.com/arnavshah/course-planner-api/pkg/poolio"
)

func testDB(t *testing.T) *PoolStore {
	t.Helper()
	db, err := InitDB(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.db")}, nil)
	if err != nil {
		t.Fatalf("InitDB returned error: %v", err)
	}
	return NewPoolStore(db)
}

func course(name, classID string) models.CourseSection {
	return models.CourseSection{
		Name:      name,
		Category:  models.Required,
		ClassID:   classID,
		Credits:   3,
		Priority:  3,
		TimeSlots: []models.TimeSlot{{Day: "Mon", Period: 1}},
	}
}

func TestPoolStore(t *testing.T) {
	store := testDB(t)

	pool, err := store.Create(1, "fall", []models.CourseSection{course("A", "1"), course("B", "1")})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if pool.SectionCount != 2 {
		t.Errorf("Expected 2 sections, got %d", pool.SectionCount)
	}

	if _, err := store.Get(2, pool.ID); !errors.Is(err, ErrPoolNotFound) {
		t.Errorf("Expected another key not to see the pool, got %v", err)
	}

	updated, err := store.Mutate(1, pool.ID, func(s []models.CourseSection) ([]models.CourseSection, error) {
		return append(s, course("C", "2")), nil
	})
	if err != nil {
		t.Fatalf("Mutate returned error: %v", err)
	}
	if updated.SectionCount != 3 {
		t.Errorf("Expected 3 sections after adding one, got %d", updated.SectionCount)
	}

	// a duplicate (name, class_id) is rejected and the stored pool is unchanged
	_, err = store.Mutate(1, pool.ID, func(s []models.CourseSection) ([]models.CourseSection, error) {
		return append(s, course("A", "1")), nil
	})
	if !errors.Is(err, poolio.ErrParse) {
		t.Errorf("Expected a parse error for a duplicate section, got %v", err)
	}

	reloaded, err := store.Get(1, pool.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	sections, err := reloaded.DecodeSections()
	if err != nil {
		t.Fatalf("DecodeSections returned error: %v", err)
	}
	if len(sections) != 3 || sections[2].Name != "C" {
		t.Errorf("Unexpected stored sections: %+v", sections)
	}

	pools, err := store.List(1)
	if err != nil || len(pools) != 1 || pools[0].Name != "fall" {
		t.Errorf("Unexpected pool list: %+v (%v)", pools, err)
	}

	if err := store.Delete(1, pool.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := store.Delete(1, pool.ID); !errors.Is(err, ErrPoolNotFound) {
		t.Errorf("Expected ErrPoolNotFound on second delete, got %v", err)
	}
}

func TestRecordUsage(t *testing.T) {
	store := testDB(t)

	for i := 0; i < 3; i++ {
		if err := RecordUsage(store.DB, 7, 5, 20); err != nil {
			t.Fatalf("RecordUsage returned error: %v", err)
		}
	}

	usage, err := UsageHistory(store.DB, 7)
	if err != nil {
		t.Fatalf("UsageHistory returned error: %v", err)
	}
	if len(usage) != 1 {
		t.Fatalf("Expected one row for today, got %d", len(usage))
	}
	if usage[0].RequestCount != 3 || usage[0].TotalSections != 15 || usage[0].TotalCandidates != 60 {
		t.Errorf("Unexpected usage totals: %+v", usage[0])
	}
}
