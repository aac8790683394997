package maintenance

import (
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/arnavshah/course-planner-api/pkg/config"
	"github.com/arnavshah/course-planner-api/pkg/database"
)

func TestCutoff(t *testing.T) {
	at := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	got := Cutoff(at, 7)
	want := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestPrune(t *testing.T) {
	db, err := database.InitDB(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "prune.db")}, nil)
	if err != nil {
		t.Fatalf("InitDB returned error: %v", err)
	}

	old := time.Now().AddDate(0, 0, -40)
	db.Create(&database.APIUsage{KeyID: 1, Date: old.Format("2006-01-02"), RequestCount: 3})
	db.Create(&database.GenerationRecord{GenerationID: "old", KeyID: 1, CreatedAt: old})
	if err := database.RecordUsage(db, 1, 4, 10); err != nil {
		t.Fatalf("RecordUsage returned error: %v", err)
	}
	db.Create(&database.GenerationRecord{GenerationID: "new", KeyID: 1})

	if err := Prune(db, 30, zap.NewNop()); err != nil {
		t.Fatalf("Prune returned error: %v", err)
	}

	var usage []database.APIUsage
	db.Find(&usage)
	if len(usage) != 1 || usage[0].TotalCandidates != 10 {
		t.Errorf("Expected only today's usage row to remain, got %+v", usage)
	}
	var records []database.GenerationRecord
	db.Find(&records)
	if len(records) != 1 || records[0].GenerationID != "new" {
		t.Errorf("Expected only the recent generation record to remain, got %+v", records)
	}

	c, err := Start(db, config.MaintenanceConfig{Schedule: "0 3 * * *", RetentionDays: 30}, zap.NewNop())
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	c.Stop()

	if _, err := Start(db, config.MaintenanceConfig{Schedule: "not a schedule"}, zap.NewNop()); err == nil {
		t.Errorf("Expected an invalid schedule to be rejected")
	}
}
