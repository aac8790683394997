package maintenance

import (
	"time"

	"github.com/jinzhu/now"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/arnavshah/course-planner-api/pkg/config"
	"github.com/arnavshah/course-planner-api/pkg/database"
)

// Cutoff is the start of the oldest day kept by a retention window
func Cutoff(at time.Time, retentionDays int) time.Time {
	return now.With(at).BeginningOfDay().AddDate(0, 0, -retentionDays)
}

// Prune deletes usage rows and generation records outside the retention window
func Prune(db *gorm.DB, retentionDays int, logger *zap.Logger) error {
	cutoff := Cutoff(time.Now(), retentionDays)
	usage, records, err := database.PruneBefore(db, cutoff)
	if err != nil {
		logger.Error("retention cleanup failed", zap.Error(err))
		return err
	}
	logger.Info("retention cleanup finished",
		zap.Time("cutoff", cutoff),
		zap.Int64("usage_rows", usage),
		zap.Int64("generation_records", records))
	return nil
}

// Start schedules the cleanup job and returns the running cron so the caller
// can stop it on shutdown.
func Start(db *gorm.DB, cfg config.MaintenanceConfig, logger *zap.Logger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(cfg.Schedule, func() {
		_ = Prune(db, cfg.RetentionDays, logger)
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	logger.Info("maintenance scheduler started",
		zap.String("schedule", cfg.Schedule),
		zap.Int("retention_days", cfg.RetentionDays))
	return c, nil
}
