package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arnavshah/course-planner-api/pkg/config"
)

// APIKey represents the api_keys table
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Key        string     `gorm:"unique;not null" json:"-"`
	KeyPreview string     `json:"key_preview"`
	Name       string     `gorm:"not null" json:"name"`
	RateLimit  int        `gorm:"default:10000" json:"rate_limit"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used"`
}

// APIUsage represents the api_usage table, one row per key and day
type APIUsage struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	KeyID           uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date            string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount    int    `gorm:"default:0" json:"request_count"`
	TotalSections   int    `gorm:"default:0" json:"total_sections"`
	TotalCandidates int    `gorm:"default:0" json:"total_candidates"`
}

// MasterUser represents the master_users table
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// SavedPool is a course pool stored for an API key. Sections holds the
// pool in the same JSON form as a pool file.
type SavedPool struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	KeyID        uint           `gorm:"index;not null" json:"key_id"`
	Name         string         `gorm:"not null" json:"name"`
	Sections     datatypes.JSON `json:"sections"`
	SectionCount int            `json:"section_count"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// GenerationRecord logs one generation request
type GenerationRecord struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	GenerationID string    `gorm:"uniqueIndex;not null" json:"generation_id"`
	KeyID        uint      `gorm:"index" json:"key_id"`
	PoolID       *uint     `json:"pool_id,omitempty"`
	Sections     int       `json:"sections"`
	Budget       int       `json:"budget"`
	Policy       string    `json:"policy"`
	Generated    int       `json:"generated"`
	ConflictFree int       `json:"conflict_free"`
	Truncated    bool      `json:"truncated"`
	Outcome      string    `json:"outcome"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

// InitDB opens postgres when a URL is configured and sqlite otherwise, then
// migrates the schema.
func InitDB(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	if cfg.URL != "" {
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  cfg.URL,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	} else {
		path := cfg.Path
		if path == "" {
			path = "planner.db"
		}
		db, err = gorm.Open(sqlite.Open(path), &gorm.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := db.AutoMigrate(&APIKey{}, &APIUsage{}, &MasterUser{}, &SavedPool{}, &GenerationRecord{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	if logger != nil {
		logger.Info("database ready", zap.String("dialect", db.Dialector.Name()))
	}
	return db, nil
}

// RecordUsage adds one request to today's usage row using a single upsert
// (supported by both postgres and sqlite).
func RecordUsage(db *gorm.DB, keyID uint, sections, candidates int) error {
	today := time.Now().Format("2006-01-02")
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count":    gorm.Expr("request_count + ?", 1),
			"total_sections":   gorm.Expr("total_sections + ?", sections),
			"total_candidates": gorm.Expr("total_candidates + ?", candidates),
		}),
	}).Create(&APIUsage{
		KeyID:           keyID,
		Date:            today,
		RequestCount:    1,
		TotalSections:   sections,
		TotalCandidates: candidates,
	}).Error
}

// UsageHistory returns the last 30 usage rows of a key, newest first
func UsageHistory(db *gorm.DB, keyID uint) ([]APIUsage, error) {
	var usage []APIUsage
	err := db.Where("key_id = ?", keyID).Order("date desc").Limit(30).Find(&usage).Error
	return usage, err
}

// PruneBefore deletes usage rows and generation records older than cutoff
func PruneBefore(db *gorm.DB, cutoff time.Time) (usage, records int64, err error) {
	res := db.Where("date < ?", cutoff.Format("2006-01-02")).Delete(&APIUsage{})
	if res.Error != nil {
		return 0, 0, res.Error
	}
	usage = res.RowsAffected

	res = db.Where("created_at < ?", cutoff).Delete(&GenerationRecord{})
	if res.Error != nil {
		return usage, 0, res.Error
	}
	return usage, res.RowsAffected, nil
}
