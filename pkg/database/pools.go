package database

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/arnavshah/course-planner-api/pkg/models"
	"github.com/arnavshah/course-planner-api/pkg/poolio"
)

// ErrPoolNotFound is returned when a pool does not exist for the key
var ErrPoolNotFound = errors.New("course pool not found")

// PoolStore persists course pools. Mutations of one pool are serialised so
// an edit never interleaves with another edit of the same pool; generation
// works on a decoded snapshot and never sees a half-applied change.
type PoolStore struct {
	DB    *gorm.DB
	locks sync.Map
}

// NewPoolStore creates a pool store on top of db
func NewPoolStore(db *gorm.DB) *PoolStore {
	return &PoolStore{DB: db}
}

func (s *PoolStore) lock(id uint) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// DecodeSections decodes the stored pool
func (p *SavedPool) DecodeSections() ([]models.CourseSection, error) {
	if len(p.Sections) == 0 {
		return []models.CourseSection{}, nil
	}
	return poolio.LoadJSON(bytes.NewReader(p.Sections))
}

// Create validates and stores a new pool
func (s *PoolStore) Create(keyID uint, name string, sections []models.CourseSection) (*SavedPool, error) {
	data, err := encode(sections)
	if err != nil {
		return nil, err
	}
	pool := &SavedPool{
		KeyID:        keyID,
		Name:         name,
		Sections:     data,
		SectionCount: len(sections),
	}
	if err := s.DB.Create(pool).Error; err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	return pool, nil
}

// List returns the pools of a key without their sections
func (s *PoolStore) List(keyID uint) ([]SavedPool, error) {
	var pools []SavedPool
	err := s.DB.Omit("sections").Where("key_id = ?", keyID).Order("id").Find(&pools).Error
	return pools, err
}

// Get loads one pool of a key
func (s *PoolStore) Get(keyID, id uint) (*SavedPool, error) {
	var pool SavedPool
	err := s.DB.Where("id = ? AND key_id = ?", id, keyID).First(&pool).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPoolNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pool, nil
}

// Mutate applies fn to the stored sections and saves the outcome. When fn
// or validation fails the stored pool is left as it was.
func (s *PoolStore) Mutate(keyID, id uint, fn func([]models.CourseSection) ([]models.CourseSection, error)) (*SavedPool, error) {
	unlock := s.lock(id)
	defer unlock()

	pool, err := s.Get(keyID, id)
	if err != nil {
		return nil, err
	}
	sections, err := pool.DecodeSections()
	if err != nil {
		return nil, err
	}
	updated, err := fn(sections)
	if err != nil {
		return nil, err
	}
	data, err := encode(updated)
	if err != nil {
		return nil, err
	}

	err = s.DB.Model(pool).Updates(map[string]interface{}{
		"sections":      data,
		"section_count": len(updated),
	}).Error
	if err != nil {
		return nil, fmt.Errorf("update pool: %w", err)
	}
	pool.Sections = data
	pool.SectionCount = len(updated)
	return pool, nil
}

// Delete removes a pool of a key
func (s *PoolStore) Delete(keyID, id uint) error {
	unlock := s.lock(id)
	defer unlock()

	res := s.DB.Where("id = ? AND key_id = ?", id, keyID).Delete(&SavedPool{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPoolNotFound
	}
	return nil
}

func encode(sections []models.CourseSection) (datatypes.JSON, error) {
	if err := poolio.ValidatePool(sections); err != nil {
		return nil, err
	}
	data, err := poolio.SaveJSON(sections)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}
