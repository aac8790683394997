package scheduler

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/arnavshah/course-planner-api/pkg/models"
)

// DefaultBudget is the enumeration budget used when a request sets none
const DefaultBudget = 1000

// Scheduler generates timetable candidates from a course pool
type Scheduler struct {
	Workers int
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewScheduler creates a new scheduler instance. Zero values fall back to
// one worker per CPU, no timeout and a no-op logger.
func NewScheduler(workers int, timeout time.Duration, logger *zap.Logger) *Scheduler {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		Workers: workers,
		Timeout: timeout,
		Logger:  logger,
	}
}

// GenerationRequest is one self-contained generation call
type GenerationRequest struct {
	Pool   []models.CourseSection
	Budget int
	Policy Policy
}

// GenerationResult holds the ranked candidates of one request
type GenerationResult struct {
	ID            string
	Policy        Policy
	Budget        int
	Generated     int
	Truncated     bool
	ConflictFree  []models.Candidate
	WithConflicts []models.Candidate
}

// All returns every candidate, conflict-free ones first
func (r *GenerationResult) All() []models.Candidate {
	out := make([]models.Candidate, 0, len(r.ConflictFree)+len(r.WithConflicts))
	out = append(out, r.ConflictFree...)
	return append(out, r.WithConflicts...)
}

// Response converts the result to its wire form
func (r *GenerationResult) Response() models.GenerateResponse {
	return models.GenerateResponse{
		ID:            r.ID,
		Policy:        string(r.Policy),
		Budget:        r.Budget,
		Generated:     r.Generated,
		Truncated:     r.Truncated,
		ConflictFree:  r.ConflictFree,
		WithConflicts: r.WithConflicts,
	}
}

// Generate validates the pool, enumerates up to Budget candidates, scores
// them on the worker pool and returns them ranked and partitioned.
//
// When nothing was generated the returned result is empty but valid and the
// error is ErrEmptyResult. Any other error comes with a nil result.
func (s *Scheduler) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	if len(req.Pool) == 0 {
		return nil, ErrEmptyPool
	}
	if !HasRequired(req.Pool) {
		return nil, ErrNoRequiredCourses
	}
	if req.Budget < 0 {
		return nil, ErrInvalidBudget
	}
	policy, err := ParsePolicy(string(req.Policy))
	if err != nil {
		return nil, err
	}

	pool := BuildPool(req.Pool)
	if err := CheckMustSelect(pool.Groups, pool.MustSelectNames); err != nil {
		return nil, err
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	started := time.Now()
	candidates, stats, err := s.run(ctx, pool, req.Budget)
	if err != nil {
		return nil, err
	}

	ordered := generationOrder(candidates, policy)
	result := &GenerationResult{
		ID:        uuid.NewString(),
		Policy:    policy,
		Budget:    req.Budget,
		Generated: stats.Produced,
		Truncated: stats.Truncated,
	}
	result.ConflictFree, result.WithConflicts = Partition(ordered)

	if stats.Truncated {
		s.Logger.Warn("candidate budget reached, remaining combinations skipped",
			zap.String("generation_id", result.ID),
			zap.Int("budget", req.Budget))
	}
	s.Logger.Info("timetable candidates generated",
		zap.String("generation_id", result.ID),
		zap.Int("sections", len(req.Pool)),
		zap.Int("courses", len(pool.Groups)),
		zap.Int("generated", stats.Produced),
		zap.Int("conflict_free", len(result.ConflictFree)),
		zap.Duration("elapsed", time.Since(started)))

	if stats.Produced == 0 {
		return result, ErrEmptyResult
	}
	return result, nil
}

// run feeds enumerated tuples to the evaluation workers. The budget is
// enforced by the enumerator, so no more than budget tuples ever exist.
func (s *Scheduler) run(ctx context.Context, pool Pool, budget int) ([]models.Candidate, EnumerationStats, error) {
	workers := s.Workers
	if workers <= 0 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	work := make(chan Tuple, workers)

	var stats EnumerationStats
	g.Go(func() error {
		defer close(work)
		var err error
		stats, err = Enumerate(gctx, pool.Groups, pool.MustSelectNames, budget, func(t Tuple) error {
			select {
			case work <- t:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
		return err
	})

	var mu sync.Mutex
	var candidates []models.Candidate
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for t := range work {
				c := Evaluate(t.Index, t.Sections)
				mu.Lock()
				candidates = append(candidates, c)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, stats, err
	}

	// workers finish in any order
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Index < candidates[j].Index
	})
	return candidates, stats, nil
}
