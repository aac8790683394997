package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnavshah/course-planner-api/pkg/database"
	"github.com/arnavshah/course-planner-api/pkg/models"
	"github.com/arnavshah/course-planner-api/pkg/poolio"
	"github.com/arnavshah/course-planner-api/pkg/scheduler"
)

// errorResponse maps generation and parsing errors to HTTP responses
func (h *Handler) errorResponse(c *gin.Context, err error) {
	var missing *scheduler.MissingMustSelectError
	var parseErr *poolio.ParseError

	switch {
	case errors.As(err, &missing):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  err.Error(),
			"kind":   "missing_must_select_course",
			"course": missing.Name,
		})
	case errors.Is(err, scheduler.ErrNoRequiredCourses):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "kind": "no_required_courses"})
	case errors.Is(err, scheduler.ErrEmptyPool):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "kind": "empty_pool"})
	case errors.As(err, &parseErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  err.Error(),
			"kind":   "parse_error",
			"record": parseErr.Index,
			"field":  parseErr.Field,
		})
	case errors.Is(err, scheduler.ErrInvalidBudget), errors.Is(err, scheduler.ErrUnknownPolicy):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, database.ErrPoolNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "timetable generation timed out"})
	default:
		h.Logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// decodeCourses reads an inline pool with the same rules as a pool file
func decodeCourses(raw json.RawMessage) ([]models.CourseSection, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return []models.CourseSection{}, nil
	}
	return poolio.LoadJSON(bytes.NewReader(raw))
}

// budget resolves the requested budget against the configured limits
func (h *Handler) budget(requested *int) (int, error) {
	if requested == nil {
		return h.Config.Planner.DefaultBudget, nil
	}
	if *requested < 0 {
		return 0, scheduler.ErrInvalidBudget
	}
	if *requested > h.Config.Planner.MaxBudget {
		return 0, fmt.Errorf("%w: %d exceeds the maximum of %d", scheduler.ErrInvalidBudget, *requested, h.Config.Planner.MaxBudget)
	}
	return *requested, nil
}

func (h *Handler) policy(requested string) (scheduler.Policy, error) {
	if requested == "" {
		requested = h.Config.Planner.DefaultPolicy
	}
	return scheduler.ParsePolicy(requested)
}

// runGeneration generates candidates for a pool, records the request and
// writes the error response itself. The returned message is non-empty for
// the informational empty-result outcome.
func (h *Handler) runGeneration(c *gin.Context, sections []models.CourseSection, budget *int, policy string, poolID *uint) (*scheduler.GenerationResult, string, bool) {
	n, err := h.budget(budget)
	if err != nil {
		h.errorResponse(c, err)
		return nil, "", false
	}
	p, err := h.policy(policy)
	if err != nil {
		h.errorResponse(c, err)
		return nil, "", false
	}

	res, err := h.Scheduler.Generate(c.Request.Context(), scheduler.GenerationRequest{
		Pool:   sections,
		Budget: n,
		Policy: p,
	})
	message := ""
	if errors.Is(err, scheduler.ErrEmptyResult) {
		message = err.Error()
		err = nil
	}
	if err != nil {
		h.errorResponse(c, err)
		return nil, "", false
	}
	if res.Truncated && message == "" {
		message = fmt.Sprintf("reached the maximum of %d candidates, remaining combinations were not generated", n)
	}

	h.recordGeneration(c, res, len(sections), poolID)
	return res, message, true
}

func (h *Handler) recordGeneration(c *gin.Context, res *scheduler.GenerationResult, sections int, poolID *uint) {
	h.RecordUsage(c, sections, res.Generated)

	apiKey := currentKey(c)
	if apiKey == nil {
		return
	}
	outcome := "ok"
	if res.Generated == 0 {
		outcome = "empty"
	}
	rec := database.GenerationRecord{
		GenerationID: res.ID,
		KeyID:        apiKey.ID,
		PoolID:       poolID,
		Sections:     sections,
		Budget:       res.Budget,
		Policy:       string(res.Policy),
		Generated:    res.Generated,
		ConflictFree: len(res.ConflictFree),
		Truncated:    res.Truncated,
		Outcome:      outcome,
	}
	if err := h.DB.Create(&rec).Error; err != nil {
		h.Logger.Warn("generation not recorded", zap.String("generation_id", res.ID), zap.Error(err))
	}
}

// Generate handles POST /api/generate with an inline course pool
func (h *Handler) Generate(c *gin.Context) {
	var input models.GenerateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sections, err := decodeCourses(input.Courses)
	if err != nil {
		h.errorResponse(c, err)
		return
	}

	res, message, ok := h.runGeneration(c, sections, input.Budget, input.Policy, nil)
	if !ok {
		return
	}
	resp := res.Response()
	resp.Message = message
	c.JSON(http.StatusOK, resp)
}

// Rank re-orders previously generated candidates under a policy. Only the
// two policy keys are used.
func (h *Handler) Rank(c *gin.Context) {
	var input models.RankInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.policy(input.Policy)
	if err != nil {
		h.errorResponse(c, err)
		return
	}

	ranked := scheduler.Rank(input.Candidates, p)
	free, withConflicts := scheduler.Partition(ranked)
	c.JSON(http.StatusOK, gin.H{
		"policy":         p,
		"candidates":     ranked,
		"conflict_free":  free,
		"with_conflicts": withConflicts,
	})
}

// Grid renders one candidate as a day×period table
func (h *Handler) Grid(c *gin.Context) {
	var candidate models.Candidate
	if err := c.ShouldBindJSON(&candidate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, scheduler.GridResponse(candidate))
}
