package handlers

import (
	"errors"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/course-planner-api/pkg/models"
	"github.com/arnavshah/course-planner-api/pkg/poolio"
	"github.com/arnavshah/course-planner-api/pkg/scheduler"
)

// groupSummary describes one course group of a validated pool
type groupSummary struct {
	Name       string `json:"name"`
	Sections   int    `json:"sections"`
	MustSelect bool   `json:"must_select"`
}

// combinations is the size of the Cartesian product, capped at MaxInt64
func combinations(groups []scheduler.CourseGroup) int64 {
	if len(groups) == 0 {
		return 0
	}
	total := int64(1)
	for _, g := range groups {
		n := int64(len(g.Sections))
		if total > math.MaxInt64/n {
			return math.MaxInt64
		}
		total *= n
	}
	return total
}

// ValidateInput checks a pool against the generator's preconditions without
// generating anything.
func (h *Handler) ValidateInput(c *gin.Context) {
	var input models.GenerateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": err.Error()})
		return
	}

	sections, err := decodeCourses(input.Courses)
	if err != nil {
		var pe *poolio.ParseError
		if errors.As(err, &pe) {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error(), "record": pe.Index, "field": pe.Field})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": err.Error()})
		return
	}
	budget, err := h.budget(input.Budget)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}

	h.RecordUsage(c, len(sections), 0)

	if len(sections) == 0 {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": scheduler.ErrEmptyPool.Error()})
		return
	}
	if !scheduler.HasRequired(sections) {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": scheduler.ErrNoRequiredCourses.Error()})
		return
	}

	pool := scheduler.BuildPool(sections)
	groups := make([]groupSummary, 0, len(pool.Groups))
	for _, g := range pool.Groups {
		groups = append(groups, groupSummary{
			Name:       g.Name,
			Sections:   len(g.Sections),
			MustSelect: pool.MustSelectNames[g.Name],
		})
	}
	total := combinations(pool.Groups)
	stats := gin.H{
		"section_count":     len(sections),
		"available_count":   len(pool.Available),
		"excluded_count":    len(sections) - len(pool.Available),
		"course_count":      len(pool.Groups),
		"must_select_names": pool.SortedMustSelectNames(),
		"combinations":      total,
		"budget":            budget,
		"will_truncate":     total > int64(budget),
	}

	if err := scheduler.CheckMustSelect(pool.Groups, pool.MustSelectNames); err != nil {
		var missing *scheduler.MissingMustSelectError
		errors.As(err, &missing)
		c.JSON(http.StatusOK, gin.H{
			"valid":  false,
			"error":  err.Error(),
			"course": missing.Name,
			"stats":  stats,
			"groups": groups,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":  true,
		"stats":  stats,
		"groups": groups,
	})
}
