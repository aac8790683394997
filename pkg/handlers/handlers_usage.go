package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/course-planner-api/pkg/database"
)

// GetMyUsage returns usage stats for the authenticated API key
func (h *Handler) GetMyUsage(c *gin.Context) {
	apiKey := currentKey(c)
	if apiKey == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "API Key context missing"})
		return
	}

	usage, err := database.UsageHistory(h.DB, apiKey.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch usage details"})
		return
	}

	// Calculate totals
	var totalRequests, totalSections, totalCandidates int64
	for _, u := range usage {
		totalRequests += int64(u.RequestCount)
		totalSections += int64(u.TotalSections)
		totalCandidates += int64(u.TotalCandidates)
	}

	var recent []database.GenerationRecord
	if err := h.DB.Where("key_id = ?", apiKey.ID).Order("created_at desc").Limit(10).Find(&recent).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch generation history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"key_name":           apiKey.Name,
		"rate_limit":         apiKey.RateLimit,
		"usage_history":      usage,
		"recent_generations": recent,
		"totals": gin.H{
			"requests":   totalRequests,
			"sections":   totalSections,
			"candidates": totalCandidates,
		},
	})
}
