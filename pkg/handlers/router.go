package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Version of the HTTP API
const Version = "1.0.0"

// NewRouter registers every route on a new gin engine
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(h.RequestLogger(), gin.Recovery())
	r.MaxMultipartMemory = 8 << 20

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Course Planner API",
			"version": Version,
		})
	})

	r.POST("/admin/login", h.Login)

	// Admin Endpoints
	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.PUT("/keys/:id", h.UpdateKeyLimit)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)
	}

	// Planner Endpoints
	api := r.Group("/api")
	api.Use(h.APIKeyMiddleware())
	{
		api.POST("/generate", h.Generate)
		api.POST("/rank", h.Rank)
		api.POST("/validate", h.ValidateInput)
		api.POST("/grid", h.Grid)
		api.GET("/usage", h.GetMyUsage)

		pools := api.Group("/pools")
		pools.POST("", h.CreatePool)
		pools.POST("/import", h.ImportPool)
		pools.GET("", h.ListPools)
		pools.GET("/:id", h.GetPool)
		pools.GET("/:id/export", h.ExportPool)
		pools.PUT("/:id", h.ReplacePool)
		pools.DELETE("/:id", h.DeletePool)
		pools.POST("/:id/sections", h.AddSection)
		pools.PATCH("/:id/sections/:name/:classID", h.UpdateSection)
		pools.DELETE("/:id/sections/:name/:classID", h.DeleteSection)
		pools.POST("/:id/generate", h.GeneratePool)
		pools.POST("/:id/generate/xlsx", h.GeneratePoolWorkbook)
		pools.POST("/:id/generate/csv", h.GenerateSummaryCSV)
	}

	return r
}
