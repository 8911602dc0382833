package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up the API routes
func SetupRoutes(handler *Handler) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(Recovery())
	router.Use(CORS())
	router.Use(gin.Logger())

	// Health check
	router.GET("/health", handler.HealthCheck)

	// API v1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/state", handler.GetState)
		v1.GET("/summary", handler.GetSummary)

		runs := v1.Group("/runs")
		{
			runs.GET("", handler.GetRuns)
			runs.GET("/:id/repos", handler.GetRunOutcomes)
		}
	}

	return router
}
