package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handlers groups every HTTP handler the server exposes
type Handlers struct {
	Search   *SearchHandler
	Feedback *FeedbackHandler
	Cars     *CarBatchHandler
	Health   *HealthHandler
}

// RegisterRoutes mounts the API on router
func RegisterRoutes(router *gin.Engine, h Handlers) {
	router.GET("/alive", h.Health.Alive)
	router.GET("/health", h.Health.Health)
	router.GET("/version", h.Health.Version)

	// RAG endpoint
	router.POST("/rag/search", h.Search.Search)

	// API routes
	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/search", h.Search.Search)
		apiV1.POST("/search/stream", h.Search.SearchStream)
		apiV1.GET("/cars/:id", h.Search.GetCar)
		apiV1.POST("/cars/batch", h.Cars.BatchUpsert)
		apiV1.POST("/feedback", h.Feedback.Submit)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
}
