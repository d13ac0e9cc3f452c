package handler

import (
	"net/http"

	"carfinder/internal/ingest"
	"carfinder/internal/model"

	"github.com/gin-gonic/gin"
)

// maxBatchSize bounds one ingest request
const maxBatchSize = 500

// CarBatchHandler handles catalog ingest over HTTP
type CarBatchHandler struct {
	ingestService *ingest.Service
}

// NewCarBatchHandler creates a new batch handler. ingestService may be nil when
// no embedding model is configured.
func NewCarBatchHandler(ingestService *ingest.Service) *CarBatchHandler {
	return &CarBatchHandler{
		ingestService: ingestService,
	}
}

// BatchUpsert handles POST /api/v1/cars/batch
func (h *CarBatchHandler) BatchUpsert(c *gin.Context) {
	if h.ingestService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Ingest is disabled: no embedding model configured"})
		return
	}

	var req model.CarBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if len(req.Cars) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No cars provided"})
		return
	}
	if len(req.Cars) > maxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Too many cars in one batch"})
		return
	}

	stats, err := h.ingestService.IngestBatch(c.Request.Context(), req.Cars)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	response := model.CarBatchResponse{
		Success: stats.Succeeded,
		Failed:  stats.Failed,
		Errors:  stats.Errors,
	}

	if len(stats.Errors) > 0 {
		c.JSON(http.StatusPartialContent, response)
	} else {
		c.JSON(http.StatusOK, response)
	}
}
