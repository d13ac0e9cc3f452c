package handler

import (
	"context"
	"net/http"
	"time"

	"carfinder/internal/model"

	"github.com/gin-gonic/gin"
)

// BuildInfo is reported by /health and /version
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// PingFunc checks one dependency
type PingFunc func(ctx context.Context) error

// HealthHandler reports liveness and dependency health
type HealthHandler struct {
	build  BuildInfo
	checks map[string]PingFunc
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(build BuildInfo, checks map[string]PingFunc) *HealthHandler {
	return &HealthHandler{build: build, checks: checks}
}

// Alive handles GET /alive
func (h *HealthHandler) Alive(c *gin.Context) {
	c.JSON(http.StatusOK, model.AliveResponse{Status: "alive"})
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, ping := range h.checks {
		if err := ping(ctx); err != nil {
			deps[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	c.JSON(code, gin.H{
		"status":       status,
		"service":      "carfinder",
		"version":      h.build.Version,
		"build_time":   h.build.BuildTime,
		"git_commit":   h.build.GitCommit,
		"dependencies": deps,
	})
}

// Version handles GET /version
func (h *HealthHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":    h.build.Version,
		"build_time": h.build.BuildTime,
		"git_commit": h.build.GitCommit,
	})
}
