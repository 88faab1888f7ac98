package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mnemos-ai/mnemos"
)

// Build information - can be set at build time using ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// HealthHandler handles health check requests
type HealthHandler struct {
	client mnemos.Mnemos
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(client mnemos.Mnemos) *HealthHandler {
	return &HealthHandler{client: client}
}

// HealthCheck handles GET /health - basic liveness check
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "mnemos",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

// ReadinessCheck handles GET /ready - verifies the graph store answers.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	start := time.Now()
	stats, err := h.client.Stats(ctx)
	duration := time.Since(start)

	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "not ready",
			"service":   "mnemos",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"checks": gin.H{
				"store": gin.H{
					"status":   "unhealthy",
					"error":    err.Error(),
					"duration": duration.String(),
				},
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"service":   "mnemos",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": gin.H{
			"store": gin.H{
				"status":     "healthy",
				"duration":   duration.String(),
				"node_count": stats.NodeCount,
				"pending":    stats.PendingCount,
			},
		},
	})
}
