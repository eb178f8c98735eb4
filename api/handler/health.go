package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/propscrape/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// PoolReporter exposes the extraction session's context pool.
type PoolReporter interface {
	Stats() models.PoolStats
}

// Health returns a handler for GET /health.
//
// Reports pool utilisation and degrades status when > 80% of contexts are active.
func Health(pr PoolReporter, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := pr.Stats()

		status := "healthy"
		if stats.MaxContexts > 0 && stats.ActiveContexts > int(float64(stats.MaxContexts)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    status,
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			PoolStats: stats,
			Version:   Version,
		})
	}
}
