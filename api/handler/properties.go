package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/propscrape/models"
)

// Lister reads stored jobs.
type Lister interface {
	List(ctx context.Context) ([]models.ScrapeJob, error)
}

// Properties returns a handler for GET /properties: every job, most recent
// first, no pagination.
func Properties(l Lister) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobs, err := l.List(c.Request.Context())
		if err != nil {
			slog.Error("list jobs failed", "error", err)
			c.JSON(http.StatusInternalServerError, models.ListErrorResponse{
				Message: "Error fetching properties.",
				Error:   models.PublicMessage(err),
			})
			return
		}
		c.JSON(http.StatusOK, jobs)
	}
}
