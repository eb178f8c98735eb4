package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/propscrape/models"
	"github.com/use-agent/propscrape/pipeline"
)

// Runner runs one scrape job.
type Runner interface {
	Run(ctx context.Context, url string) (*pipeline.Outcome, error)
}

// Scrape returns a handler for POST /scrape.
//
//	200 {message, id}                          job Completed
//	400 {error: "URL is required"}             no job created
//	500 {error: "Scraping failed.", details}   job Failed, or the store failed
func Scrape(r Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		// A body that does not decode carries no URL; Run rejects it below.
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			slog.Debug("scrape: unreadable request body", "error", err)
		}

		out, err := r.Run(c.Request.Context(), req.URL)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.ScrapeResponse{
			Message: out.Message,
			ID:      out.JobID,
		})
	}
}

// respondError maps a pipeline error to its status code and JSON body.
func respondError(c *gin.Context, err error) {
	status := mapErrorToStatus(models.CodeOf(err))
	if status == http.StatusBadRequest {
		c.JSON(status, models.ScrapeErrorResponse{Error: models.PublicMessage(err)})
		return
	}
	c.JSON(status, models.ScrapeErrorResponse{
		Error:   "Scraping failed.",
		Details: models.PublicMessage(err),
		Code:    models.CodeOf(err),
	})
}

// mapErrorToStatus translates error codes to HTTP status codes. Every
// failure after validation is a 500 regardless of cause.
func mapErrorToStatus(code string) int {
	switch code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	default:
		return http.StatusInternalServerError // 500
	}
}
