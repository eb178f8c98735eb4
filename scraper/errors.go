package scraper

import (
	"context"
	"errors"

	"github.com/use-agent/propscrape/models"
)

// categorizeError wraps raw errors into typed ScrapeErrors so the pipeline
// can report a stable code. msg is the caller-facing summary.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
