package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/use-agent/propscrape/engine"
	"github.com/use-agent/propscrape/extractor"
	"github.com/use-agent/propscrape/models"
)

// StaticSession fetches a listing without a browser and runs the extractor
// over the parsed HTML. Pages that render their fields in JavaScript will
// resolve to defaults.
type StaticSession struct {
	engine    engine.Engine
	extractor *extractor.Extractor
	timeout   time.Duration
}

// NewStaticSession builds a StaticSession over e.
func NewStaticSession(e engine.Engine, ex *extractor.Extractor, timeout time.Duration) *StaticSession {
	return &StaticSession{engine: e, extractor: ex, timeout: timeout}
}

func (s *StaticSession) Execute(ctx context.Context, pageURL string) (res *models.ExtractionResult, err error) {
	req := &engine.FetchRequest{URL: pageURL, Timeout: s.timeout}
	if u, parseErr := url.Parse(pageURL); parseErr == nil && u.Hostname() != "" {
		req.Headers = map[string]string{
			"Referer": "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname()),
		}
	}

	fetched, err := s.engine.Fetch(ctx, req)
	if err != nil {
		var statusErr *engine.StatusError
		switch {
		case errors.As(err, &statusErr):
			return nil, models.NewScrapeError(models.ErrCodeNavigation,
				fmt.Sprintf("listing page returned status %d", statusErr.StatusCode), err)
		case errors.Is(err, context.DeadlineExceeded):
			return nil, categorizeError(err, fmt.Sprintf("listing page did not load within %s", s.timeout))
		default:
			return nil, categorizeError(err, "fetching listing page failed")
		}
	}
	slog.Debug("static fetch complete", "url", pageURL, "finalURL", fetched.FinalURL, "bytes", len(fetched.HTML))

	doc, err := extractor.NewDocument(fetched.HTML, fetched.FinalURL)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeNavigation, "listing page is not parseable HTML", err)
	}

	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = models.NewScrapeError(models.ErrCodeExtractPanic, "extraction aborted unexpectedly", fmt.Errorf("panic: %v", r))
		}
	}()
	return s.extractor.Run(doc), nil
}

// Stats reports an empty pool: the static session holds no browser contexts.
func (s *StaticSession) Stats() models.PoolStats {
	return models.PoolStats{}
}

// Close is a no-op.
func (s *StaticSession) Close() {}
