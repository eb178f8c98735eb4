// Package pipeline runs one scrape job from validation to its terminal
// write.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/propscrape/models"
	"github.com/use-agent/propscrape/store"
	"github.com/use-agent/propscrape/webhook"
)

// CompletedMessage is reported for a successful job.
const CompletedMessage = "Scraping completed!"

// markFailedTimeout bounds the failure marker, which runs detached from the
// caller's cancellation.
const markFailedTimeout = 5 * time.Second

// Session loads a listing page and extracts its fields.
type Session interface {
	Execute(ctx context.Context, url string) (*models.ExtractionResult, error)
}

// Outcome is the result of one Run.
type Outcome struct {
	JobID   int64
	Status  models.JobStatus
	Message string
	Detail  string
	Listing models.Listing
}

// Pipeline wires a store and a session together.
type Pipeline struct {
	store    store.Store
	session  Session
	metrics  *Metrics
	notifier *webhook.Notifier
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMetrics records job metrics on m.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithNotifier sends terminal-state webhooks through n.
func WithNotifier(n *webhook.Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// New creates a Pipeline.
func New(s store.Store, session Session, opts ...Option) *Pipeline {
	p := &Pipeline{store: s, session: session}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run scrapes rawURL as a new job.
//
// A blank URL is rejected before the store is touched. Otherwise exactly one
// job row is created, and it ends Completed with all four fields or Failed.
// The returned error is a *models.ScrapeError; when the job itself was
// created, the Outcome is returned alongside it.
func (p *Pipeline) Run(ctx context.Context, rawURL string) (*Outcome, error) {
	url := strings.TrimSpace(rawURL)
	if url == "" {
		return nil, models.NewValidationError("URL is required")
	}

	conn, err := p.store.Checkout(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			slog.Warn("store: failed to release connection", "error", closeErr)
		}
	}()

	id, err := conn.Create(ctx, url)
	if err != nil {
		return nil, err
	}
	log := slog.With("job_id", id, "url", url, "request_id", RequestIDFrom(ctx))
	log.Info("job created")

	start := time.Now()
	res, err := p.session.Execute(ctx, url)
	p.metrics.ObserveDuration(time.Since(start))
	if err != nil {
		log.Warn("extraction failed", "code", models.CodeOf(err), "error", err)
		return p.fail(ctx, conn, id, url, log, err), err
	}

	if err := conn.Update(ctx, id, res.Listing, models.StatusCompleted); err != nil {
		log.Error("terminal update failed", "error", err)
		if !models.IsPersistence(err) {
			err = models.NewPersistenceError("could not update job record", err)
		}
		return p.fail(ctx, conn, id, url, log, err), err
	}

	p.metrics.IncJob(string(models.StatusCompleted))
	p.metrics.ObserveSources(res.Sources)
	log.Info("job completed", "sources", res.Sources)

	p.notifier.Notify(&webhook.Event{
		Type:      webhook.EventJobCompleted,
		JobID:     id,
		Timestamp: time.Now().Unix(),
		Data:      webhook.JobData{URL: url, Status: models.StatusCompleted, Listing: &res.Listing},
	})

	return &Outcome{
		JobID:   id,
		Status:  models.StatusCompleted,
		Message: CompletedMessage,
		Listing: res.Listing,
	}, nil
}

// fail records the failure marker. Its own error is logged and dropped so
// the caller always sees the original cause.
func (p *Pipeline) fail(ctx context.Context, conn store.Conn, id int64, url string, log *slog.Logger, cause error) *Outcome {
	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markFailedTimeout)
	defer cancel()
	if err := conn.MarkFailed(markCtx, id); err != nil {
		log.Error("failed to mark job failed", "error", err)
	}

	p.metrics.IncJob(string(models.StatusFailed))

	detail := models.PublicMessage(cause)
	p.notifier.Notify(&webhook.Event{
		Type:      webhook.EventJobFailed,
		JobID:     id,
		Timestamp: time.Now().Unix(),
		Data:      webhook.JobData{URL: url, Status: models.StatusFailed, Error: detail},
	})

	return &Outcome{
		JobID:  id,
		Status: models.StatusFailed,
		Detail: detail,
	}
}
