// Package store persists scrape job records.
package store

import (
	"context"
	"errors"

	"github.com/use-agent/propscrape/models"
)

// ErrJobNotInProgress is returned by Conn.Update when the job is missing or
// has already left the In Progress state.
var ErrJobNotInProgress = errors.New("store: job is not in progress")

// ErrIncompleteListing is returned by Conn.Update when a Completed write
// lacks one of the four listing fields.
var ErrIncompleteListing = errors.New("store: completed job requires all listing fields")

// Store is the job table. Writes go through a checked-out Conn so that one
// invocation uses a single connection from create to terminal update.
type Store interface {
	// Checkout reserves a connection. The caller must Close it.
	Checkout(ctx context.Context) (Conn, error)

	// List returns every job, most recent first.
	List(ctx context.Context) ([]models.ScrapeJob, error)

	// Close releases the underlying pool.
	Close() error
}

// Conn is a single reserved store connection.
type Conn interface {
	// Create inserts a new In Progress job and returns its id.
	Create(ctx context.Context, url string) (int64, error)

	// Update writes the listing fields and status in one statement. It only
	// applies to jobs still In Progress.
	Update(ctx context.Context, id int64, listing models.Listing, status models.JobStatus) error

	// MarkFailed moves the job to Failed unless it is already Completed.
	// Marking an already Failed job again is not an error.
	MarkFailed(ctx context.Context, id int64) error

	// Close returns the connection to the pool. Safe to call more than once.
	Close() error
}

// checkUpdate validates an Update call before it reaches storage.
func checkUpdate(listing models.Listing, status models.JobStatus) error {
	if !models.StatusInProgress.CanTransition(status) {
		return models.NewPersistenceError("invalid job status transition", errors.New("store: cannot update to "+string(status)))
	}
	if status == models.StatusCompleted && !listing.Complete() {
		return models.NewPersistenceError("listing fields missing for completed job", ErrIncompleteListing)
	}
	return nil
}
