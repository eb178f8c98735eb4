package store

import (
	"context"
	"sort"
	"sync"

	"github.com/use-agent/propscrape/models"
)

// Memory is an in-process Store used when no database is configured.
// It is safe for concurrent use. Contents are lost on restart.
type Memory struct {
	mu     sync.RWMutex
	jobs   map[int64]*models.ScrapeJob
	nextID int64
	open   int
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{jobs: make(map[int64]*models.ScrapeJob)}
}

func (m *Memory) Checkout(ctx context.Context) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewPersistenceError("could not acquire database connection", err)
	}
	m.mu.Lock()
	m.open++
	m.mu.Unlock()
	return &memConn{m: m}, nil
}

func (m *Memory) List(ctx context.Context) ([]models.ScrapeJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewPersistenceError("could not list jobs", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.ScrapeJob, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, *j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID > out[k].ID })
	return out, nil
}

func (m *Memory) Close() error { return nil }

// OpenConns reports how many checked out connections have not been closed.
func (m *Memory) OpenConns() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.open
}

// Get returns a copy of one job.
func (m *Memory) Get(id int64) (models.ScrapeJob, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return models.ScrapeJob{}, false
	}
	return *j, true
}

type memConn struct {
	m      *Memory
	closed bool
}

func (c *memConn) Create(ctx context.Context, url string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, models.NewPersistenceError("could not create job record", err)
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	c.m.nextID++
	id := c.m.nextID
	c.m.jobs[id] = &models.ScrapeJob{ID: id, URL: url, Status: models.StatusInProgress}
	return id, nil
}

func (c *memConn) Update(ctx context.Context, id int64, listing models.Listing, status models.JobStatus) error {
	if err := checkUpdate(listing, status); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return models.NewPersistenceError("could not update job record", err)
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	j, ok := c.m.jobs[id]
	if !ok || j.Status != models.StatusInProgress {
		return models.NewPersistenceError("job is no longer in progress", ErrJobNotInProgress)
	}
	j.Title = strPtr(listing.Title)
	j.Location = strPtr(listing.Location)
	j.Price = strPtr(listing.Price)
	j.PictureURL = strPtr(listing.PictureURL)
	j.Status = status
	return nil
}

func (c *memConn) MarkFailed(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return models.NewPersistenceError("could not mark job failed", err)
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if j, ok := c.m.jobs[id]; ok && j.Status.CanTransition(models.StatusFailed) {
		j.Status = models.StatusFailed
	}
	return nil
}

func (c *memConn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.m.mu.Lock()
	c.m.open--
	c.m.mu.Unlock()
	return nil
}

func strPtr(s string) *string { return &s }
