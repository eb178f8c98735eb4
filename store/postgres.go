package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/use-agent/propscrape/config"
	"github.com/use-agent/propscrape/models"
)

const (
	createQuery = `
		INSERT INTO property_listings (url, status)
		VALUES ($1, 'In Progress')
		RETURNING id`

	updateQuery = `
		UPDATE property_listings
		SET title = $1, location = $2, price = $3, picture_url = $4, status = $5, updated_at = NOW()
		WHERE id = $6 AND status = 'In Progress'`

	markFailedQuery = `
		UPDATE property_listings
		SET status = 'Failed', updated_at = NOW()
		WHERE id = $1 AND status <> 'Completed'`

	listQuery = `
		SELECT id, url, title, location, price, picture_url, status
		FROM property_listings
		ORDER BY id DESC`
)

// Postgres is a Store backed by a lib/pq connection pool.
type Postgres struct {
	db *sqlx.DB
}

var _ Store = (*Postgres)(nil)

// Open connects to Postgres and configures the pool from cfg.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	db, err := sqlx.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewPostgres(db), nil
}

// NewPostgres wraps an existing pool.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Checkout(ctx context.Context) (Conn, error) {
	conn, err := p.db.Connx(ctx)
	if err != nil {
		return nil, persistenceError("could not acquire database connection", err)
	}
	return &pgConn{conn: conn}, nil
}

func (p *Postgres) List(ctx context.Context) ([]models.ScrapeJob, error) {
	jobs := []models.ScrapeJob{}
	if err := p.db.SelectContext(ctx, &jobs, listQuery); err != nil {
		return nil, persistenceError("could not list jobs", err)
	}
	return jobs, nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

type pgConn struct {
	conn   *sqlx.Conn
	closed bool
}

func (c *pgConn) Create(ctx context.Context, url string) (int64, error) {
	var id int64
	if err := c.conn.QueryRowxContext(ctx, createQuery, url).Scan(&id); err != nil {
		return 0, persistenceError("could not create job record", err)
	}
	return id, nil
}

func (c *pgConn) Update(ctx context.Context, id int64, listing models.Listing, status models.JobStatus) error {
	if err := checkUpdate(listing, status); err != nil {
		return err
	}
	res, err := c.conn.ExecContext(ctx, updateQuery,
		listing.Title, listing.Location, listing.Price, listing.PictureURL, string(status), id,
	)
	if err != nil {
		return persistenceError("could not update job record", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistenceError("could not update job record", err)
	}
	if n == 0 {
		return models.NewPersistenceError("job is no longer in progress", ErrJobNotInProgress)
	}
	return nil
}

func (c *pgConn) MarkFailed(ctx context.Context, id int64) error {
	if _, err := c.conn.ExecContext(ctx, markFailedQuery, id); err != nil {
		return persistenceError("could not mark job failed", err)
	}
	return nil
}

func (c *pgConn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

// persistenceError wraps a driver error. Constraint violations get their
// own summary; other driver detail stays in the wrapped error.
func persistenceError(msg string, err error) *models.ScrapeError {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "23" { // integrity_constraint_violation
		return models.NewPersistenceError(msg+": constraint violation", err)
	}
	return models.NewPersistenceError(msg, err)
}
