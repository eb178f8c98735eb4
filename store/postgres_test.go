package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/propscrape/models"
)

var fullListing = models.Listing{
	Title:      "Flat in City",
	Location:   "12 Park Street, Kolkata",
	Price:      "₹50,00,000",
	PictureURL: "https://img.staticmb.com/mbphoto/property/a.jpg",
}

func newMockPostgres(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(sqlx.NewDb(db, "postgres")), mock
}

func TestPostgresCreate(t *testing.T) {
	pg, mock := newMockPostgres(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO property_listings (url, status)")).
		WithArgs("https://example.com/flat").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	conn, err := pg.Checkout(ctx)
	require.NoError(t, err)
	defer conn.Close()

	id, err := conn.Create(ctx, "https://example.com/flat")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateConstraintViolation(t *testing.T) {
	pg, mock := newMockPostgres(t)
	ctx := context.Background()

	mock.ExpectQuery("INSERT INTO property_listings").
		WillReturnError(&pq.Error{Code: "23514", Message: "new row violates check constraint"})

	conn, err := pg.Checkout(ctx)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Create(ctx, "https://example.com/flat")
	require.Error(t, err)
	assert.True(t, models.IsPersistence(err))
	assert.Contains(t, models.PublicMessage(err), "constraint violation")
	assert.NotContains(t, models.PublicMessage(err), "check constraint")
}

func TestPostgresUpdate(t *testing.T) {
	pg, mock := newMockPostgres(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE property_listings")).
		WithArgs(fullListing.Title, fullListing.Location, fullListing.Price, fullListing.PictureURL, "Completed", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	conn, err := pg.Checkout(ctx)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Update(ctx, 7, fullListing, models.StatusCompleted))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateSkipsFinishedJobs(t *testing.T) {
	pg, mock := newMockPostgres(t)
	ctx := context.Background()

	mock.ExpectExec("UPDATE property_listings").
		WillReturnResult(sqlmock.NewResult(0, 0))

	conn, err := pg.Checkout(ctx)
	require.NoError(t, err)
	defer conn.Close()

	err = conn.Update(ctx, 7, fullListing, models.StatusCompleted)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrJobNotInProgress))
	assert.True(t, models.IsPersistence(err))
}

func TestPostgresUpdateRejectsIncompleteListing(t *testing.T) {
	pg, mock := newMockPostgres(t)
	ctx := context.Background()

	conn, err := pg.Checkout(ctx)
	require.NoError(t, err)
	defer conn.Close()

	partial := fullListing
	partial.Price = ""
	err = conn.Update(ctx, 7, partial, models.StatusCompleted)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncompleteListing))

	// Nothing reached the database.
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMarkFailed(t *testing.T) {
	pg, mock := newMockPostgres(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("SET status = 'Failed'")).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'Failed'")).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	conn, err := pg.Checkout(ctx)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.MarkFailed(ctx, 9))
	require.NoError(t, conn.MarkFailed(ctx, 9))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresList(t *testing.T) {
	pg, mock := newMockPostgres(t)

	rows := sqlmock.NewRows([]string{"id", "url", "title", "location", "price", "picture_url", "status"}).
		AddRow(2, "https://example.com/b", nil, nil, nil, nil, "In Progress").
		AddRow(1, "https://example.com/a", "Flat", "Pune", "₹1", "https://img", "Completed")
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY id DESC")).WillReturnRows(rows)

	jobs, err := pg.List(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	assert.Equal(t, int64(2), jobs[0].ID)
	assert.Equal(t, models.StatusInProgress, jobs[0].Status)
	assert.Nil(t, jobs[0].Title)

	assert.Equal(t, models.StatusCompleted, jobs[1].Status)
	require.NotNil(t, jobs[1].Title)
	assert.Equal(t, "Flat", *jobs[1].Title)
}

func TestPostgresListError(t *testing.T) {
	pg, mock := newMockPostgres(t)
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection refused"))

	_, err := pg.List(context.Background())
	require.Error(t, err)
	assert.Equal(t, "could not list jobs", models.PublicMessage(err))
}

func TestPostgresConnCloseIsIdempotent(t *testing.T) {
	pg, _ := newMockPostgres(t)
	conn, err := pg.Checkout(context.Background())
	require.NoError(t, err)
	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
}
