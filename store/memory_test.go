package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/propscrape/models"
)

func TestMemoryLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	conn, err := m.Checkout(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, m.OpenConns())

	id, err := conn.Create(ctx, "https://example.com/a")
	require.NoError(t, err)

	job, ok := m.Get(id)
	require.True(t, ok)
	assert.Equal(t, models.StatusInProgress, job.Status)
	assert.Nil(t, job.Title)

	require.NoError(t, conn.Update(ctx, id, fullListing, models.StatusCompleted))
	job, _ = m.Get(id)
	assert.Equal(t, models.StatusCompleted, job.Status)
	require.NotNil(t, job.Price)
	assert.Equal(t, fullListing.Price, *job.Price)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	assert.Equal(t, 0, m.OpenConns())
}

func TestMemoryFailedNeverCompletes(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	conn, err := m.Checkout(ctx)
	require.NoError(t, err)
	defer conn.Close()

	id, err := conn.Create(ctx, "https://example.com/a")
	require.NoError(t, err)

	require.NoError(t, conn.MarkFailed(ctx, id))
	require.NoError(t, conn.MarkFailed(ctx, id))

	err = conn.Update(ctx, id, fullListing, models.StatusCompleted)
	assert.True(t, errors.Is(err, ErrJobNotInProgress))

	job, _ := m.Get(id)
	assert.Equal(t, models.StatusFailed, job.Status)
	assert.Nil(t, job.Title)
}

func TestMemoryMarkFailedKeepsCompleted(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	conn, _ := m.Checkout(ctx)
	defer conn.Close()

	id, _ := conn.Create(ctx, "https://example.com/a")
	require.NoError(t, conn.Update(ctx, id, fullListing, models.StatusCompleted))
	require.NoError(t, conn.MarkFailed(ctx, id))

	job, _ := m.Get(id)
	assert.Equal(t, models.StatusCompleted, job.Status)
}

func TestMemoryRejectsIncompleteCompletion(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	conn, _ := m.Checkout(ctx)
	defer conn.Close()

	id, _ := conn.Create(ctx, "https://example.com/a")
	err := conn.Update(ctx, id, models.Listing{Title: "only a title"}, models.StatusCompleted)
	assert.True(t, errors.Is(err, ErrIncompleteListing))

	job, _ := m.Get(id)
	assert.Equal(t, models.StatusInProgress, job.Status)
}

func TestMemoryListMostRecentFirst(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	conn, _ := m.Checkout(ctx)
	defer conn.Close()

	for _, u := range []string{"https://example.com/a", "https://example.com/b", "https://example.com/a"} {
		_, err := conn.Create(ctx, u)
		require.NoError(t, err)
	}

	jobs, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, []int64{3, 2, 1}, []int64{jobs[0].ID, jobs[1].ID, jobs[2].ID})
	assert.Equal(t, "https://example.com/a", jobs[0].URL)
}

func TestMemoryConcurrentCreates(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, err := m.Checkout(ctx)
			if err != nil {
				return
			}
			defer conn.Close()
			_, _ = conn.Create(ctx, "https://example.com/same")
		}()
	}
	wg.Wait()

	jobs, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 20)
	assert.Equal(t, 0, m.OpenConns())
}

func TestMemoryCanceledContext(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Checkout(ctx)
	assert.True(t, models.IsPersistence(err))
}
