package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*Repository, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "orders.db")
	repo, err := NewRepository(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo, dbPath
}

func TestInsertAndGet(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.Insert(ctx, 7)
	require.NoError(t, err)

	o, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, o.ID)
	assert.EqualValues(t, 7, o.ItemID)
	assert.NotEmpty(t, o.CreatedAt)
}

func TestIDs_MonotonicallyIncreasing(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	var last int64
	for i := 0; i < 5; i++ {
		id, err := repo.Insert(ctx, 1)
		require.NoError(t, err)
		assert.Greater(t, id, last)
		last = id
	}

	n, err := repo.CountByItem(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
}

func TestGet_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.Get(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}
