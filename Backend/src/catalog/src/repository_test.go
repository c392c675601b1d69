package main

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func insertBook(t *testing.T, repo *Repository, b Book) {
	t.Helper()
	_, err := repo.DB.Exec(
		`INSERT INTO books(id, title, topic, price, quantity) VALUES(?,?,?,?,?)`,
		b.ID, b.Title, b.Topic, b.Price, b.Quantity)
	require.NoError(t, err)
}

func ptrF(v float64) *float64 { return &v }
func ptrI(v int64) *int64     { return &v }

func TestDecrement_Contention(t *testing.T) {
	repo := newTestRepo(t)
	insertBook(t, repo, Book{ID: 1, Title: "t", Topic: "x", Price: 1, Quantity: 5})

	const attempts = 8
	var ok, outOfStock, unexpected int64
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Decrement(context.Background(), 1)
			switch err {
			case nil:
				atomic.AddInt64(&ok, 1)
			case ErrOutOfStock:
				atomic.AddInt64(&outOfStock, 1)
			default:
				atomic.AddInt64(&unexpected, 1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 5, ok)
	assert.EqualValues(t, 3, outOfStock)
	assert.EqualValues(t, 0, unexpected)

	b, err := repo.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.EqualValues(t, 0, b.Quantity)
}

func TestDecrement_NotFoundPrecedence(t *testing.T) {
	repo := newTestRepo(t)
	insertBook(t, repo, Book{ID: 1, Title: "t", Topic: "x", Price: 1, Quantity: 0})

	_, err := repo.Decrement(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Decrement(context.Background(), 1)
	assert.ErrorIs(t, err, ErrOutOfStock)
}

func TestDecrement_ReturnsRemaining(t *testing.T) {
	repo := newTestRepo(t)
	insertBook(t, repo, Book{ID: 7, Title: "t", Topic: "x", Price: 1, Quantity: 3})

	remaining, err := repo.Decrement(context.Background(), 7)
	require.NoError(t, err)
	assert.EqualValues(t, 2, remaining)
}

func TestUpdate_Composition(t *testing.T) {
	repo := newTestRepo(t)
	insertBook(t, repo, Book{ID: 1, Title: "t", Topic: "x", Price: 5.00, Quantity: 10})

	b, err := repo.Update(context.Background(), 1, Patch{Price: ptrF(9.99), QuantityDelta: ptrI(-2)})
	require.NoError(t, err)
	assert.EqualValues(t, 8, b.Quantity)
	assert.InDelta(t, 9.99, b.Price, 1e-9)
}

func TestUpdate_SingleFields(t *testing.T) {
	repo := newTestRepo(t)
	insertBook(t, repo, Book{ID: 1, Title: "t", Topic: "x", Price: 5.00, Quantity: 10})

	b, err := repo.Update(context.Background(), 1, Patch{QuantityDelta: ptrI(4)})
	require.NoError(t, err)
	assert.EqualValues(t, 14, b.Quantity)
	assert.InDelta(t, 5.00, b.Price, 1e-9)

	b, err = repo.Update(context.Background(), 1, Patch{Price: ptrF(7.25)})
	require.NoError(t, err)
	assert.EqualValues(t, 14, b.Quantity)
	assert.InDelta(t, 7.25, b.Price, 1e-9)
}

func TestUpdate_NoValidFields(t *testing.T) {
	repo := newTestRepo(t)
	insertBook(t, repo, Book{ID: 1, Title: "t", Topic: "x", Price: 1, Quantity: 1})

	_, err := repo.Update(context.Background(), 1, Patch{})
	assert.ErrorIs(t, err, ErrNoValidFields)
}

func TestUpdate_MissingID(t *testing.T) {
	repo := newTestRepo(t)

	// el write con guarda no toca filas; el read-back es lo que falla
	_, err := repo.Update(context.Background(), 42, Patch{Price: ptrF(1.00)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQuantity_NeverNegative(t *testing.T) {
	repo := newTestRepo(t)
	insertBook(t, repo, Book{ID: 1, Title: "t", Topic: "x", Price: 1, Quantity: 5})

	// un delta que dejaría la cantidad bajo cero viola el CHECK
	_, err := repo.Update(context.Background(), 1, Patch{QuantityDelta: ptrI(-100)})
	assert.Error(t, err)

	b, err := repo.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.EqualValues(t, 5, b.Quantity)
}

func TestSearch(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Seed(context.Background()))

	all, err := repo.Search(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	ds, err := repo.Search(context.Background(), "distributed")
	require.NoError(t, err)
	assert.Len(t, ds, 3)
	assert.EqualValues(t, 1, ds["How to finish Project 3 on time"])

	// substring, case-insensitive
	ms, err := repo.Search(context.Background(), "MICRO")
	require.NoError(t, err)
	assert.Len(t, ms, 1)
}

func TestSeed_Idempotent(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Seed(context.Background()))

	_, err := repo.Decrement(context.Background(), 1)
	require.NoError(t, err)

	// un segundo seed no debe restaurar cantidades
	require.NoError(t, repo.Seed(context.Background()))
	b, err := repo.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.EqualValues(t, 7, b.Quantity)
}
