package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFSStore(t *testing.T) *FSStore {
	t.Helper()
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestFSStore_PutGet(t *testing.T) {
	store := newTestFSStore(t)
	ctx := context.Background()
	payload := []byte("Date,Name,Year\n2026-01-01,Heat,1995\n")

	require.NoError(t, store.Put(ctx, "raw", "letterboxd/20260101T000000Z/abc_watched.csv", payload, "text/csv"))

	got, err := store.Get(ctx, "raw", "letterboxd/20260101T000000Z/abc_watched.csv")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestFSStore_CompressesAtRest(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "raw", "a/b.csv", []byte("hello"), "text/csv"))

	ondisk, err := os.ReadFile(filepath.Join(dir, "raw", "a", "b.csv.zst"))
	require.NoError(t, err)
	assert.NotEqual(t, []byte("hello"), ondisk, "object should not be stored as plaintext")
}

func TestFSStore_GetMissing(t *testing.T) {
	store := newTestFSStore(t)

	_, err := store.Get(context.Background(), "raw", "does/not/exist.csv")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFSStore_RejectsTraversal(t *testing.T) {
	store := newTestFSStore(t)
	ctx := context.Background()

	assert.Error(t, store.Put(ctx, "raw", "../escape.csv", []byte("x"), "text/csv"))
	assert.Error(t, store.Put(ctx, "raw", "/abs.csv", []byte("x"), "text/csv"))
	assert.Error(t, store.Put(ctx, "raw", "", []byte("x"), "text/csv"))
}

func TestFSStore_Overwrite(t *testing.T) {
	store := newTestFSStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "raw", "k.csv", []byte("first"), "text/csv"))
	require.NoError(t, store.Put(ctx, "raw", "k.csv", []byte("second"), "text/csv"))

	got, err := store.Get(ctx, "raw", "k.csv")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func TestFSStore_List(t *testing.T) {
	store := newTestFSStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "raw", "letterboxd/a/x_ratings.csv", []byte("1"), "text/csv"))
	require.NoError(t, store.Put(ctx, "raw", "letterboxd/b/y_diary.csv", []byte("22"), "text/csv"))
	require.NoError(t, store.Put(ctx, "raw", "other/z.csv", []byte("333"), "text/csv"))

	infos, err := store.List(ctx, "raw", "letterboxd/")
	require.NoError(t, err)
	require.Len(t, infos, 2)

	keys := []string{infos[0].Key, infos[1].Key}
	assert.Contains(t, keys, "letterboxd/a/x_ratings.csv")
	assert.Contains(t, keys, "letterboxd/b/y_diary.csv")
}

func TestFSStore_ListEmptyBucket(t *testing.T) {
	store := newTestFSStore(t)

	infos, err := store.List(context.Background(), "nope", "")
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestFindLatestKey(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	store.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	})

	require.NoError(t, store.Put(ctx, "raw", "letterboxd/20260301T120000Z/a_ratings.csv", []byte("old"), "text/csv"))
	require.NoError(t, store.Put(ctx, "raw", "letterboxd/20260301T130000Z/b_ratings.csv", []byte("new"), "text/csv"))
	require.NoError(t, store.Put(ctx, "raw", "letterboxd/20260301T140000Z/c_diary.csv", []byte("other"), "text/csv"))

	key, err := FindLatestKey(ctx, store, "raw", "letterboxd/", "_ratings.csv")
	require.NoError(t, err)
	assert.Equal(t, "letterboxd/20260301T130000Z/b_ratings.csv", key)
}

func TestFindLatestKey_NoMatch(t *testing.T) {
	store := NewMemoryStore()

	_, err := FindLatestKey(context.Background(), store, "raw", "letterboxd/", "_reviews.csv")
	assert.ErrorIs(t, err, ErrNotFound)
}
