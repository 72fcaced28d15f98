package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexedStore(t *testing.T) {
	ctx := context.Background()
	idx, err := OpenIndex(ctx, filepath.Join(t.TempDir(), IndexFile))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	store, clock := newTestStore(t, WithIndex(idx))

	first, err := store.CreateSession(ctx, testRequest("first", "gpt-5.1"), "")
	require.NoError(t, err)
	clock.Advance(1)
	second, err := store.CreateSession(ctx, testRequest("second", "gpt-5.1"), "")
	require.NoError(t, err)

	ids, err := idx.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID, first.ID}, ids)

	list, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	n, err := store.DeleteSessions(ctx, Filter{IncludeAll: true})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	ids, err = idx.IDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestIndexRebuild(t *testing.T) {
	ctx := context.Background()
	plain, _ := newTestStore(t)
	meta, err := plain.CreateSession(ctx, testRequest("unindexed", "gpt-5.1"), "")
	require.NoError(t, err)

	idx, err := OpenIndex(ctx, filepath.Join(t.TempDir(), IndexFile))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	indexed := NewFSStore(plain.Root(), WithIndex(idx))
	require.NoError(t, indexed.RebuildIndex(ctx))
	ids, err := idx.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{meta.ID}, ids)
}

func TestIndexedStoreHealsStaleIndex(t *testing.T) {
	ctx := context.Background()
	idx, err := OpenIndex(ctx, filepath.Join(t.TempDir(), IndexFile))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	indexed, clock := newTestStore(t, WithIndex(idx))
	first, err := indexed.CreateSession(ctx, testRequest("indexed", "gpt-5.1"), "")
	require.NoError(t, err)

	// a process with the index turned off writes to the same directory
	clock.Advance(1)
	plain := NewFSStore(indexed.Root(), WithClock(clock.Now))
	second, err := plain.CreateSession(ctx, testRequest("unindexed", "gpt-5.1"), "")
	require.NoError(t, err)

	list, err := indexed.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	ids, err := idx.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID, first.ID}, ids)

	// a directory removed behind the index's back is dropped as well
	require.NoError(t, os.RemoveAll(indexed.SessionDir(first.ID)))
	list, err = indexed.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	ids, err = idx.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID}, ids)
}

func TestOpenIndexIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), IndexFile)

	idx, err := OpenIndex(ctx, path)
	require.NoError(t, err)
	assert.True(t, idx.Created())
	require.NoError(t, idx.Upsert(ctx, &SessionMeta{ID: "kept-000000", Status: StatusPending}))
	require.NoError(t, idx.Close())

	idx, err = OpenIndex(ctx, path)
	require.NoError(t, err)
	assert.False(t, idx.Created())
	t.Cleanup(func() { _ = idx.Close() })
	ids, err := idx.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"kept-000000"}, ids)
}
