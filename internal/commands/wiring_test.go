package commands

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spachava753/oracle/internal/config"
	"github.com/spachava753/oracle/internal/storage"
)

func TestNewBackendIndexesExistingSessions(t *testing.T) {
	ctx := context.Background()
	home := t.TempDir()
	dir := filepath.Join(home, "sessions")
	env := config.Env{config.EnvHomeDir: home}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	newBackend := func(index bool) Backend {
		t.Helper()
		raw := &config.RawConfig{Defaults: config.Defaults{SessionsDir: dir, SessionIndex: index}}
		backend, closeFn, err := NewBackend(ctx, BackendOptions{Config: raw, Env: env, Logger: logger})
		require.NoError(t, err)
		t.Cleanup(func() { _ = closeFn() })
		return backend
	}

	plain := newBackend(false)
	meta, err := plain.Store.CreateSession(ctx, storage.SessionRequest{SessionOptions: storage.SessionOptions{
		Prompt: "before the index", Model: "gpt-5.1-pro", Mode: storage.ModeAPI,
	}}, home)
	require.NoError(t, err)

	indexed := newBackend(true)
	list, err := indexed.Store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, meta.ID, list[0].ID)

	// reopening finds the index populated
	idx, err := storage.OpenIndex(ctx, filepath.Join(dir, storage.IndexFile))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	assert.False(t, idx.Created())
	ids, err := idx.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{meta.ID}, ids)
}
