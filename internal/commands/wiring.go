package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/trace"

	"github.com/spachava753/oracle/internal/browser"
	"github.com/spachava753/oracle/internal/config"
	"github.com/spachava753/oracle/internal/dispatch"
	"github.com/spachava753/oracle/internal/llm"
	"github.com/spachava753/oracle/internal/modelcatalog"
	"github.com/spachava753/oracle/internal/storage"
)

// BackendOptions contains parameters for building the production Backend
type BackendOptions struct {
	Config         *config.RawConfig
	Env            config.Env
	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
}

// NewBackend opens the session store and builds the model registry described
// by the configuration. The returned close func releases the session index.
func NewBackend(ctx context.Context, opts BackendOptions) (Backend, func() error, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	noClose := func() error { return nil }

	dir, err := config.ResolveSessionsDir(opts.Config, opts.Env)
	if err != nil {
		return Backend{}, noClose, err
	}
	storeOpts := []storage.FSStoreOption{storage.WithLogger(logger)}
	closeFn := noClose
	var idx *storage.Index
	if opts.Config != nil && opts.Config.Defaults.SessionIndex {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Backend{}, noClose, fmt.Errorf("create sessions dir: %w", err)
		}
		idx, err = storage.OpenIndex(ctx, filepath.Join(dir, storage.IndexFile))
		if err != nil {
			return Backend{}, noClose, err
		}
		storeOpts = append(storeOpts, storage.WithIndex(idx))
		closeFn = idx.Close
	}
	store := storage.NewFSStore(dir, storeOpts...)
	if idx != nil && idx.Created() {
		// sessions written before the index was turned on
		if err := store.RebuildIndex(ctx); err != nil {
			return Backend{}, closeFn, fmt.Errorf("building session index: %w", err)
		}
	}

	tokDir, err := config.ResolveTokenizerDir(opts.Env)
	if err != nil {
		return Backend{}, closeFn, err
	}
	registry, err := config.ResolveModels(opts.Config, modelcatalog.NewTokenizer(tokDir, logger))
	if err != nil {
		return Backend{}, closeFn, err
	}

	return Backend{
		Store:          store,
		Registry:       registry,
		NewExecutor:    newExecutor(opts.Config, opts.Env, logger),
		Logger:         logger,
		TracerProvider: opts.TracerProvider,
	}, closeFn, nil
}

// newExecutor launches Chrome for browser runs and builds provider transports
// on demand for API runs.
func newExecutor(raw *config.RawConfig, env config.Env, logger *slog.Logger) ExecutorFunc {
	return func(ctx context.Context, req config.RunRequest) (dispatch.Executor, func(), error) {
		if req.Engine != config.EngineBrowser {
			return &dispatch.APIExecutor{Transports: llm.NewFactory(raw, env, req.Timeout)}, nil, nil
		}
		launch, err := config.ResolveBrowser(raw, env)
		if err != nil {
			return nil, nil, err
		}
		launch.Logger = logger
		tab, err := browser.Launch(ctx, launch)
		if err != nil {
			return nil, nil, err
		}
		return &dispatch.BrowserExecutor{Tab: tab}, func() {
			if err := tab.Close(); err != nil {
				logger.Warn("closing browser", slog.String("error", err.Error()))
			}
		}, nil
	}
}
