package commands

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/spachava753/oracle/internal/config"
	"github.com/spachava753/oracle/internal/dispatch"
	"github.com/spachava753/oracle/internal/modelcatalog"
	"github.com/spachava753/oracle/internal/storage"
)

// ExecutorFunc builds the executor for a request's engine. The returned
// cleanup, if any, runs once the dispatch is over.
type ExecutorFunc func(ctx context.Context, req config.RunRequest) (dispatch.Executor, func(), error)

// Backend holds the collaborators shared by every command that dispatches.
// The cmd layer builds it from the configuration; tests fill it with fakes.
type Backend struct {
	Store       storage.SessionStore
	Registry    *modelcatalog.Registry
	NewExecutor ExecutorFunc

	Logger         *slog.Logger
	TracerProvider trace.TracerProvider

	// CancelPoll overrides how often a run checks for an external cancel.
	CancelPoll time.Duration
}

func (b Backend) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.Default()
	}
	return b.Logger
}

type dispatchParams struct {
	Request      config.RunRequest
	Session      *storage.SessionMeta
	SystemPrompt string
	Files        fs.FS
	Progress     io.Writer
}

func (b Backend) dispatch(ctx context.Context, p dispatchParams) (dispatch.Summary, error) {
	exec, cleanup, err := b.NewExecutor(ctx, p.Request)
	if err != nil {
		err = fmt.Errorf("starting %s engine: %w", p.Request.Engine, err)
		if uerr := b.Store.UpdateStatus(context.WithoutCancel(ctx), p.Session.ID, storage.StatusFailed, err.Error()); uerr != nil {
			b.logger().Warn("could not mark session failed", slog.String("session", p.Session.ID), slog.String("error", uerr.Error()))
		}
		return dispatch.Summary{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	orch := dispatch.New(dispatch.Options{
		Registry:       b.Registry,
		Executor:       exec,
		Store:          b.Store,
		SystemPrompt:   p.SystemPrompt,
		Files:          p.Files,
		Progress:       p.Progress,
		Logger:         b.logger(),
		TracerProvider: b.TracerProvider,
		CancelPoll:     b.CancelPoll,
	})
	return orch.Run(ctx, p.Request, p.Session)
}

func sessionRequest(req config.RunRequest, systemPrompt string) storage.SessionRequest {
	return storage.SessionRequest{
		SessionOptions: storage.SessionOptions{
			Prompt:            req.Prompt,
			Model:             req.PrimaryModel(),
			Models:            req.Models,
			Mode:              storage.Mode(req.Engine),
			Files:             req.Files,
			Search:            req.Search,
			HeartbeatInterval: req.Heartbeat,
		},
		SystemPrompt: systemPrompt,
	}
}

// runRequestFromSession rebuilds the request a session was created with.
// Settings not recorded in the session, like the timeout, come from the
// current configuration.
func runRequestFromSession(raw *config.RawConfig, env config.Env, sr *storage.SessionRequest) (config.RunRequest, error) {
	models := sr.Models
	if len(models) == 0 && sr.Model != "" {
		models = []string{sr.Model}
	}
	search := sr.Search
	return config.ResolveRunRequest(raw, env, config.RuntimeOptions{
		Prompt:    sr.Prompt,
		Files:     sr.Files,
		Models:    models,
		Engine:    string(sr.Mode),
		Search:    &search,
		Heartbeat: sr.HeartbeatInterval,
	})
}
