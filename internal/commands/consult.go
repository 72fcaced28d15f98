package commands

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spachava753/oracle/internal/config"
	"github.com/spachava753/oracle/internal/dispatch"
	"github.com/spachava753/oracle/internal/llm"
)

// ConsultOptions contains all parameters for one consultation
type ConsultOptions struct {
	// Config is the loaded configuration file; nil when there is none
	Config *config.RawConfig
	Env    config.Env
	// Request holds the per-invocation flag values
	Request config.RuntimeOptions

	// Preview prints what would be sent instead of dispatching
	Preview string
	// Detach hands the session to a background process
	Detach bool
	// Spawn starts `oracle session run <id>` in the background
	Spawn func(ctx context.Context, id string) error

	// Cwd resolves attachments and is recorded in the session.
	// Defaults to the process working directory.
	Cwd string
	// Files overrides os.DirFS(Cwd) for reading attachments
	Files fs.FS

	Backend Backend

	// Stdout receives answers. If nil, defaults to os.Stdout.
	Stdout io.Writer
	// Stderr receives the session banner, heartbeats and usage lines.
	// If nil, defaults to os.Stderr.
	Stderr io.Writer
}

// ConsultResult describes a finished (or detached) consultation.
type ConsultResult struct {
	SessionID string
	Summary   dispatch.Summary
	Detached  bool
}

// AllRejectedError is returned when no model produced an answer.
type AllRejectedError struct {
	Rejected int
}

func (e *AllRejectedError) Error() string {
	if e.Rejected == 1 {
		return "the model failed to answer"
	}
	return fmt.Sprintf("all %d models failed to answer", e.Rejected)
}

// Consult resolves the request, creates a session and dispatches it to every
// requested model. A nil result with a nil error means a preview was printed.
func Consult(ctx context.Context, opts ConsultOptions) (*ConsultResult, error) {
	req, err := config.ResolveRunRequest(opts.Config, opts.Env, opts.Request)
	if err != nil {
		return nil, err
	}
	return consult(ctx, opts, req)
}

func consult(ctx context.Context, opts ConsultOptions, req config.RunRequest) (*ConsultResult, error) {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	errw := opts.Stderr
	if errw == nil {
		errw = os.Stderr
	}
	stderr := NewProgressWriter(errw)
	defer stderr.Flush()
	logger := opts.Backend.logger()

	if err := config.EnsureBrowserAvailable(opts.Config, req.Engine, opts.Env); err != nil {
		return nil, err
	}

	cwd := opts.Cwd
	if cwd == "" {
		var err error
		if cwd, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
	}
	files, err := AttachmentPaths(cwd, req.Files)
	if err != nil {
		return nil, err
	}
	req.Files = files
	fsys := opts.Files
	if fsys == nil {
		fsys = os.DirFS(cwd)
	}

	systemPrompt, err := LoadSystemPrompt(LoadSystemPromptOptions{
		Path: req.SystemPromptPath,
		Data: llm.SystemPromptData{
			Model:  req.PrimaryModel(),
			Engine: string(req.Engine),
			Search: req.Search,
			Files:  req.Files,
		},
	})
	if err != nil {
		return nil, err
	}

	if mode, ok := config.ResolvePreviewMode(opts.Preview); ok {
		return nil, Preview(PreviewOptions{
			Mode:         mode,
			Request:      req,
			SystemPrompt: systemPrompt,
			Files:        fsys,
			Registry:     opts.Backend.Registry,
			Writer:       stdout,
		})
	}

	meta, err := opts.Backend.Store.CreateSession(ctx, sessionRequest(req, systemPrompt), cwd)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	fmt.Fprintf(stderr, "Session %s\n", meta.ID)
	result := &ConsultResult{SessionID: meta.ID}

	if opts.Detach && opts.Spawn != nil && !opts.Env.Bool(config.EnvNoDetach) {
		err := opts.Spawn(ctx, meta.ID)
		if err == nil {
			result.Detached = true
			fmt.Fprintf(stderr, "Running in the background; reattach with: oracle session %s\n", meta.ID)
			return result, nil
		}
		logger.Warn("detach failed, running in the foreground", slog.String("session", meta.ID), slog.String("error", err.Error()))
	}

	summary, err := opts.Backend.dispatch(ctx, dispatchParams{
		Request:      req,
		Session:      meta,
		SystemPrompt: systemPrompt,
		Files:        fsys,
		Progress:     stderr,
	})
	result.Summary = summary
	if len(summary.Outcomes()) > 0 {
		PrintSummary(stdout, stderr, summary)
	}
	if err != nil {
		return result, err
	}
	if summary.AllRejected() {
		return result, &AllRejectedError{Rejected: len(summary.Rejected)}
	}
	return result, nil
}
