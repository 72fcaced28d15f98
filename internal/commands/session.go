package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spachava753/oracle/internal/config"
	"github.com/spachava753/oracle/internal/render"
	"github.com/spachava753/oracle/internal/storage"
	"github.com/spachava753/oracle/internal/usage"
)

// RunSessionOptions contains parameters for executing a stored session
type RunSessionOptions struct {
	ID      string
	Config  *config.RawConfig
	Env     config.Env
	Backend Backend
	// Files overrides os.DirFS of the session's working directory
	Files  fs.FS
	Stdout io.Writer
	Stderr io.Writer
}

// RunSession executes a pending session from its stored request. It is what
// a detached consult runs in the background.
func RunSession(ctx context.Context, opts RunSessionOptions) (*ConsultResult, error) {
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
	store := opts.Backend.Store

	meta, err := store.ReadMeta(ctx, opts.ID)
	if err != nil {
		return nil, err
	}
	if meta.Status != storage.StatusPending {
		return nil, fmt.Errorf("session %s is %s; only pending sessions can be run", meta.ID, meta.Status)
	}
	stored, err := store.ReadRequest(ctx, opts.ID)
	if err != nil {
		return nil, err
	}
	req, err := runRequestFromSession(opts.Config, opts.Env, stored)
	if err != nil {
		if uerr := store.UpdateStatus(context.WithoutCancel(ctx), meta.ID, storage.StatusFailed, err.Error()); uerr != nil {
			opts.Backend.logger().Warn("could not mark session failed", slog.String("session", meta.ID), slog.String("error", uerr.Error()))
		}
		return nil, err
	}

	fsys := opts.Files
	if fsys == nil {
		cwd := meta.Cwd
		if cwd == "" {
			cwd = "."
		}
		fsys = os.DirFS(cwd)
	}

	summary, err := opts.Backend.dispatch(ctx, dispatchParams{
		Request:      req,
		Session:      meta,
		SystemPrompt: stored.SystemPrompt,
		Files:        fsys,
		Progress:     stderr,
	})
	result := &ConsultResult{SessionID: meta.ID, Summary: summary}
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

// ShowSessionOptions contains parameters for printing a stored session
type ShowSessionOptions struct {
	Store storage.SessionReader
	ID    string
	// Render formats answers as markdown
	Render     bool
	HidePrompt bool
	// Renderer overrides the markdown renderer chosen for Writer
	Renderer render.Renderer
	Writer   io.Writer
}

// ShowSession prints a session's metadata and answers. When no answer was
// stored the session log is printed instead.
func ShowSession(ctx context.Context, opts ShowSessionOptions) error {
	meta, err := opts.Store.ReadMeta(ctx, opts.ID)
	if err != nil {
		return err
	}
	w := opts.Writer
	st := render.NewStyles(w)
	renderer := opts.Renderer
	if renderer == nil {
		renderer = render.Markdown(w)
	}

	fmt.Fprintf(w, "%s %s\n", st.Header.Render("Session"), meta.ID)
	fmt.Fprintf(w, "Status: %s\n", meta.Status)
	if meta.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", meta.Error)
	}
	fmt.Fprintf(w, "Created: %s\n", meta.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "Engine: %s\n", meta.Mode)
	if !opts.HidePrompt {
		fmt.Fprintf(w, "\nPrompt:\n%s\n", strings.TrimRight(meta.Options.Prompt, "\n"))
	}

	runs := meta.Models
	if len(runs) == 0 && meta.Model != "" {
		runs = []storage.ModelRun{{Model: meta.Model, Status: meta.Status}}
	}
	answers := 0
	for _, run := range runs {
		text, err := opts.Store.ReadAnswer(ctx, meta.ID, run.Model)
		if errors.Is(err, storage.ErrSessionNotFound) {
			fmt.Fprintf(w, "\n%s %s\n", st.Header.Render("## "+run.Model), modelState(st, run))
			continue
		}
		if err != nil {
			return err
		}
		answers++
		fmt.Fprintf(w, "\n%s %s\n\n", st.Header.Render("## "+run.Model), modelState(st, run))
		body := text
		if opts.Render {
			if rendered, err := renderer.Render(text); err == nil {
				body = rendered
			}
		}
		fmt.Fprintln(w, strings.TrimRight(body, "\n"))
	}

	if answers == 0 {
		out, err := opts.Store.ReadOutput(ctx, meta.ID)
		if err != nil && !errors.Is(err, storage.ErrSessionNotFound) {
			return err
		}
		if out != "" {
			fmt.Fprintf(w, "\n%s\n%s", st.Header.Render("Log"), out)
		}
	}
	return nil
}

func modelState(st render.Styles, run storage.ModelRun) string {
	switch {
	case run.Error != "":
		return st.Fail.Render(fmt.Sprintf("(%s: %s)", run.Status, run.Error))
	case run.Usage != nil:
		return st.Muted.Render(fmt.Sprintf("(%s, %s)", run.Status, usageTotals(*run.Usage)))
	}
	return st.Muted.Render(fmt.Sprintf("(%s)", run.Status))
}

func usageTotals(e usage.Estimate) string {
	return fmt.Sprintf("%s in, %s out", usage.FormatTokenEstimate(e.Input()), usage.FormatTokenEstimate(e.Output()))
}

// ClearSessionsOptions contains parameters for pruning sessions
type ClearSessionsOptions struct {
	Store      storage.SessionLister
	Hours      float64
	IncludeAll bool
	Writer     io.Writer
}

// ClearSessions deletes finished sessions older than the window, or every
// session with IncludeAll.
func ClearSessions(ctx context.Context, opts ClearSessionsOptions) error {
	n, err := opts.Store.DeleteSessions(ctx, storage.Filter{Hours: opts.Hours, IncludeAll: opts.IncludeAll})
	if err != nil {
		return fmt.Errorf("clearing sessions: %w", err)
	}
	if opts.IncludeAll {
		fmt.Fprintf(opts.Writer, "Deleted %d sessions.\n", n)
		return nil
	}
	fmt.Fprintf(opts.Writer, "Deleted %d sessions older than %g hours.\n", n, opts.Hours)
	return nil
}

// CancelSessionOptions contains parameters for cancelling a session
type CancelSessionOptions struct {
	Store interface {
		ReadMeta(ctx context.Context, id string) (*storage.SessionMeta, error)
		RequestCancel(ctx context.Context, id, reason string) (bool, error)
	}
	ID     string
	Writer io.Writer
}

// CancelSession requests cancellation of a session. The process running it
// notices on its next poll, stops and records the cancelled status; a session
// nobody runs reads as cancelled right away.
func CancelSession(ctx context.Context, opts CancelSessionOptions) error {
	meta, err := opts.Store.ReadMeta(ctx, opts.ID)
	if err != nil {
		return err
	}
	if meta.Status.IsTerminal() {
		fmt.Fprintf(opts.Writer, "Session %s already %s\n", meta.ID, meta.Status)
		return nil
	}
	requested, err := opts.Store.RequestCancel(ctx, meta.ID, "cancelled by user")
	if err != nil {
		return fmt.Errorf("cancelling session %s: %w", meta.ID, err)
	}
	if !requested {
		fmt.Fprintf(opts.Writer, "Session %s already cancelled\n", meta.ID)
		return nil
	}
	fmt.Fprintf(opts.Writer, "Cancelled session %s\n", meta.ID)
	return nil
}
