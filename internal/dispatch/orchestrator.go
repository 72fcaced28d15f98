// Package dispatch fans one request out to every requested model and joins
// their outcomes into a Summary. A model's failure never affects its siblings.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/spachava753/oracle/internal/config"
	"github.com/spachava753/oracle/internal/llm"
	"github.com/spachava753/oracle/internal/modelcatalog"
	"github.com/spachava753/oracle/internal/storage"
	"github.com/spachava753/oracle/internal/usage"
)

// ErrCancelled is returned by Run when the context ends or the session is
// cancelled from another process before every model settled.
var ErrCancelled = errors.New("dispatch cancelled")

// CancelledReason is the rejection reason of models still running at cancellation.
const CancelledReason = "cancelled"

const (
	tracerName        = "github.com/spachava753/oracle/internal/dispatch"
	defaultCancelPoll = 2 * time.Second
)

// Store is the part of the session store a run writes to.
type Store interface {
	UpdateStatus(ctx context.Context, id string, status storage.Status, reason string) error
	UpdateModel(ctx context.Context, id string, run storage.ModelRun) error
	AppendOutput(ctx context.Context, id string, chunk string) error
	WriteAnswer(ctx context.Context, id, model, text string) error
	CancelRequested(ctx context.Context, id string) (string, bool, error)
}

// cancelRequestedError is the cancel cause of a run stopped by a cancel
// request from another process.
type cancelRequestedError struct{ reason string }

func (e cancelRequestedError) Error() string {
	return "session cancelled externally: " + e.reason
}

// Options configures an Orchestrator.
type Options struct {
	Registry *modelcatalog.Registry
	Executor Executor
	Store    Store

	// SystemPrompt is sent with every API request.
	SystemPrompt string

	// Files resolves the request's attachment paths. Defaults to the working directory.
	Files fs.FS

	// Progress receives heartbeat lines. Nil discards them.
	Progress       io.Writer
	Logger         *slog.Logger
	TracerProvider trace.TracerProvider

	// CancelPoll is how often the session is checked for an external cancel.
	CancelPoll time.Duration
	Now        func() time.Time
}

// Orchestrator runs requests. It holds no per-run state and may be reused.
type Orchestrator struct {
	registry     *modelcatalog.Registry
	executor     Executor
	store        Store
	systemPrompt string
	files        fs.FS
	progress     io.Writer
	logger       *slog.Logger
	tracer       trace.Tracer
	cancelPoll   time.Duration
	now          func() time.Time
}

// New returns an Orchestrator with defaults applied to opts.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		registry:     opts.Registry,
		executor:     opts.Executor,
		store:        opts.Store,
		systemPrompt: opts.SystemPrompt,
		files:        opts.Files,
		progress:     opts.Progress,
		logger:       opts.Logger,
		cancelPoll:   opts.CancelPoll,
		now:          opts.Now,
	}
	if o.files == nil {
		o.files = os.DirFS(".")
	}
	if o.progress == nil {
		o.progress = io.Discard
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	o.tracer = tp.Tracer(tracerName)
	if o.cancelPoll <= 0 {
		o.cancelPoll = defaultCancelPoll
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// run is the shared state of one Run call.
type run struct {
	o       *Orchestrator
	id      string
	started time.Time

	mu       sync.Mutex
	models   []string
	outcomes []Outcome
	closed   bool
}

// Run dispatches req to each of its models and blocks until all of them
// settled or the run is cancelled. Per-model failures are reported as Rejected
// outcomes; the error is non-nil only for an invalid request, a session store
// failure before execution starts, or cancellation (wrapping ErrCancelled).
func (o *Orchestrator) Run(ctx context.Context, req config.RunRequest, session *storage.SessionMeta) (Summary, error) {
	if session == nil {
		return Summary{}, errors.New("dispatch requires a session")
	}
	if o.registry == nil || o.executor == nil || o.store == nil {
		return Summary{}, errors.New("dispatch orchestrator is missing a registry, executor or store")
	}
	id := session.ID

	prompt, err := o.prepare(req)
	if err != nil {
		o.markFailedBestEffort(ctx, id, err.Error())
		return Summary{}, err
	}
	models := req.Models

	ctx, span := o.tracer.Start(ctx, "dispatch.run", trace.WithAttributes(
		attribute.String("session.id", id),
		attribute.String("engine", string(req.Engine)),
		attribute.Int("model.count", len(models)),
	))
	defer span.End()

	if err := o.store.UpdateStatus(ctx, id, storage.StatusRunning, ""); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "session store failure")
		return Summary{}, fmt.Errorf("marking session %s running: %w", id, err)
	}

	r := &run{o: o, id: id, started: o.now(), models: models, outcomes: make([]Outcome, len(models))}
	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	// no errgroup context: one model failing must not cancel the others
	var g errgroup.Group
	for i, name := range models {
		g.Go(func() error {
			r.begin(runCtx, name)
			r.settle(runCtx, i, o.execute(runCtx, req, name, prompt))
			return nil
		})
	}
	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	if err := r.wait(runCtx, cancel, req.Heartbeat, done); err != nil {
		summary := r.close()
		span.SetStatus(codes.Error, "cancelled")
		o.finishCancelled(context.WithoutCancel(ctx), id, err)
		return summary, err
	}

	summary := r.close()
	o.finish(ctx, id, summary)
	if summary.AllRejected() {
		span.SetStatus(codes.Error, "all models rejected")
	}
	return summary, nil
}

// prepare validates req and inlines its attachments.
func (o *Orchestrator) prepare(req config.RunRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	prompt, err := llm.BuildPrompt(req.Prompt, req.Files, o.files)
	if err != nil {
		return "", fmt.Errorf("invalid run request: %w", err)
	}
	return prompt, nil
}

// execute produces the outcome of one model. It never returns an error.
func (o *Orchestrator) execute(ctx context.Context, req config.RunRequest, name, prompt string) (out Outcome) {
	ctx, span := o.tracer.Start(ctx, "dispatch.model", trace.WithAttributes(attribute.String("model", name)))
	defer func() {
		Match(out,
			func(Fulfilled) struct{} {
				span.SetAttributes(attribute.String("outcome", "fulfilled"))
				return struct{}{}
			},
			func(r Rejected) struct{} {
				span.SetAttributes(attribute.String("outcome", "rejected"), attribute.String("reason", r.Reason))
				span.SetStatus(codes.Error, r.Reason)
				return struct{}{}
			},
		)
		span.End()
	}()

	cfg, err := o.registry.Lookup(name)
	if err != nil {
		return Rejected{Model: name, Reason: err.Error()}
	}
	if cfg.InputLimit > 0 {
		if n := cfg.CountTokens(o.systemPrompt + prompt); n > cfg.InputLimit {
			return Rejected{Model: name, Reason: fmt.Sprintf("input too large: %d tokens exceeds the %d token limit of %s", n, cfg.InputLimit, name)}
		}
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	start := o.now()
	ans, err := o.executor.Execute(ctx, Job{Request: req, Model: cfg, SystemPrompt: o.systemPrompt, Prompt: prompt})
	if err != nil {
		span.RecordError(err)
		return Rejected{Model: name, Reason: err.Error()}
	}
	if strings.TrimSpace(ans.Text) == "" {
		return Rejected{Model: name, Reason: "backend returned an empty answer"}
	}
	return Fulfilled{
		Model:    name,
		Answer:   ans.Text,
		Usage:    ans.Usage,
		Estimate: usage.Resolve(&ans.Usage, cfg.Tokenizer, o.systemPrompt+prompt, ans.Text),
		Pricing:  cfg.Pricing,
		Elapsed:  o.now().Sub(start),
	}
}

// wait blocks until done closes or the run is cancelled, emitting heartbeats
// and polling the session for an external cancel meanwhile.
func (r *run) wait(ctx context.Context, cancel context.CancelCauseFunc, heartbeat time.Duration, done <-chan struct{}) error {
	var beat <-chan time.Time
	if heartbeat > 0 {
		t := time.NewTicker(heartbeat)
		defer t.Stop()
		beat = t.C
	}
	poll := time.NewTicker(r.o.cancelPoll)
	defer poll.Stop()

	r.pollCancelled(ctx, cancel)
	for {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx))
		case <-beat:
			r.heartbeat()
		case <-poll.C:
			r.pollCancelled(ctx, cancel)
		}
	}
}

// pollCancelled cancels the run when a cancel was requested for the session,
// which is how `oracle session cancel` reaches a run in another process.
func (r *run) pollCancelled(ctx context.Context, cancel context.CancelCauseFunc) {
	reason, ok, err := r.o.store.CancelRequested(ctx, r.id)
	if err != nil {
		if ctx.Err() == nil {
			r.o.logger.Warn("polling cancel request", slog.String("session", r.id), slog.Any("error", err))
		}
		return
	}
	if ok {
		cancel(cancelRequestedError{reason: reason})
	}
}

func (r *run) heartbeat() {
	r.mu.Lock()
	var pending []string
	for i, o := range r.outcomes {
		if o == nil {
			pending = append(pending, r.models[i])
		}
	}
	r.mu.Unlock()
	if len(pending) == 0 {
		return
	}
	elapsed := r.o.now().Sub(r.started).Round(time.Second)
	fmt.Fprintf(r.o.progress, "[heartbeat] %s elapsed; waiting on %s\n", elapsed, strings.Join(pending, ", "))
	r.o.logger.Debug("dispatch heartbeat", slog.String("session", r.id), slog.Duration("elapsed", elapsed), slog.Int("pending", len(pending)))
}

// begin records that model started. Writes are skipped once the run is closed.
func (r *run) begin(ctx context.Context, model string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || ctx.Err() != nil {
		return
	}
	now := r.o.now()
	r.check("marking model running", r.o.store.UpdateModel(ctx, r.id, storage.ModelRun{Model: model, Status: storage.StatusRunning, StartedAt: &now}))
	r.check("appending output", r.o.store.AppendOutput(ctx, r.id, fmt.Sprintf("[%s] %s: started\n", now.Format(time.RFC3339), model)))
}

// settle stores the outcome at index i and persists it. Outcomes arriving
// after the run context ended are dropped; close reports those models as cancelled.
func (r *run) settle(ctx context.Context, i int, out Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || ctx.Err() != nil {
		r.o.logger.Debug("ignoring late outcome", slog.String("session", r.id), slog.String("model", out.ModelName()))
		return
	}
	r.outcomes[i] = out
	// persistence uses a context that survives cancellation so a settled
	// outcome is never half written
	ctx = context.WithoutCancel(ctx)
	now := r.o.now()
	Match(out,
		func(f Fulfilled) struct{} {
			est := f.Estimate
			r.check("writing answer", r.o.store.WriteAnswer(ctx, r.id, f.Model, f.Answer))
			r.check("recording model", r.o.store.UpdateModel(ctx, r.id, storage.ModelRun{
				Model: f.Model, Status: storage.StatusCompleted, CompletedAt: &now, Usage: &est,
			}))
			r.check("appending output", r.o.store.AppendOutput(ctx, r.id, formatFulfilled(now, f)))
			return struct{}{}
		},
		func(rej Rejected) struct{} {
			r.check("recording model", r.o.store.UpdateModel(ctx, r.id, storage.ModelRun{
				Model: rej.Model, Status: storage.StatusFailed, CompletedAt: &now, Error: rej.Reason,
			}))
			r.check("appending output", r.o.store.AppendOutput(ctx, r.id, fmt.Sprintf("[%s] %s: rejected: %s\n", now.Format(time.RFC3339), rej.Model, rej.Reason)))
			return struct{}{}
		},
	)
	r.o.logger.Info("model settled", slog.String("session", r.id), slog.String("model", out.ModelName()),
		slog.String("outcome", Match(out, func(Fulfilled) string { return "fulfilled" }, func(Rejected) string { return "rejected" })))
}

// check logs a failed session write. Mid-run store failures do not abort the
// run since the outcome is still returned in the summary.
func (r *run) check(what string, err error) {
	if err != nil {
		r.o.logger.Warn("session write failed", slog.String("session", r.id), slog.String("op", what), slog.Any("error", err))
	}
}

func formatFulfilled(now time.Time, f Fulfilled) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s: fulfilled in %s\n", now.Format(time.RFC3339), f.Model, f.Elapsed.Round(time.Millisecond))
	sb.WriteString(f.Answer)
	if !strings.HasSuffix(f.Answer, "\n") {
		sb.WriteByte('\n')
	}
	sb.WriteString(usage.FormatUsageLine(f.Model, f.Estimate, f.Pricing))
	sb.WriteByte('\n')
	return sb.String()
}

// close freezes the outcomes, rejecting unsettled models as cancelled, and
// builds the summary. Later settle calls are ignored.
func (r *run) close() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	out := make([]Outcome, len(r.outcomes))
	for i, o := range r.outcomes {
		if o == nil {
			o = Rejected{Model: r.models[i], Reason: CancelledReason}
		}
		out[i] = o
	}
	return NewSummary(out...)
}

func (o *Orchestrator) finish(ctx context.Context, id string, s Summary) {
	status, reason := storage.StatusCompleted, ""
	if s.AllRejected() {
		status = storage.StatusFailed
		reasons := make([]string, 0, len(s.Rejected))
		for _, r := range s.Rejected {
			reasons = append(reasons, r.Model+": "+r.Reason)
		}
		reason = "all models rejected: " + strings.Join(reasons, "; ")
	}
	if err := o.store.UpdateStatus(ctx, id, status, reason); err != nil {
		o.logger.Warn("recording final session status", slog.String("session", id), slog.Any("error", err))
	}
	o.logger.Info("dispatch finished", slog.String("session", id), slog.String("status", string(status)),
		slog.Int("fulfilled", len(s.Fulfilled)), slog.Int("rejected", len(s.Rejected)))
}

func (o *Orchestrator) finishCancelled(ctx context.Context, id string, cause error) {
	if err := o.store.AppendOutput(ctx, id, fmt.Sprintf("[%s] run cancelled: %v\n", o.now().Format(time.RFC3339), cause)); err != nil {
		o.logger.Warn("appending output", slog.String("session", id), slog.Any("error", err))
	}
	reason := cause.Error()
	var requested cancelRequestedError
	if errors.As(cause, &requested) {
		reason = requested.reason
	}
	if err := o.store.UpdateStatus(ctx, id, storage.StatusCancelled, reason); err != nil {
		o.logger.Warn("recording cancelled status", slog.String("session", id), slog.Any("error", err))
	}
}

func (o *Orchestrator) markFailedBestEffort(ctx context.Context, id, reason string) {
	if err := o.store.UpdateStatus(ctx, id, storage.StatusFailed, reason); err != nil {
		o.logger.Warn("recording failed status", slog.String("session", id), slog.Any("error", err))
	}
}
