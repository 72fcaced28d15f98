// Package browser drives a chat web UI tab: it submits a prompt through a
// focus, insert, verify and submit sequence and waits for the answer.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Phase is the state of one submission attempt. It is never persisted.
type Phase int

const (
	PhaseNotFocused Phase = iota
	PhaseFocused
	PhaseTextInserted
	PhaseVerified
	PhaseSubmitting
	PhaseConfirmed
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseNotFocused:
		return "not_focused"
	case PhaseFocused:
		return "focused"
	case PhaseTextInserted:
		return "text_inserted"
	case PhaseVerified:
		return "verified"
	case PhaseSubmitting:
		return "submitting"
	case PhaseConfirmed:
		return "confirmed"
	case PhaseFailed:
		return "failed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// KeyEventType mirrors the CDP Input.dispatchKeyEvent type field.
type KeyEventType string

const (
	KeyDown KeyEventType = "keyDown"
	KeyUp   KeyEventType = "keyUp"
)

// KeyEvent is a synthetic keyboard event.
type KeyEvent struct {
	Type                  KeyEventType
	Key                   string
	Code                  string
	WindowsVirtualKeyCode int
	NativeVirtualKeyCode  int
	Text                  string
	UnmodifiedText        string
}

// Controller is the minimal set of tab primitives the protocol needs.
type Controller interface {
	// Evaluate runs expr in the page and decodes its by-value result into out.
	Evaluate(ctx context.Context, expr string, out any) error
	// InsertText inserts text into the focused element as one operation.
	InsertText(ctx context.Context, text string) error
	DispatchKeyEvent(ctx context.Context, ev KeyEvent) error
}

// SubmitMethod records how the prompt was sent.
type SubmitMethod string

const (
	SubmitClick SubmitMethod = "click"
	SubmitEnter SubmitMethod = "enter"
)

// SubmitOptions bounds the retries of SubmitPrompt.
type SubmitOptions struct {
	FocusAttempts  int
	VerifyAttempts int
	RetryInterval  time.Duration
	Logger         *slog.Logger
}

// DefaultSubmitOptions returns the retry bounds used when none are configured.
func DefaultSubmitOptions() SubmitOptions {
	return SubmitOptions{
		FocusAttempts:  5,
		VerifyAttempts: 3,
		RetryInterval:  250 * time.Millisecond,
	}
}

func (o SubmitOptions) withDefaults() SubmitOptions {
	d := DefaultSubmitOptions()
	if o.FocusAttempts <= 0 {
		o.FocusAttempts = d.FocusAttempts
	}
	if o.VerifyAttempts <= 0 {
		o.VerifyAttempts = d.VerifyAttempts
	}
	if o.RetryInterval < 0 {
		o.RetryInterval = d.RetryInterval
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Result describes a confirmed submission.
type Result struct {
	Phases        []Phase
	Method        SubmitMethod
	VerifyRetries int
}

// SubmissionError is returned when an attempt ends in PhaseFailed. Phase is
// the last phase reached before the failure.
type SubmissionError struct {
	Phase  Phase
	Reason string
	Err    error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("browser submission failed at %s: %s: %v", e.Phase, e.Reason, e.Err)
	}
	return fmt.Sprintf("browser submission failed at %s: %s", e.Phase, e.Reason)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

var (
	errNotFocused   = errors.New("prompt input not focused")
	errTextMismatch = errors.New("prompt text mismatch")
)

type focusResult struct {
	Focused bool `json:"focused"`
}

type readbackResult struct {
	EditorText    string `json:"editorText"`
	FallbackValue string `json:"fallbackValue"`
}

func (r readbackResult) matches(prompt string) bool {
	want := strings.TrimRight(prompt, " \t\r\n")
	return strings.TrimRight(r.EditorText, " \t\r\n") == want ||
		strings.TrimRight(r.FallbackValue, " \t\r\n") == want
}

var (
	enterDown = KeyEvent{
		Type:                  KeyDown,
		Key:                   "Enter",
		Code:                  "Enter",
		WindowsVirtualKeyCode: 13,
		NativeVirtualKeyCode:  13,
		Text:                  "\r",
		UnmodifiedText:        "\r",
	}
	enterUp = KeyEvent{
		Type:                  KeyUp,
		Key:                   "Enter",
		Code:                  "Enter",
		WindowsVirtualKeyCode: 13,
		NativeVirtualKeyCode:  13,
	}
)

type submission struct {
	ctrl   Controller
	opts   SubmitOptions
	prompt string
	result Result
}

func (s *submission) enter(p Phase) {
	s.result.Phases = append(s.result.Phases, p)
}

func (s *submission) current() Phase {
	return s.result.Phases[len(s.result.Phases)-1]
}

func (s *submission) fail(reason string, err error) error {
	last := s.current()
	s.enter(PhaseFailed)
	return &SubmissionError{Phase: last, Reason: reason, Err: err}
}

func (s *submission) retry(ctx context.Context, tries int, op func() error) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, op()
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(s.opts.RetryInterval)),
		backoff.WithMaxTries(uint(tries)),
		backoff.WithMaxElapsedTime(0),
	)
	return err
}

func (s *submission) focus(ctx context.Context) error {
	var res focusResult
	if err := s.ctrl.Evaluate(ctx, focusScript, &res); err != nil {
		return err
	}
	if !res.Focused {
		return errNotFocused
	}
	return nil
}

// SubmitPrompt gets prompt submitted as a new turn in the tab behind ctrl.
// The send control is clicked when usable; otherwise an Enter key press is
// dispatched, which is an equally valid way to submit.
func SubmitPrompt(ctx context.Context, ctrl Controller, prompt string, opts SubmitOptions) (Result, error) {
	s := &submission{ctrl: ctrl, opts: opts.withDefaults(), prompt: prompt}
	log := s.opts.Logger
	s.enter(PhaseNotFocused)

	if err := s.retry(ctx, s.opts.FocusAttempts, func() error { return s.focus(ctx) }); err != nil {
		if ctx.Err() != nil {
			return s.result, s.fail("cancelled while focusing input", ctx.Err())
		}
		return s.result, s.fail("input box not found within timeout", err)
	}
	s.enter(PhaseFocused)

	var (
		attempt   int
		insertErr error
	)
	err := s.retry(ctx, s.opts.VerifyAttempts, func() error {
		attempt++
		if attempt > 1 {
			s.result.VerifyRetries++
			log.Debug("prompt verification mismatch, re-inserting", slog.Int("attempt", attempt))
			if err := s.ctrl.Evaluate(ctx, clearScript, nil); err != nil {
				return err
			}
			if err := s.focus(ctx); err != nil {
				return err
			}
		}
		if err := s.ctrl.InsertText(ctx, s.prompt); err != nil {
			insertErr = err
			return backoff.Permanent(err)
		}
		if s.current() == PhaseFocused {
			s.enter(PhaseTextInserted)
		}
		var rb readbackResult
		if err := s.ctrl.Evaluate(ctx, readbackScript, &rb); err != nil {
			return err
		}
		if !rb.matches(s.prompt) {
			return errTextMismatch
		}
		return nil
	})
	if err != nil {
		switch {
		case insertErr != nil:
			return s.result, s.fail("text insertion failed", insertErr)
		case ctx.Err() != nil:
			return s.result, s.fail("cancelled while verifying input", ctx.Err())
		case errors.Is(err, errTextMismatch):
			return s.result, s.fail(fmt.Sprintf("verification mismatch after %d retries", s.opts.VerifyAttempts), nil)
		default:
			return s.result, s.fail("verification failed", err)
		}
	}
	s.enter(PhaseVerified)

	s.enter(PhaseSubmitting)
	var button string
	if err := s.ctrl.Evaluate(ctx, sendButtonScript, &button); err != nil {
		log.Debug("send button lookup failed, falling back to Enter", slog.String("error", err.Error()))
		button = "error"
	}
	if button == "clicked" {
		s.result.Method = SubmitClick
		log.Info("Submitted prompt via send button")
		s.enter(PhaseConfirmed)
		return s.result, nil
	}

	log.Debug("send button unavailable", slog.String("state", button))
	if err := s.ctrl.DispatchKeyEvent(ctx, enterDown); err != nil {
		return s.result, s.fail("enter key down failed", err)
	}
	if err := s.ctrl.DispatchKeyEvent(ctx, enterUp); err != nil {
		return s.result, s.fail("enter key up failed", err)
	}
	s.result.Method = SubmitEnter
	log.Info("Submitted prompt via Enter key")
	s.enter(PhaseConfirmed)
	return s.result, nil
}
