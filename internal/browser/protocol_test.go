package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeController replays scripted Evaluate results in order and records
// every call it receives.
type fakeController struct {
	mu         sync.Mutex
	responses  []any
	evaluated  []string
	inserted   []string
	keyEvents  []KeyEvent
	insertErr  error
	keyErr     error
	defaultRes any
}

func (f *fakeController) Evaluate(ctx context.Context, expr string, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evaluated = append(f.evaluated, expr)
	var next any = f.defaultRes
	if len(f.responses) > 0 {
		next = f.responses[0]
		f.responses = f.responses[1:]
	}
	if err, ok := next.(error); ok {
		return err
	}
	if out == nil || next == nil {
		return nil
	}
	raw, err := json.Marshal(next)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (f *fakeController) InsertText(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, text)
	return f.insertErr
}

func (f *fakeController) DispatchKeyEvent(ctx context.Context, ev KeyEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keyEvents = append(f.keyEvents, ev)
	return f.keyErr
}

func testOptions(buf *bytes.Buffer) SubmitOptions {
	return SubmitOptions{
		FocusAttempts:  3,
		VerifyAttempts: 2,
		RetryInterval:  time.Millisecond,
		Logger:         slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
}

func TestSubmitPromptFallsBackToEnter(t *testing.T) {
	const prompt = "Hello from Oracle"
	ctrl := &fakeController{responses: []any{
		map[string]any{"focused": true},
		map[string]any{"editorText": prompt, "fallbackValue": ""},
		"missing",
	}}
	var logs bytes.Buffer

	res, err := SubmitPrompt(context.Background(), ctrl, prompt, testOptions(&logs))
	require.NoError(t, err)

	assert.Equal(t, []string{prompt}, ctrl.inserted)
	require.Len(t, ctrl.keyEvents, 2)
	assert.Equal(t, KeyEvent{
		Type:                  KeyDown,
		Key:                   "Enter",
		Code:                  "Enter",
		WindowsVirtualKeyCode: 13,
		NativeVirtualKeyCode:  13,
		Text:                  "\r",
		UnmodifiedText:        "\r",
	}, ctrl.keyEvents[0])
	assert.Equal(t, KeyUp, ctrl.keyEvents[1].Type)
	assert.Equal(t, "Enter", ctrl.keyEvents[1].Key)
	assert.Equal(t, "Enter", ctrl.keyEvents[1].Code)
	assert.Equal(t, 13, ctrl.keyEvents[1].WindowsVirtualKeyCode)
	assert.Contains(t, logs.String(), "Submitted prompt via Enter key")

	assert.Equal(t, SubmitEnter, res.Method)
	assert.Equal(t, []Phase{
		PhaseNotFocused, PhaseFocused, PhaseTextInserted, PhaseVerified, PhaseSubmitting, PhaseConfirmed,
	}, res.Phases)
	assert.Equal(t, []string{focusScript, readbackScript, sendButtonScript}, ctrl.evaluated)
}

func TestSubmitPromptFallbackOnDisabledOrErroringButton(t *testing.T) {
	for name, button := range map[string]any{
		"disabled": "disabled",
		"error":    errors.New("Runtime.evaluate: detached"),
	} {
		t.Run(name, func(t *testing.T) {
			ctrl := &fakeController{responses: []any{
				map[string]any{"focused": true},
				map[string]any{"editorText": "", "fallbackValue": "hi  \n"},
				button,
			}}
			var logs bytes.Buffer
			res, err := SubmitPrompt(context.Background(), ctrl, "hi", testOptions(&logs))
			require.NoError(t, err)
			assert.Equal(t, SubmitEnter, res.Method)
			assert.Len(t, ctrl.keyEvents, 2)
		})
	}
}

func TestSubmitPromptClicksSendButton(t *testing.T) {
	ctrl := &fakeController{responses: []any{
		map[string]any{"focused": true},
		map[string]any{"editorText": "question\n", "fallbackValue": ""},
		"clicked",
	}}
	var logs bytes.Buffer
	res, err := SubmitPrompt(context.Background(), ctrl, "question", testOptions(&logs))
	require.NoError(t, err)
	assert.Equal(t, SubmitClick, res.Method)
	assert.Empty(t, ctrl.keyEvents)
	assert.Equal(t, PhaseConfirmed, res.Phases[len(res.Phases)-1])
}

func TestSubmitPromptFocusRetries(t *testing.T) {
	ctrl := &fakeController{responses: []any{
		map[string]any{"focused": false},
		errors.New("no node"),
		map[string]any{"focused": true},
		map[string]any{"editorText": "x", "fallbackValue": ""},
		"clicked",
	}}
	var logs bytes.Buffer
	_, err := SubmitPrompt(context.Background(), ctrl, "x", testOptions(&logs))
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(strings.Join(ctrl.evaluated, "\x00"), focusScript))
}

func TestSubmitPromptFocusFailure(t *testing.T) {
	ctrl := &fakeController{defaultRes: map[string]any{"focused": false}}
	var logs bytes.Buffer
	res, err := SubmitPrompt(context.Background(), ctrl, "x", testOptions(&logs))

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, PhaseNotFocused, subErr.Phase)
	assert.Equal(t, "input box not found within timeout", subErr.Reason)
	assert.Len(t, ctrl.evaluated, 3)
	assert.Empty(t, ctrl.inserted)
	assert.Equal(t, PhaseFailed, res.Phases[len(res.Phases)-1])
}

func TestSubmitPromptVerificationMismatch(t *testing.T) {
	ctrl := &fakeController{responses: []any{
		map[string]any{"focused": true},
		map[string]any{"editorText": "garbled", "fallbackValue": ""},
		true, // clear
		map[string]any{"focused": true},
		map[string]any{"editorText": "still garbled", "fallbackValue": ""},
	}}
	var logs bytes.Buffer
	res, err := SubmitPrompt(context.Background(), ctrl, "prompt", testOptions(&logs))

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, PhaseTextInserted, subErr.Phase)
	assert.Equal(t, "verification mismatch after 2 retries", subErr.Reason)
	assert.Equal(t, []string{"prompt", "prompt"}, ctrl.inserted)
	assert.Empty(t, ctrl.keyEvents)
	assert.Equal(t, 1, res.VerifyRetries)
}

func TestSubmitPromptVerificationRecovers(t *testing.T) {
	ctrl := &fakeController{responses: []any{
		map[string]any{"focused": true},
		map[string]any{"editorText": "prom", "fallbackValue": ""},
		true,
		map[string]any{"focused": true},
		map[string]any{"editorText": "prompt", "fallbackValue": ""},
		"clicked",
	}}
	var logs bytes.Buffer
	res, err := SubmitPrompt(context.Background(), ctrl, "prompt", testOptions(&logs))
	require.NoError(t, err)
	assert.Equal(t, 1, res.VerifyRetries)
	assert.Equal(t, []string{clearScript}, filter(ctrl.evaluated, clearScript))
}

func TestSubmitPromptInsertFailureIsNotRetried(t *testing.T) {
	ctrl := &fakeController{
		responses: []any{map[string]any{"focused": true}},
		insertErr: errors.New("Input.insertText: target closed"),
	}
	var logs bytes.Buffer
	_, err := SubmitPrompt(context.Background(), ctrl, "prompt", testOptions(&logs))

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "text insertion failed", subErr.Reason)
	assert.Len(t, ctrl.inserted, 1)
	assert.ErrorContains(t, err, "target closed")
}

func TestSubmitPromptKeyDispatchFailure(t *testing.T) {
	ctrl := &fakeController{
		responses: []any{
			map[string]any{"focused": true},
			map[string]any{"editorText": "p", "fallbackValue": ""},
			"missing",
		},
		keyErr: errors.New("Input.dispatchKeyEvent failed"),
	}
	var logs bytes.Buffer
	_, err := SubmitPrompt(context.Background(), ctrl, "p", testOptions(&logs))

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, PhaseSubmitting, subErr.Phase)
	assert.Len(t, ctrl.keyEvents, 1)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "text_inserted", PhaseTextInserted.String())
	assert.Equal(t, "phase(42)", Phase(42).String())
}

func filter(in []string, want string) []string {
	var out []string
	for _, s := range in {
		if s == want {
			out = append(out, s)
		}
	}
	return out
}
