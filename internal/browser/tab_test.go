package browser

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastWait() WaitOptions {
	return WaitOptions{PollInterval: time.Millisecond, Timeout: time.Second}
}

func TestWaitForAnswerNeedsStableText(t *testing.T) {
	ctrl := &fakeController{responses: []any{
		map[string]any{"count": 1, "done": false, "text": ""},
		map[string]any{"count": 2, "done": false, "text": "Thinking"},
		map[string]any{"count": 2, "done": true, "text": "The answer"},
		map[string]any{"count": 2, "done": true, "text": "The answer is 42"},
		map[string]any{"count": 2, "done": true, "text": "The answer is 42"},
	}}

	text, err := WaitForAnswer(context.Background(), ctrl, 1, fastWait())
	require.NoError(t, err)
	assert.Equal(t, "The answer is 42", text)
	assert.Len(t, ctrl.evaluated, 5)
}

func TestWaitForAnswerIgnoresPreviousTurns(t *testing.T) {
	ctrl := &fakeController{defaultRes: map[string]any{"count": 3, "done": true, "text": "old answer"}}
	_, err := WaitForAnswer(context.Background(), ctrl, 3, WaitOptions{PollInterval: time.Millisecond, Timeout: 30 * time.Millisecond})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestWaitForAnswerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ctrl := &fakeController{defaultRes: map[string]any{"count": 0, "done": false, "text": ""}}
	_, err := WaitForAnswer(ctx, ctrl, 0, fastWait())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTabExchange(t *testing.T) {
	ctrl := &fakeController{responses: []any{
		0, // baseline turn count
		map[string]any{"focused": true},
		map[string]any{"editorText": "why?", "fallbackValue": ""},
		"clicked",
		map[string]any{"count": 1, "done": true, "text": "because"},
		map[string]any{"count": 1, "done": true, "text": "because"},
	}}
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	tab := newTab(context.Background(), ctrl, LaunchOptions{
		Submit: SubmitOptions{RetryInterval: time.Millisecond},
		Wait:   fastWait(),
	}, logger)

	answer, err := tab.exchange(context.Background(), "why?")
	require.NoError(t, err)
	assert.Equal(t, "because", answer)
	assert.Contains(t, logs.String(), "Submitted prompt via send button")
}

func TestModelURL(t *testing.T) {
	got, err := ModelURL("https://chatgpt.com/", "gpt-5-pro")
	require.NoError(t, err)
	assert.Equal(t, "https://chatgpt.com/?model=gpt-5-pro", got)

	got, err = ModelURL("https://chatgpt.com/?temporary-chat=true", "")
	require.NoError(t, err)
	assert.Equal(t, "https://chatgpt.com/?temporary-chat=true", got)
}
