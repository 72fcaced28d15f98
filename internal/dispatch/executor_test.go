package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spachava753/oracle/internal/config"
	"github.com/spachava753/oracle/internal/llm"
	"github.com/spachava753/oracle/internal/modelcatalog"
	"github.com/spachava753/oracle/internal/usage"
)

type recordingTransport struct {
	got  llm.Request
	resp llm.Response
	err  error
}

func (r *recordingTransport) Generate(_ context.Context, req llm.Request) (llm.Response, error) {
	r.got = req
	return r.resp, r.err
}

type fakeTransports struct {
	byProvider map[modelcatalog.Provider]llm.Transport
	err        error
}

func (f fakeTransports) Transport(_ context.Context, p modelcatalog.Provider) (llm.Transport, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byProvider[p], nil
}

func TestAPIExecutor(t *testing.T) {
	tr := &recordingTransport{resp: llm.Response{Text: "hi", Usage: usage.Usage{OutputTokens: usage.Int(3)}}}
	exec := &APIExecutor{Transports: fakeTransports{byProvider: map[modelcatalog.Provider]llm.Transport{
		modelcatalog.ProviderAnthropic: tr,
	}}}

	ans, err := exec.Execute(context.Background(), Job{
		Request:      config.RunRequest{Search: true},
		Model:        modelcatalog.ModelConfig{Name: "claude-4.5-sonnet", Reasoning: &modelcatalog.Reasoning{Effort: "high"}},
		SystemPrompt: "sys",
		Prompt:       "prompt",
	})
	require.NoError(t, err)
	assert.Equal(t, "hi", ans.Text)
	assert.Equal(t, 3, *ans.Usage.OutputTokens)
	assert.Equal(t, llm.Request{
		Model:           "claude-sonnet-4-5",
		SystemPrompt:    "sys",
		Prompt:          "prompt",
		Search:          true,
		ReasoningEffort: "high",
	}, tr.got)
}

func TestAPIExecutorErrors(t *testing.T) {
	exec := &APIExecutor{Transports: fakeTransports{err: errors.New("missing required authentication: set OPENAI_API_KEY")}}
	_, err := exec.Execute(context.Background(), Job{Model: modelcatalog.ModelConfig{Name: "gpt-5.1", Provider: modelcatalog.ProviderOpenAI}})
	require.EqualError(t, err, "missing required authentication: set OPENAI_API_KEY")

	_, err = exec.Execute(context.Background(), Job{Model: modelcatalog.ModelConfig{Name: "llama-3"}})
	require.ErrorContains(t, err, "no provider known")

	failing := &recordingTransport{err: errors.New("429 rate limited")}
	exec = &APIExecutor{Transports: fakeTransports{byProvider: map[modelcatalog.Provider]llm.Transport{modelcatalog.ProviderGemini: failing}}}
	_, err = exec.Execute(context.Background(), Job{Model: modelcatalog.ModelConfig{Name: "gemini-3-pro", Provider: modelcatalog.ProviderGemini}})
	require.EqualError(t, err, "429 rate limited")
}

type fakeConsulter struct {
	model, prompt string
	answer        string
	err           error
}

func (f *fakeConsulter) Consult(_ context.Context, model, prompt string) (string, error) {
	f.model, f.prompt = model, prompt
	return f.answer, f.err
}

func TestBrowserExecutor(t *testing.T) {
	tab := &fakeConsulter{answer: "from the ui"}
	exec := &BrowserExecutor{Tab: tab}

	ans, err := exec.Execute(context.Background(), Job{Model: modelcatalog.ModelConfig{Name: "gpt-5.1-pro"}, SystemPrompt: "ignored", Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, Answer{Text: "from the ui"}, ans)
	assert.Equal(t, "gpt-5.1-pro", tab.model)
	assert.Equal(t, "hello", tab.prompt)

	_, err = (&BrowserExecutor{}).Execute(context.Background(), Job{})
	require.ErrorContains(t, err, "browser session is not available")
}
