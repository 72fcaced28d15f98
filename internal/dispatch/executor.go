package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/spachava753/oracle/internal/config"
	"github.com/spachava753/oracle/internal/llm"
	"github.com/spachava753/oracle/internal/modelcatalog"
	"github.com/spachava753/oracle/internal/usage"
)

// Answer is what an executor got back from a backend.
type Answer struct {
	Text  string
	Usage usage.Usage
}

// Job is one model's share of a run.
type Job struct {
	Request      config.RunRequest
	Model        modelcatalog.ModelConfig
	SystemPrompt string
	// Prompt is the user prompt with attachments inlined.
	Prompt string
}

// Executor reaches one model. Implementations must be safe for concurrent use.
type Executor interface {
	Execute(ctx context.Context, job Job) (Answer, error)
}

// Transports hands out a transport per provider.
type Transports interface {
	Transport(ctx context.Context, provider modelcatalog.Provider) (llm.Transport, error)
}

// APIExecutor calls the provider API of each model.
type APIExecutor struct {
	Transports Transports
}

func (e *APIExecutor) Execute(ctx context.Context, job Job) (Answer, error) {
	provider := job.Model.Provider
	if provider == "" {
		p, ok := modelcatalog.ProviderFor(job.Model.Name)
		if !ok {
			return Answer{}, fmt.Errorf("no provider known for model %q", job.Model.Name)
		}
		provider = p
	}
	t, err := e.Transports.Transport(ctx, provider)
	if err != nil {
		return Answer{}, err
	}

	req := llm.Request{
		Model:        llm.APIModelID(job.Model.Name),
		SystemPrompt: job.SystemPrompt,
		Prompt:       job.Prompt,
		Search:       job.Request.Search,
	}
	if job.Model.Reasoning != nil {
		req.ReasoningEffort = job.Model.Reasoning.Effort
	}
	resp, err := t.Generate(ctx, req)
	if err != nil {
		return Answer{}, err
	}
	return Answer{Text: resp.Text, Usage: resp.Usage}, nil
}

// Consulter runs one prompt through a chat UI. *browser.Tab implements it.
type Consulter interface {
	Consult(ctx context.Context, model, prompt string) (string, error)
}

// BrowserExecutor drives a chat UI tab. The tab serializes submissions, so
// models dispatched concurrently queue on it. The chat UI keeps its own
// system prompt, so Job.SystemPrompt is not sent.
type BrowserExecutor struct {
	Tab Consulter
}

func (e *BrowserExecutor) Execute(ctx context.Context, job Job) (Answer, error) {
	if e.Tab == nil {
		return Answer{}, errors.New("browser session is not available")
	}
	text, err := e.Tab.Consult(ctx, job.Model.Name, job.Prompt)
	if err != nil {
		return Answer{}, err
	}
	return Answer{Text: text}, nil
}
