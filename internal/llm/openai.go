package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"

	"github.com/spachava753/oracle/internal/usage"
)

// OpenAITransport uses the Responses API, which is the only surface serving
// the pro models.
type OpenAITransport struct {
	client          openai.Client
	maxOutputTokens int
}

// NewOpenAITransport builds an OpenAI client from opts.
func NewOpenAITransport(opts clientOptions) *OpenAITransport {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.apiKey),
		option.WithHTTPClient(opts.httpClient),
	}
	if opts.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.baseURL))
	}
	if opts.maxRetries != nil {
		reqOpts = append(reqOpts, option.WithMaxRetries(*opts.maxRetries))
	}
	if opts.timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.timeout))
	}
	return &OpenAITransport{
		client:          openai.NewClient(reqOpts...),
		maxOutputTokens: opts.maxOutputTokens,
	}
}

func (t *OpenAITransport) params(req Request) responses.ResponseNewParams {
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(req.Model),
		Input: responses.ResponseNewParamsInputUnion{OfString: openai.String(req.Prompt)},
	}
	if req.SystemPrompt != "" {
		params.Instructions = openai.String(req.SystemPrompt)
	}
	if req.Search {
		params.Tools = []responses.ToolUnionParam{
			{OfWebSearch: &responses.WebSearchToolParam{Type: responses.WebSearchToolTypeWebSearch}},
		}
	}
	if req.ReasoningEffort != "" {
		params.Reasoning = shared.ReasoningParam{Effort: shared.ReasoningEffort(req.ReasoningEffort)}
	}
	maxTokens := req.MaxOutputTokens
	if maxTokens == 0 {
		maxTokens = t.maxOutputTokens
	}
	if maxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(maxTokens))
	}
	return params
}

func (t *OpenAITransport) Generate(ctx context.Context, req Request) (Response, error) {
	resp, err := t.client.Responses.New(ctx, t.params(req))
	if err != nil {
		return Response{}, fmt.Errorf("openai responses request failed: %w", err)
	}
	if resp.Status == responses.ResponseStatusFailed {
		return Response{}, fmt.Errorf("openai response failed: %s", resp.Error.Message)
	}

	var u usage.Usage
	if resp.Usage.JSON.InputTokens.Valid() {
		u.InputTokens = intPtr(resp.Usage.InputTokens)
	}
	if resp.Usage.JSON.OutputTokens.Valid() {
		u.OutputTokens = intPtr(resp.Usage.OutputTokens)
	}
	if resp.Usage.OutputTokensDetails.JSON.ReasoningTokens.Valid() {
		u.ReasoningTokens = intPtr(resp.Usage.OutputTokensDetails.ReasoningTokens)
	}
	if resp.Usage.JSON.TotalTokens.Valid() {
		u.TotalTokens = intPtr(resp.Usage.TotalTokens)
	}
	return Response{Text: resp.OutputText(), Usage: u}, nil
}
