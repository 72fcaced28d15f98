package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/spachava753/oracle/internal/usage"
)

const (
	anthropicDefaultMaxTokens = 32000
	anthropicThinkingBudget   = 16000
)

// AnthropicTransport uses the Messages API.
type AnthropicTransport struct {
	client          anthropic.Client
	maxOutputTokens int
}

// NewAnthropicTransport builds an Anthropic client from opts.
func NewAnthropicTransport(opts clientOptions) *AnthropicTransport {
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
	return &AnthropicTransport{
		client:          anthropic.NewClient(reqOpts...),
		maxOutputTokens: opts.maxOutputTokens,
	}
}

func (t *AnthropicTransport) params(req Request) anthropic.MessageNewParams {
	maxTokens := req.MaxOutputTokens
	if maxTokens == 0 {
		maxTokens = t.maxOutputTokens
	}
	if maxTokens == 0 {
		maxTokens = anthropicDefaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	// the thinking budget must stay below max_tokens
	if req.ReasoningEffort == "high" && maxTokens > anthropicThinkingBudget {
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(anthropicThinkingBudget)
	}
	if req.Search {
		params.Tools = []anthropic.ToolUnionParam{
			{OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{}},
		}
	}
	return params
}

func (t *AnthropicTransport) Generate(ctx context.Context, req Request) (Response, error) {
	msg, err := t.client.Messages.New(ctx, t.params(req))
	if err != nil {
		return Response{}, fmt.Errorf("anthropic messages request failed: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	var u usage.Usage
	if msg.Usage.JSON.InputTokens.Valid() {
		u.InputTokens = intPtr(msg.Usage.InputTokens)
	}
	if msg.Usage.JSON.OutputTokens.Valid() {
		u.OutputTokens = intPtr(msg.Usage.OutputTokens)
	}
	return Response{Text: text.String(), Usage: u}, nil
}
