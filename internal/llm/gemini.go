package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/spachava753/oracle/internal/usage"
)

// GeminiTransport uses GenerateContent on the Gemini API backend.
type GeminiTransport struct {
	client          *genai.Client
	maxOutputTokens int
}

// NewGeminiTransport builds a genai client from opts.
func NewGeminiTransport(ctx context.Context, opts clientOptions) (*GeminiTransport, error) {
	cc := &genai.ClientConfig{
		APIKey:     opts.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.httpClient,
	}
	if opts.baseURL != "" {
		cc.HTTPOptions.BaseURL = opts.baseURL
	}
	if opts.timeout > 0 {
		timeout := opts.timeout
		cc.HTTPOptions.Timeout = &timeout
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiTransport{client: client, maxOutputTokens: opts.maxOutputTokens}, nil
}

var geminiThinkingLevels = map[string]genai.ThinkingLevel{
	"low":    genai.ThinkingLevelLow,
	"medium": genai.ThinkingLevelMedium,
	"high":   genai.ThinkingLevelHigh,
}

func (t *GeminiTransport) config(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.Search {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	if level, ok := geminiThinkingLevels[req.ReasoningEffort]; ok {
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingLevel: level}
	}
	maxTokens := req.MaxOutputTokens
	if maxTokens == 0 {
		maxTokens = t.maxOutputTokens
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}
	return cfg
}

func (t *GeminiTransport) Generate(ctx context.Context, req Request) (Response, error) {
	resp, err := t.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), t.config(req))
	if err != nil {
		return Response{}, fmt.Errorf("gemini generate content failed: %w", err)
	}

	// counts are omitted from the payload when zero
	var u usage.Usage
	if md := resp.UsageMetadata; md != nil {
		if md.PromptTokenCount > 0 {
			u.InputTokens = intPtr(int64(md.PromptTokenCount))
		}
		if md.CandidatesTokenCount > 0 {
			u.OutputTokens = intPtr(int64(md.CandidatesTokenCount))
		}
		if md.ThoughtsTokenCount > 0 {
			u.ReasoningTokens = intPtr(int64(md.ThoughtsTokenCount))
		}
		if md.TotalTokenCount > 0 {
			u.TotalTokens = intPtr(int64(md.TotalTokenCount))
		}
	}
	return Response{Text: resp.Text(), Usage: u}, nil
}
