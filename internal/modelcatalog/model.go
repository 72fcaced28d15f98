package modelcatalog

import "strings"

// DefaultModel is used when neither flags, environment nor config name a model.
const DefaultModel = "gpt-5.1-pro"

// DefaultSystemPrompt is sent when no system prompt template is configured.
const DefaultSystemPrompt = "You are Oracle, a focused one-shot problem solver. " +
	"Emphasize direct answers, cite any files referenced, and clearly note when the search tool was used."

// Provider identifies the API family a model is served by.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
)

// TokenizerFunc counts the tokens of text for a model.
type TokenizerFunc func(text string) int

// Pricing is the per-token cost in USD.
type Pricing struct {
	InputPerToken  float64 `json:"inputPerToken"`
	OutputPerToken float64 `json:"outputPerToken"`
}

// Reasoning holds the reasoning effort requested from models that support it.
type Reasoning struct {
	Effort string `json:"effort"`
}

// ModelConfig describes one model. Values are immutable once registered.
type ModelConfig struct {
	Name       string
	Provider   Provider
	Tokenizer  TokenizerFunc
	InputLimit int
	// Pricing is nil when the price is unknown.
	Pricing   *Pricing
	Reasoning *Reasoning
}

// CountTokens runs the model tokenizer, falling back to the heuristic counter.
func (m ModelConfig) CountTokens(text string) int {
	if m.Tokenizer == nil {
		return HeuristicTokens(text)
	}
	return m.Tokenizer(text)
}

var proModels = map[string]struct{}{
	"gpt-5.1-pro":       {},
	"gpt-5-pro":         {},
	"claude-4.5-sonnet": {},
	"claude-4.1-opus":   {},
}

// IsPro reports whether name is one of the long-running pro models.
func IsPro(name string) bool {
	_, ok := proModels[name]
	return ok
}

// ProviderFor infers the provider from a model name.
func ProviderFor(name string) (Provider, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch {
	case strings.HasPrefix(n, "gpt-"), strings.HasPrefix(n, "o1"), strings.HasPrefix(n, "o3"), strings.HasPrefix(n, "o4"):
		return ProviderOpenAI, true
	case strings.HasPrefix(n, "claude-"):
		return ProviderAnthropic, true
	case strings.HasPrefix(n, "gemini-"):
		return ProviderGemini, true
	}
	return "", false
}

func perMillion(v float64) float64 { return v / 1_000_000 }

func builtinModels(tok TokenizerFunc) []ModelConfig {
	high := &Reasoning{Effort: "high"}
	proPricing := &Pricing{InputPerToken: perMillion(15), OutputPerToken: perMillion(120)}
	gpt51Pricing := &Pricing{InputPerToken: perMillion(1.25), OutputPerToken: perMillion(10)}
	return []ModelConfig{
		{Name: "gpt-5.1-pro", Provider: ProviderOpenAI, Tokenizer: tok, InputLimit: 196000, Pricing: proPricing},
		{Name: "gpt-5-pro", Provider: ProviderOpenAI, Tokenizer: tok, InputLimit: 196000, Pricing: proPricing},
		{Name: "gpt-5.1", Provider: ProviderOpenAI, Tokenizer: tok, InputLimit: 196000, Pricing: gpt51Pricing, Reasoning: high},
		{Name: "gpt-5.1-codex", Provider: ProviderOpenAI, Tokenizer: tok, InputLimit: 196000, Pricing: gpt51Pricing, Reasoning: high},
		{Name: "gemini-3-pro", Provider: ProviderGemini, Tokenizer: tok, InputLimit: 200000,
			Pricing: &Pricing{InputPerToken: perMillion(2), OutputPerToken: perMillion(12)}},
		{Name: "claude-4.5-sonnet", Provider: ProviderAnthropic, Tokenizer: tok, InputLimit: 200000, Reasoning: high},
		{Name: "claude-4.1-opus", Provider: ProviderAnthropic, Tokenizer: tok, InputLimit: 200000, Reasoning: high},
	}
}
