package modelcatalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// CatalogEntry is one model in a user supplied catalog file.
type CatalogEntry struct {
	Name                 string   `json:"name" yaml:"name" validate:"required"`
	Provider             string   `json:"provider,omitempty" yaml:"provider,omitempty" validate:"omitempty,oneof=openai anthropic gemini"`
	InputLimit           int      `json:"input_limit" yaml:"input_limit" validate:"gt=0"`
	InputCostPerMillion  *float64 `json:"input_cost_per_million,omitempty" yaml:"input_cost_per_million,omitempty" validate:"omitempty,gte=0"`
	OutputCostPerMillion *float64 `json:"output_cost_per_million,omitempty" yaml:"output_cost_per_million,omitempty" validate:"omitempty,gte=0"`
	ReasoningEffort      string   `json:"reasoning_effort,omitempty" yaml:"reasoning_effort,omitempty" validate:"omitempty,oneof=low medium high"`
}

// Load reads a JSON array of catalog entries and converts them to model configs.
func Load(path string) ([]ModelConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model catalog: %w", err)
	}
	var entries []CatalogEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("parse model catalog JSON: %w", err)
	}
	if err := Validate(entries); err != nil {
		return nil, err
	}
	return ModelConfigs(entries), nil
}

// ModelConfigs converts validated entries to model configs.
func ModelConfigs(entries []CatalogEntry) []ModelConfig {
	models := make([]ModelConfig, 0, len(entries))
	for _, e := range entries {
		models = append(models, e.toModelConfig())
	}
	return models
}

// Validate checks names, providers and limits of catalog entries.
func Validate(entries []CatalogEntry) error {
	seen := map[string]struct{}{}
	for i, e := range entries {
		if strings.TrimSpace(e.Name) == "" {
			return fmt.Errorf("model[%d]: name is required", i)
		}
		switch Provider(strings.ToLower(strings.TrimSpace(e.Provider))) {
		case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
		case "":
			if _, ok := ProviderFor(e.Name); !ok {
				return fmt.Errorf("model[%d] %q: provider is required", i, e.Name)
			}
		default:
			return fmt.Errorf("model[%d] %q: invalid provider %q (must be openai|anthropic|gemini)", i, e.Name, e.Provider)
		}
		if e.InputLimit <= 0 {
			return fmt.Errorf("model[%d] %q: input_limit must be positive", i, e.Name)
		}
		if (e.InputCostPerMillion == nil) != (e.OutputCostPerMillion == nil) {
			return fmt.Errorf("model[%d] %q: input and output cost must be set together", i, e.Name)
		}
		if _, ok := seen[e.Name]; ok {
			return fmt.Errorf("duplicate model name: %s", e.Name)
		}
		seen[e.Name] = struct{}{}
	}
	return nil
}

func (e CatalogEntry) toModelConfig() ModelConfig {
	m := ModelConfig{
		Name:       e.Name,
		Provider:   Provider(strings.ToLower(strings.TrimSpace(e.Provider))),
		InputLimit: e.InputLimit,
	}
	if m.Provider == "" {
		m.Provider, _ = ProviderFor(e.Name)
	}
	if e.InputCostPerMillion != nil && e.OutputCostPerMillion != nil {
		m.Pricing = &Pricing{
			InputPerToken:  perMillion(*e.InputCostPerMillion),
			OutputPerToken: perMillion(*e.OutputCostPerMillion),
		}
	}
	if e.ReasoningEffort != "" {
		m.Reasoning = &Reasoning{Effort: e.ReasoningEffort}
	}
	return m
}
