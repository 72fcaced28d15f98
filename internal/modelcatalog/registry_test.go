package modelcatalog

import (
	"errors"
	"math"
	"testing"
)

func TestLookupBuiltins(t *testing.T) {
	r, err := NewRegistry(nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	tests := []struct {
		name       string
		provider   Provider
		inputLimit int
		inPrice    float64
		hasPricing bool
		effort     string
	}{
		{"gpt-5.1-pro", ProviderOpenAI, 196000, 15.0 / 1_000_000, true, ""},
		{"gpt-5-pro", ProviderOpenAI, 196000, 15.0 / 1_000_000, true, ""},
		{"gpt-5.1", ProviderOpenAI, 196000, 1.25 / 1_000_000, true, "high"},
		{"gpt-5.1-codex", ProviderOpenAI, 196000, 1.25 / 1_000_000, true, "high"},
		{"gemini-3-pro", ProviderGemini, 200000, 2.0 / 1_000_000, true, ""},
		{"claude-4.5-sonnet", ProviderAnthropic, 200000, 0, false, "high"},
		{"claude-4.1-opus", ProviderAnthropic, 200000, 0, false, "high"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := r.Lookup(tt.name)
			if err != nil {
				t.Fatalf("Lookup: %v", err)
			}
			if m.Provider != tt.provider {
				t.Errorf("provider = %q, want %q", m.Provider, tt.provider)
			}
			if m.InputLimit != tt.inputLimit {
				t.Errorf("input limit = %d, want %d", m.InputLimit, tt.inputLimit)
			}
			if (m.Pricing != nil) != tt.hasPricing {
				t.Fatalf("pricing presence = %v, want %v", m.Pricing != nil, tt.hasPricing)
			}
			if m.Pricing != nil && math.Abs(m.Pricing.InputPerToken-tt.inPrice) > 1e-12 {
				t.Errorf("input price = %g, want %g", m.Pricing.InputPerToken, tt.inPrice)
			}
			gotEffort := ""
			if m.Reasoning != nil {
				gotEffort = m.Reasoning.Effort
			}
			if gotEffort != tt.effort {
				t.Errorf("effort = %q, want %q", gotEffort, tt.effort)
			}
			if m.Tokenizer == nil {
				t.Errorf("tokenizer not set")
			}
		})
	}
}

func TestLookupUnknown(t *testing.T) {
	r, err := NewRegistry(nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	_, err = r.Lookup("gpt-0")
	if !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("expected ErrUnknownModel, got %v", err)
	}
}

func TestExtraModelsOverrideBuiltins(t *testing.T) {
	fixed := func(string) int { return 7 }
	r, err := NewRegistry(fixed,
		ModelConfig{Name: "gpt-5.1", InputLimit: 1000},
		ModelConfig{Name: "claude-haiku-4-5", InputLimit: 200000},
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	m, err := r.Lookup("gpt-5.1")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if m.InputLimit != 1000 {
		t.Errorf("override not applied: %d", m.InputLimit)
	}
	if m.Provider != ProviderOpenAI {
		t.Errorf("provider not inferred: %q", m.Provider)
	}
	h, err := r.Lookup("claude-haiku-4-5")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if h.CountTokens("anything") != 7 {
		t.Errorf("extra model did not receive default tokenizer")
	}
}

func TestExtraModelUnknownProvider(t *testing.T) {
	if _, err := NewRegistry(nil, ModelConfig{Name: "mystery"}); err == nil {
		t.Fatal("expected error for model without provider")
	}
}

func TestNamesSorted(t *testing.T) {
	r, err := NewRegistry(nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	names := r.Names()
	if len(names) != 7 {
		t.Fatalf("expected 7 builtin models, got %d", len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("names not sorted: %v", names)
		}
	}
}

func TestIsPro(t *testing.T) {
	for _, name := range []string{"gpt-5.1-pro", "gpt-5-pro", "claude-4.5-sonnet", "claude-4.1-opus"} {
		if !IsPro(name) {
			t.Errorf("%s should be pro", name)
		}
	}
	if IsPro("gpt-5.1") {
		t.Errorf("gpt-5.1 should not be pro")
	}
}

func TestProviderFor(t *testing.T) {
	tests := map[string]Provider{
		"gpt-5-nano":                ProviderOpenAI,
		"o3-mini":                   ProviderOpenAI,
		"claude-haiku-4-5-20251001": ProviderAnthropic,
		"gemini-2.5-flash-lite":     ProviderGemini,
	}
	for name, want := range tests {
		got, ok := ProviderFor(name)
		if !ok || got != want {
			t.Errorf("ProviderFor(%q) = %q, %v; want %q", name, got, ok, want)
		}
	}
	if _, ok := ProviderFor("llama-3"); ok {
		t.Errorf("llama-3 should have no provider")
	}
}

func TestHeuristicTokens(t *testing.T) {
	if got := HeuristicTokens(""); got != 0 {
		t.Errorf("empty = %d", got)
	}
	if got := HeuristicTokens("abcd"); got != 1 {
		t.Errorf("abcd = %d", got)
	}
	if got := HeuristicTokens("abcde"); got != 2 {
		t.Errorf("abcde = %d", got)
	}
}

func TestNewTokenizerFallsBackWithoutRanks(t *testing.T) {
	tok := NewTokenizer(t.TempDir(), nil)
	if got := tok("abcdefgh"); got != 2 {
		t.Errorf("expected heuristic count 2, got %d", got)
	}
}
