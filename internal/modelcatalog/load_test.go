package modelcatalog

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	return p
}

func TestLoad_Valid(t *testing.T) {
	dir := t.TempDir()
	json := `[
	  {"name":"claude-haiku-4-5","provider":"anthropic","input_limit":200000,"input_cost_per_million":1,"output_cost_per_million":5},
	  {"name":"gpt-5-nano","input_limit":400000,"reasoning_effort":"low"}
	]`
	p := writeTemp(t, dir, "models.json", json)
	ms, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ms) != 2 {
		t.Fatalf("expected 2 models, got %d", len(ms))
	}
	if ms[0].Pricing == nil || ms[0].Pricing.OutputPerToken != 5.0/1_000_000 {
		t.Fatalf("unexpected pricing: %+v", ms[0].Pricing)
	}
	if ms[1].Provider != ProviderOpenAI {
		t.Fatalf("provider not inferred: %q", ms[1].Provider)
	}
	if ms[1].Reasoning == nil || ms[1].Reasoning.Effort != "low" {
		t.Fatalf("reasoning not loaded: %+v", ms[1].Reasoning)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, "bad.json", `{"not":"array"}`)
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for invalid JSON array")
	}
}

func TestValidate(t *testing.T) {
	one := 1.0
	tests := []struct {
		name    string
		entries []CatalogEntry
	}{
		{"missing name", []CatalogEntry{{InputLimit: 1}}},
		{"bad provider", []CatalogEntry{{Name: "x", Provider: "cohere", InputLimit: 1}}},
		{"unknown provider", []CatalogEntry{{Name: "llama", InputLimit: 1}}},
		{"zero limit", []CatalogEntry{{Name: "gpt-x"}}},
		{"half pricing", []CatalogEntry{{Name: "gpt-x", InputLimit: 1, InputCostPerMillion: &one}}},
		{"duplicate", []CatalogEntry{{Name: "gpt-x", InputLimit: 1}, {Name: "gpt-x", InputLimit: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate(tt.entries); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
