package modelcatalog

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownModel is returned by Lookup for names missing from the registry.
var ErrUnknownModel = errors.New("unknown model")

// Registry is a read-only lookup table of model configurations.
type Registry struct {
	models map[string]ModelConfig
	names  []string
}

// NewRegistry builds a registry of the built-in models plus extra entries.
// Extra entries replace built-ins of the same name; entries without a
// tokenizer get tok.
func NewRegistry(tok TokenizerFunc, extra ...ModelConfig) (*Registry, error) {
	if tok == nil {
		tok = HeuristicTokens
	}
	r := &Registry{models: make(map[string]ModelConfig)}
	for _, m := range builtinModels(tok) {
		r.models[m.Name] = m
	}
	for i, m := range extra {
		if m.Name == "" {
			return nil, fmt.Errorf("extra model[%d]: name is required", i)
		}
		if m.Tokenizer == nil {
			m.Tokenizer = tok
		}
		if m.Provider == "" {
			p, ok := ProviderFor(m.Name)
			if !ok {
				return nil, fmt.Errorf("extra model %q: provider is required", m.Name)
			}
			m.Provider = p
		}
		r.models[m.Name] = m
	}
	for name := range r.models {
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r, nil
}

// Lookup returns the configuration for name.
func (r *Registry) Lookup(name string) (ModelConfig, error) {
	m, ok := r.models[name]
	if !ok {
		return ModelConfig{}, fmt.Errorf("%w %q", ErrUnknownModel, name)
	}
	return m, nil
}

// Names returns the registered model names sorted alphabetically.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
