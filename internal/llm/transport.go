// Package llm talks to the provider APIs. Each transport turns one prompt into
// one answer and reports whatever token usage the backend returned.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/spachava753/oracle/internal/config"
	"github.com/spachava753/oracle/internal/modelcatalog"
	"github.com/spachava753/oracle/internal/usage"
)

// Request is a single prompt sent to one model.
type Request struct {
	// Model is the provider's model id, see APIModelID.
	Model           string
	SystemPrompt    string
	Prompt          string
	Search          bool
	ReasoningEffort string
	MaxOutputTokens int
}

// Response is the answer text and the usage the backend reported.
type Response struct {
	Text  string
	Usage usage.Usage
}

// Transport generates one answer per request.
type Transport interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

var defaultKeyEnv = map[modelcatalog.Provider]string{
	modelcatalog.ProviderOpenAI:    config.EnvOpenAIKey,
	modelcatalog.ProviderAnthropic: config.EnvAnthropicKey,
	modelcatalog.ProviderGemini:    config.EnvGeminiKey,
}

// KeyEnv returns the environment variable holding the api key for provider.
func KeyEnv(provider modelcatalog.Provider, cfg config.ProviderConfig) string {
	if cfg.APIKeyEnv != "" {
		return cfg.APIKeyEnv
	}
	return defaultKeyEnv[provider]
}

// apiModelIDs maps catalog names to the ids the provider APIs expect.
var apiModelIDs = map[string]string{
	"claude-4.5-sonnet": "claude-sonnet-4-5",
	"claude-4.1-opus":   "claude-opus-4-1",
	"gemini-3-pro":      "gemini-3-pro-preview",
}

// APIModelID returns the id to send to the provider for a catalog model name.
func APIModelID(name string) string {
	if id, ok := apiModelIDs[name]; ok {
		return id
	}
	return name
}

// NewTransport builds the transport for provider. The api key and base url are
// read from env, never from the process environment.
func NewTransport(ctx context.Context, provider modelcatalog.Provider, cfg config.ProviderConfig, env config.Env, timeout time.Duration) (Transport, error) {
	keyEnv := KeyEnv(provider, cfg)
	if keyEnv == "" {
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
	apiKey := strings.TrimSpace(env.Get(keyEnv))
	if apiKey == "" {
		return nil, fmt.Errorf("missing required authentication: set %s", keyEnv)
	}

	rt, err := BuildPatchTransportFromConfig(http.DefaultTransport, cfg.PatchRequest)
	if err != nil {
		return nil, fmt.Errorf("building %s http transport: %w", provider, err)
	}
	httpClient := &http.Client{Transport: rt}

	opts := clientOptions{
		apiKey:          apiKey,
		baseURL:         cfg.BaseURL,
		httpClient:      httpClient,
		maxRetries:      cfg.MaxRetries,
		maxOutputTokens: cfg.MaxOutputTokens,
		timeout:         timeout,
	}

	switch provider {
	case modelcatalog.ProviderOpenAI:
		if opts.baseURL == "" {
			opts.baseURL = env.Get(config.EnvOpenAIBase)
		}
		return NewOpenAITransport(opts), nil
	case modelcatalog.ProviderAnthropic:
		return NewAnthropicTransport(opts), nil
	case modelcatalog.ProviderGemini:
		return NewGeminiTransport(ctx, opts)
	}
	return nil, fmt.Errorf("unsupported provider %q", provider)
}

// clientOptions are the settings shared by every SDK client.
type clientOptions struct {
	apiKey          string
	baseURL         string
	httpClient      *http.Client
	maxRetries      *int
	maxOutputTokens int
	timeout         time.Duration
}

// Factory builds transports lazily and reuses one per provider.
type Factory struct {
	raw     *config.RawConfig
	env     config.Env
	timeout time.Duration

	// New builds a transport; tests replace it.
	New func(ctx context.Context, provider modelcatalog.Provider, cfg config.ProviderConfig, env config.Env, timeout time.Duration) (Transport, error)

	mu    sync.Mutex
	cache map[modelcatalog.Provider]Transport
}

// NewFactory returns a Factory reading provider settings from raw.
func NewFactory(raw *config.RawConfig, env config.Env, timeout time.Duration) *Factory {
	return &Factory{
		raw:     raw,
		env:     env,
		timeout: timeout,
		New:     NewTransport,
		cache:   make(map[modelcatalog.Provider]Transport),
	}
}

// Transport returns the cached transport for provider, building it on first use.
// Construction errors are not cached so a later call can succeed.
func (f *Factory) Transport(ctx context.Context, provider modelcatalog.Provider) (Transport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.cache[provider]; ok {
		return t, nil
	}
	t, err := f.New(ctx, provider, f.raw.Provider(string(provider)), f.env, f.timeout)
	if err != nil {
		return nil, err
	}
	f.cache[provider] = t
	return t, nil
}

func intPtr(v int64) *int {
	n := int(v)
	return &n
}
