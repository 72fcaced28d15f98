package config

import (
	"github.com/spachava753/oracle/internal/modelcatalog"
)

// RawConfig is the configuration file as written by the user.
type RawConfig struct {
	// Version for future compatibility
	Version string `yaml:"version,omitempty" json:"version,omitempty"`

	Defaults Defaults `yaml:"defaults,omitempty" json:"defaults,omitempty"`

	// Additional or overriding model definitions
	Models []modelcatalog.CatalogEntry `yaml:"models,omitempty" json:"models,omitempty" validate:"dive"`

	// Per-provider transport settings keyed by openai, anthropic or gemini
	Providers map[string]ProviderConfig `yaml:"providers,omitempty" json:"providers,omitempty" validate:"dive,keys,oneof=openai anthropic gemini,endkeys"`

	Browser BrowserConfig `yaml:"browser,omitempty" json:"browser,omitempty"`

	Telemetry TelemetryConfig `yaml:"telemetry,omitempty" json:"telemetry,omitempty"`
}

// Defaults holds values used when neither a flag nor the environment sets them.
type Defaults struct {
	Model  string   `yaml:"model,omitempty" json:"model,omitempty"`
	Models []string `yaml:"models,omitempty" json:"models,omitempty" validate:"dive,required"`
	Engine string   `yaml:"engine,omitempty" json:"engine,omitempty" validate:"omitempty,oneof=api browser"`
	Search *bool    `yaml:"search,omitempty" json:"search,omitempty"`

	// Heartbeat interval, e.g. "30s"
	Heartbeat string `yaml:"heartbeat,omitempty" json:"heartbeat,omitempty"`

	// Request timeout for API transports
	Timeout string `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// Path to a system prompt template
	SystemPromptPath string `yaml:"systemPromptPath,omitempty" json:"systemPromptPath,omitempty"`

	// Sessions directory override; must be absolute after expansion
	SessionsDir string `yaml:"sessionsDir,omitempty" json:"sessionsDir,omitempty"`

	// Mirror session metadata into a sqlite index for listing
	SessionIndex bool `yaml:"sessionIndex,omitempty" json:"sessionIndex,omitempty"`
}

// ProviderConfig configures the API transport of one provider.
type ProviderConfig struct {
	APIKeyEnv       string              `yaml:"api_key_env,omitempty" json:"api_key_env,omitempty"`
	BaseURL         string              `yaml:"base_url,omitempty" json:"base_url,omitempty" validate:"omitempty,url"`
	MaxRetries      *int                `yaml:"maxRetries,omitempty" json:"maxRetries,omitempty" validate:"omitempty,gte=0"`
	MaxOutputTokens int                 `yaml:"maxOutputTokens,omitempty" json:"maxOutputTokens,omitempty" validate:"gte=0"`
	PatchRequest    *PatchRequestConfig `yaml:"patchRequest,omitempty" json:"patchRequest,omitempty"`
}

// PatchRequestConfig holds configuration for patching HTTP requests
type PatchRequestConfig struct {
	JSONPatch      []map[string]interface{} `yaml:"jsonPatch,omitempty" json:"jsonPatch,omitempty"`
	IncludeHeaders map[string]string        `yaml:"includeHeaders,omitempty" json:"includeHeaders,omitempty"`
}

// BrowserConfig configures Chrome and the submission retry bounds.
type BrowserConfig struct {
	ChromePath  string `yaml:"chromePath,omitempty" json:"chromePath,omitempty"`
	RemoteURL   string `yaml:"remoteURL,omitempty" json:"remoteURL,omitempty" validate:"omitempty,url"`
	UserDataDir string `yaml:"userDataDir,omitempty" json:"userDataDir,omitempty"`
	ChatURL     string `yaml:"chatURL,omitempty" json:"chatURL,omitempty" validate:"omitempty,url"`
	Headless    bool   `yaml:"headless,omitempty" json:"headless,omitempty"`

	FocusAttempts  int    `yaml:"focusAttempts,omitempty" json:"focusAttempts,omitempty" validate:"gte=0"`
	VerifyAttempts int    `yaml:"verifyAttempts,omitempty" json:"verifyAttempts,omitempty" validate:"gte=0"`
	RetryInterval  string `yaml:"retryInterval,omitempty" json:"retryInterval,omitempty"`
	PollInterval   string `yaml:"pollInterval,omitempty" json:"pollInterval,omitempty"`
	AnswerTimeout  string `yaml:"answerTimeout,omitempty" json:"answerTimeout,omitempty"`
}

// TelemetryConfig enables OTLP trace export.
type TelemetryConfig struct {
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Insecure bool   `yaml:"insecure,omitempty" json:"insecure,omitempty"`
}

// Provider returns the transport settings for provider, or the zero value.
func (c *RawConfig) Provider(provider string) ProviderConfig {
	if c == nil {
		return ProviderConfig{}
	}
	return c.Providers[provider]
}
