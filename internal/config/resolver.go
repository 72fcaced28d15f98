package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/spachava753/oracle/internal/browser"
	"github.com/spachava753/oracle/internal/modelcatalog"
)

// Engine selects how models are reached.
type Engine string

const (
	EngineAPI     Engine = "api"
	EngineBrowser Engine = "browser"
)

const (
	// DefaultHeartbeat is the progress interval when none is configured.
	DefaultHeartbeat = 30 * time.Second
	// DefaultTimeout bounds one API request; pro models can think for a long time.
	DefaultTimeout = 20 * time.Minute
	// ConsultDefaultModel is used by the MCP consult tool when no model is given.
	ConsultDefaultModel = "gpt-5-pro"
)

// RuntimeOptions carries per-invocation values from flags or tool arguments.
// Zero values mean "not set".
type RuntimeOptions struct {
	Prompt           string
	Files            []string
	Model            string
	Models           []string
	Engine           string
	Search           *bool
	Heartbeat        time.Duration
	Timeout          string
	SystemPromptPath string
}

// RunRequest is the resolved, immutable unit of work.
type RunRequest struct {
	Prompt           string        `json:"prompt" validate:"required"`
	Files            []string      `json:"files,omitempty"`
	Models           []string      `json:"models" validate:"min=1,dive,required"`
	Search           bool          `json:"search"`
	Heartbeat        time.Duration `json:"heartbeat" validate:"gte=0"`
	Engine           Engine        `json:"engine" validate:"oneof=api browser"`
	Timeout          time.Duration `json:"timeout" validate:"gte=0"`
	SystemPromptPath string        `json:"systemPromptPath,omitempty"`
}

// Validate checks the request before any execution starts. Models must be
// distinct, so every requested model settles exactly once.
func (r RunRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("invalid run request: prompt is empty")
	}
	seen := make(map[string]struct{}, len(r.Models))
	for _, m := range r.Models {
		if _, dup := seen[m]; dup {
			return fmt.Errorf("invalid run request: model %q requested more than once", m)
		}
		seen[m] = struct{}{}
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(r); err != nil {
		return fmt.Errorf("invalid run request: %w", err)
	}
	return nil
}

// PrimaryModel is the first requested model.
func (r RunRequest) PrimaryModel() string {
	if len(r.Models) == 0 {
		return ""
	}
	return r.Models[0]
}

// ResolveEngine picks the engine with precedence:
// flag > ORACLE_ENGINE > defaults.engine > api when OPENAI_API_KEY is set > browser.
func ResolveEngine(flag string, env Env, raw *RawConfig) (Engine, error) {
	candidates := []struct {
		source, value string
	}{
		{"--engine", flag},
		{EnvEngine, env.Get(EnvEngine)},
	}
	if raw != nil {
		candidates = append(candidates, struct{ source, value string }{"defaults.engine", raw.Defaults.Engine})
	}
	for _, c := range candidates {
		v := strings.ToLower(strings.TrimSpace(c.value))
		if v == "" {
			continue
		}
		switch Engine(v) {
		case EngineAPI, EngineBrowser:
			return Engine(v), nil
		}
		return "", fmt.Errorf("invalid engine %q from %s (must be api or browser)", c.value, c.source)
	}
	if env.Get(EnvOpenAIKey) != "" {
		return EngineAPI, nil
	}
	return EngineBrowser, nil
}

var modelAliases = map[string]string{
	"pro":    "gpt-5.1-pro",
	"sonnet": "claude-4.5-sonnet",
	"opus":   "claude-4.1-opus",
	"gemini": "gemini-3-pro",
	"codex":  "gpt-5.1-codex",
}

var browserModels = map[string]struct{}{
	"gpt-5.1-pro": {}, "gpt-5-pro": {}, "gpt-5.1": {}, "gpt-5.1-codex": {},
}

// NormalizeModelName lower-cases name and expands aliases. In browser mode a
// free-form ChatGPT picker label ("GPT-5.1 Pro") is mapped to a model name.
func NormalizeModelName(name string, engine Engine) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return ""
	}
	if alias, ok := modelAliases[n]; ok {
		n = alias
	}
	if engine != EngineBrowser {
		return n
	}
	if _, ok := browserModels[n]; ok {
		return n
	}
	switch {
	case strings.Contains(n, "5.1") && strings.Contains(n, "pro"):
		return "gpt-5.1-pro"
	case strings.Contains(n, "pro"):
		return "gpt-5-pro"
	case strings.Contains(n, "5.1"):
		return "gpt-5.1"
	}
	return n
}

// resolveModels applies precedence flag list > flag model > ORACLE_MODEL >
// defaults.models > defaults.model > built-in default, normalizes each name
// and drops duplicates keeping the first position.
func resolveModels(raw *RawConfig, env Env, opts RuntimeOptions, engine Engine) []string {
	var names []string
	switch {
	case len(opts.Models) > 0:
		names = opts.Models
	case opts.Model != "":
		names = []string{opts.Model}
	case env.Get(EnvModel) != "":
		names = strings.Split(env.Get(EnvModel), ",")
	case len(raw.Defaults.Models) > 0:
		names = raw.Defaults.Models
	case raw.Defaults.Model != "":
		names = []string{raw.Defaults.Model}
	default:
		names = []string{modelcatalog.DefaultModel}
	}

	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		n := NormalizeModelName(name, engine)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// DefaultModels returns the models a run would ask when no model flag is given.
func DefaultModels(raw *RawConfig, env Env) []string {
	if raw == nil {
		raw = &RawConfig{}
	}
	return resolveModels(raw, env, RuntimeOptions{}, EngineAPI)
}

// ResolveRunRequest merges runtime options, the environment and the config
// file into a validated RunRequest.
func ResolveRunRequest(raw *RawConfig, env Env, opts RuntimeOptions) (RunRequest, error) {
	if raw == nil {
		raw = &RawConfig{}
	}
	engine, err := ResolveEngine(opts.Engine, env, raw)
	if err != nil {
		return RunRequest{}, err
	}

	search := true
	if opts.Search != nil {
		search = *opts.Search
	} else if raw.Defaults.Search != nil {
		search = *raw.Defaults.Search
	}

	heartbeat, err := resolveHeartbeat(raw.Defaults, opts)
	if err != nil {
		return RunRequest{}, err
	}
	timeout, err := resolveTimeout(raw.Defaults, opts)
	if err != nil {
		return RunRequest{}, err
	}

	systemPromptPath := opts.SystemPromptPath
	if systemPromptPath == "" {
		systemPromptPath = raw.Defaults.SystemPromptPath
	}

	req := RunRequest{
		Prompt:           opts.Prompt,
		Files:            append([]string(nil), opts.Files...),
		Models:           resolveModels(raw, env, opts, engine),
		Search:           search,
		Heartbeat:        heartbeat,
		Engine:           engine,
		Timeout:          timeout,
		SystemPromptPath: systemPromptPath,
	}
	if err := req.Validate(); err != nil {
		return RunRequest{}, err
	}
	return req, nil
}

// resolveHeartbeat resolves the heartbeat with precedence:
// CLI flag > defaults.heartbeat > DefaultHeartbeat
func resolveHeartbeat(defaults Defaults, opts RuntimeOptions) (time.Duration, error) {
	if opts.Heartbeat > 0 {
		return opts.Heartbeat, nil
	}
	d, err := parseDuration(defaults.Heartbeat)
	if err != nil {
		return 0, fmt.Errorf("invalid defaults.heartbeat: %w", err)
	}
	if d > 0 {
		return d, nil
	}
	return DefaultHeartbeat, nil
}

// resolveTimeout resolves timeout with precedence:
// CLI flag > Global defaults > DefaultTimeout
func resolveTimeout(defaults Defaults, opts RuntimeOptions) (time.Duration, error) {
	timeout := DefaultTimeout

	if opts.Timeout != "" {
		parsedTimeout, err := time.ParseDuration(opts.Timeout)
		if err != nil {
			return 0, fmt.Errorf("invalid timeout value %q: %w", opts.Timeout, err)
		}
		timeout = parsedTimeout
	} else if defaults.Timeout != "" {
		parsedTimeout, err := time.ParseDuration(defaults.Timeout)
		if err != nil {
			return 0, fmt.Errorf("invalid default timeout value %q: %w", defaults.Timeout, err)
		}
		timeout = parsedTimeout
	}

	return timeout, nil
}

// ConsultInput is the argument set of the MCP consult tool.
type ConsultInput struct {
	Prompt string
	Files  []string
	Model  string
	Engine string
}

// MapConsultToRunRequest resolves an MCP consult call. Unlike the CLI it
// always searches, defaults to ConsultDefaultModel and uses DefaultHeartbeat.
func MapConsultToRunRequest(raw *RawConfig, env Env, in ConsultInput) (RunRequest, error) {
	model := in.Model
	if strings.TrimSpace(model) == "" {
		model = ConsultDefaultModel
	}
	search := true
	return ResolveRunRequest(raw, env, RuntimeOptions{
		Prompt:    in.Prompt,
		Files:     in.Files,
		Model:     model,
		Engine:    in.Engine,
		Search:    &search,
		Heartbeat: DefaultHeartbeat,
	})
}

// ResolveHomeDir returns ORACLE_HOME_DIR, or ~/.oracle.
func ResolveHomeDir(env Env) (string, error) {
	if dir := env.Get(EnvHomeDir); dir != "" {
		return filepath.Abs(dir)
	}
	home := env.Get("HOME")
	if home == "" {
		home = env.Get("USERPROFILE")
	}
	if home == "" {
		var err error
		if home, err = os.UserHomeDir(); err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
	}
	return filepath.Join(home, ".oracle"), nil
}

// ResolveSessionsDir returns defaults.sessionsDir, or <home>/sessions. The
// result never depends on the working directory.
func ResolveSessionsDir(raw *RawConfig, env Env) (string, error) {
	if raw != nil && raw.Defaults.SessionsDir != "" {
		return raw.Defaults.SessionsDir, nil
	}
	home, err := ResolveHomeDir(env)
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "sessions"), nil
}

// PreviewMode selects what a dry run prints.
type PreviewMode string

const (
	PreviewSummary PreviewMode = "summary"
	PreviewJSON    PreviewMode = "json"
	PreviewFull    PreviewMode = "full"
)

// ResolvePreviewMode maps a --preview value to a mode. An empty value means
// no preview; an unknown value falls back to summary.
func ResolvePreviewMode(value string) (PreviewMode, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	switch PreviewMode(v) {
	case "":
		return "", false
	case PreviewSummary, PreviewJSON, PreviewFull:
		return PreviewMode(v), true
	}
	if v == "false" || v == "0" {
		return "", false
	}
	return PreviewSummary, true
}

func browserEnv(raw *RawConfig, env Env) Env {
	if raw == nil || raw.Browser.ChromePath == "" || env.Get(browser.ChromePathEnv) != "" {
		return env
	}
	out := make(Env, len(env)+1)
	for k, v := range env {
		out[k] = v
	}
	out[browser.ChromePathEnv] = raw.Browser.ChromePath
	return out
}

// EnsureBrowserAvailable fails fast when browser mode is selected but no
// Chrome binary is configured or installed.
func EnsureBrowserAvailable(raw *RawConfig, engine Engine, env Env) error {
	if raw != nil && raw.Browser.RemoteURL != "" {
		return nil
	}
	return browser.EnsureAvailable(string(engine), browserEnv(raw, env))
}

// ResolveBrowser builds launch options from the browser config section.
func ResolveBrowser(raw *RawConfig, env Env) (browser.LaunchOptions, error) {
	if raw == nil {
		raw = &RawConfig{}
	}
	b := raw.Browser
	opts := browser.LaunchOptions{
		RemoteURL:   b.RemoteURL,
		UserDataDir: b.UserDataDir,
		Headless:    b.Headless,
		ChatURL:     b.ChatURL,
		Submit: browser.SubmitOptions{
			FocusAttempts:  b.FocusAttempts,
			VerifyAttempts: b.VerifyAttempts,
		},
	}
	if opts.RemoteURL == "" {
		path, ok := browser.FindChrome(browserEnv(raw, env))
		if !ok {
			return browser.LaunchOptions{}, browser.ErrBrowserUnavailable
		}
		opts.ChromePath = path
	}
	if opts.UserDataDir == "" {
		home, err := ResolveHomeDir(env)
		if err != nil {
			return browser.LaunchOptions{}, err
		}
		opts.UserDataDir = filepath.Join(home, "browser-profile")
	}

	var err error
	if opts.Submit.RetryInterval, err = parseDuration(b.RetryInterval); err != nil {
		return browser.LaunchOptions{}, fmt.Errorf("browser.retryInterval: %w", err)
	}
	if b.RetryInterval == "" {
		opts.Submit.RetryInterval = browser.DefaultSubmitOptions().RetryInterval
	}
	if opts.Wait.PollInterval, err = parseDuration(b.PollInterval); err != nil {
		return browser.LaunchOptions{}, fmt.Errorf("browser.pollInterval: %w", err)
	}
	if opts.Wait.Timeout, err = parseDuration(b.AnswerTimeout); err != nil {
		return browser.LaunchOptions{}, fmt.Errorf("browser.answerTimeout: %w", err)
	}
	return opts, nil
}

// ResolveTelemetry returns the telemetry section with the OTLP endpoint
// falling back to OTEL_EXPORTER_OTLP_ENDPOINT.
func ResolveTelemetry(raw *RawConfig, env Env) TelemetryConfig {
	var t TelemetryConfig
	if raw != nil {
		t = raw.Telemetry
	}
	if t.Endpoint == "" {
		t.Endpoint = env.Get(EnvOTLPEndpoint)
	}
	return t
}

// ResolveTokenizerDir returns the directory holding offline BPE tables.
func ResolveTokenizerDir(env Env) (string, error) {
	home, err := ResolveHomeDir(env)
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "tiktoken"), nil
}

// ResolveModels builds the model registry from the built-in table and the
// config file entries.
func ResolveModels(raw *RawConfig, tok modelcatalog.TokenizerFunc) (*modelcatalog.Registry, error) {
	var extra []modelcatalog.ModelConfig
	if raw != nil {
		extra = modelcatalog.ModelConfigs(raw.Models)
	}
	return modelcatalog.NewRegistry(tok, extra...)
}
