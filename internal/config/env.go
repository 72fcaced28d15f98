package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment keys read by oracle.
const (
	EnvEngine       = "ORACLE_ENGINE"
	EnvModel        = "ORACLE_MODEL"
	EnvHomeDir      = "ORACLE_HOME_DIR"
	EnvNoDetach     = "ORACLE_NO_DETACH"
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvOpenAIBase   = "OPENAI_BASE_URL"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvGeminiKey    = "GEMINI_API_KEY"
	EnvOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// Env is an explicit snapshot of environment variables. Code below the cmd
// layer reads configuration from an Env instead of the process environment.
type Env map[string]string

// Get returns the value of key, or "".
func (e Env) Get(key string) string { return e[key] }

// Bool reports whether key is set to a truthy value (1, true, yes, on).
func (e Env) Bool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(e[key])) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Expand replaces $VAR and ${VAR} in s with values from e.
func (e Env) Expand(s string) string {
	return os.Expand(s, func(k string) string { return e[k] })
}

// EnvFromList builds an Env from KEY=VALUE pairs as returned by os.Environ.
func EnvFromList(pairs []string) Env {
	env := make(Env, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

// LoadEnv snapshots the process environment and layers the variables of the
// dotenv file at path beneath it. A missing file is not an error.
func LoadEnv(path string) (Env, error) {
	env := EnvFromList(os.Environ())
	if path == "" {
		return env, nil
	}
	fileVars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return env, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	for k, v := range fileVars {
		if _, set := env[k]; !set {
			env[k] = v
		}
	}
	return env, nil
}
