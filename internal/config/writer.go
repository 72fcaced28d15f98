package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath returns the config path used by `oracle config init`.
func DefaultConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "oracle.yaml"
	}
	return filepath.Join(configDir, "oracle", "oracle.yaml")
}

// StarterConfig is written by `oracle config init`.
func StarterConfig() *RawConfig {
	search := true
	return &RawConfig{
		Version: "1.0",
		Defaults: Defaults{
			Search:    &search,
			Heartbeat: DefaultHeartbeat.String(),
		},
		Providers: map[string]ProviderConfig{
			"openai":    {APIKeyEnv: EnvOpenAIKey},
			"anthropic": {APIKeyEnv: EnvAnthropicKey},
			"gemini":    {APIKeyEnv: EnvGeminiKey},
		},
	}
}

// WriteRawConfig writes the config to a file
func WriteRawConfig(path string, cfg *RawConfig) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
