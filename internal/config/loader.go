package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound indicates no config file was found in the standard search locations.
var ErrConfigNotFound = errors.New("configuration file not found")

var configNames = []string{"oracle.yaml", "oracle.yml", "oracle.json"}

// LoadRawConfig loads the config file at explicitPath, or searches the
// standard locations when it is empty. A missing file in the standard
// locations yields an empty config; a missing explicit file is an error.
func LoadRawConfig(explicitPath string, env Env) (*RawConfig, string, error) {
	cfg, path, err := LoadRawConfigWithPath(explicitPath, env)
	if err != nil {
		if explicitPath == "" && errors.Is(err, ErrConfigNotFound) {
			return &RawConfig{}, "", nil
		}
		return nil, "", err
	}
	return cfg, path, nil
}

// LoadRawConfigWithPath loads raw config and returns the resolved config file path.
func LoadRawConfigWithPath(explicitPath string, env Env) (*RawConfig, string, error) {
	var configPath string
	var err error

	if explicitPath != "" {
		configPath = explicitPath
		if _, err := os.Stat(configPath); err != nil {
			if os.IsNotExist(err) {
				return nil, "", fmt.Errorf("specified config file does not exist: %s", configPath)
			}
			return nil, "", fmt.Errorf("cannot access config file %s: %w", configPath, err)
		}
	} else {
		configPath, err = findConfigFile()
		if err != nil {
			return nil, "", fmt.Errorf("%w: %w", ErrConfigNotFound, err)
		}
	}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open config file %s: %w", configPath, err)
	}
	defer file.Close()

	config, err := loadRawConfigFromFile(file, env)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}
	if err := config.Validate(); err != nil {
		return nil, "", err
	}
	return config, configPath, nil
}

// LoadRawConfigFS loads and validates the config file name from fsys.
func LoadRawConfigFS(fsys fs.FS, name string, env Env) (*RawConfig, error) {
	file, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", name, err)
	}
	defer file.Close()

	config, err := loadRawConfigFromFile(file, env)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", name, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// findConfigFile searches the current directory, then the user config directory.
func findConfigFile() (string, error) {
	for _, name := range configNames {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		dir := filepath.Join(userConfigDir, "oracle")
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}

	userConfigPath := "~/.config/oracle/oracle.yaml"
	if userConfigDir != "" {
		userConfigPath = filepath.Join(userConfigDir, "oracle", "oracle.yaml")
	}
	return "", fmt.Errorf(`no configuration file. Create one of:
  - ./oracle.yaml (current directory)
  - %s (user config directory)`, userConfigPath)
}

func loadRawConfigFromFile(file fs.File, env Env) (*RawConfig, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("error getting file info: %w", err)
	}
	return parseConfigData(data, stat.Name(), env)
}

// parseConfigData parses config data based on the filename extension.
// $VAR and ${VAR} references are expanded from env before parsing.
func parseConfigData(data []byte, filename string, env Env) (*RawConfig, error) {
	expandedData := env.Expand(string(data))

	addExpansionHint := func(parseErr error) error {
		if strings.Contains(string(data), "$") {
			return fmt.Errorf("%w (hint: environment variable expansion may have introduced invalid syntax if values contain special characters)", parseErr)
		}
		return parseErr
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".json":
		var config RawConfig
		if err := json.Unmarshal([]byte(expandedData), &config); err != nil {
			return nil, addExpansionHint(fmt.Errorf("error parsing JSON config: %w", err))
		}
		return &config, nil
	case ".yaml", ".yml":
		var config RawConfig
		if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
			return nil, addExpansionHint(fmt.Errorf("error parsing YAML config: %w", err))
		}
		return &config, nil
	default:
		var yamlConfig RawConfig
		yamlErr := yaml.Unmarshal([]byte(expandedData), &yamlConfig)
		if yamlErr == nil {
			return &yamlConfig, nil
		}
		var jsonConfig RawConfig
		jsonErr := json.Unmarshal([]byte(expandedData), &jsonConfig)
		if jsonErr == nil {
			return &jsonConfig, nil
		}
		return nil, addExpansionHint(fmt.Errorf("failed to parse config file: YAML error: %v, JSON error: %v", yamlErr, jsonErr))
	}
}
