package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/spachava753/oracle/internal/modelcatalog"
)

// Validate checks if the configuration is valid.
func (c *RawConfig) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration file: %w", err)
	}

	if err := modelcatalog.Validate(c.Models); err != nil {
		return fmt.Errorf("invalid configuration file: %w", err)
	}

	durations := []struct {
		field, value string
	}{
		{"defaults.heartbeat", c.Defaults.Heartbeat},
		{"defaults.timeout", c.Defaults.Timeout},
		{"browser.retryInterval", c.Browser.RetryInterval},
		{"browser.pollInterval", c.Browser.PollInterval},
		{"browser.answerTimeout", c.Browser.AnswerTimeout},
	}
	for _, d := range durations {
		if _, err := parseDuration(d.value); err != nil {
			return fmt.Errorf("%s: %w", d.field, err)
		}
	}

	if c.Defaults.SessionsDir != "" && !filepath.IsAbs(c.Defaults.SessionsDir) {
		return fmt.Errorf("defaults.sessionsDir must be an absolute path, got %q", c.Defaults.SessionsDir)
	}
	return nil
}

// parseDuration parses an optional duration; "" yields zero.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	return d, nil
}
