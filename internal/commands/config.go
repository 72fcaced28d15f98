package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/spachava753/oracle/internal/config"
)

// ConfigInitOptions contains parameters for writing a starter config
type ConfigInitOptions struct {
	Path   string
	Force  bool
	Writer io.Writer
}

// ConfigInit writes config.StarterConfig to Path, refusing to overwrite an
// existing file unless Force is set.
func ConfigInit(ctx context.Context, opts ConfigInitOptions) error {
	path := opts.Path
	if path == "" {
		path = config.DefaultConfigPath()
	}
	if _, err := os.Stat(path); err == nil && !opts.Force {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", path, err)
	}
	if err := config.WriteRawConfig(path, config.StarterConfig()); err != nil {
		return err
	}
	fmt.Fprintf(opts.Writer, "Wrote %s\n", path)
	return nil
}

// ConfigShowOptions contains parameters for printing the effective config
type ConfigShowOptions struct {
	Config *config.RawConfig
	// Path is where Config was loaded from; empty when no file was found
	Path   string
	Writer io.Writer
}

// ConfigShow prints the loaded config as YAML after environment expansion.
func ConfigShow(ctx context.Context, opts ConfigShowOptions) error {
	if opts.Config == nil || opts.Path == "" {
		fmt.Fprintln(opts.Writer, "# no configuration file found; built-in defaults apply")
		return nil
	}
	fmt.Fprintf(opts.Writer, "# %s\n", opts.Path)
	enc := yaml.NewEncoder(opts.Writer)
	enc.SetIndent(2)
	if err := enc.Encode(opts.Config); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}

// ConfigLintOptions contains parameters for config validation
type ConfigLintOptions struct {
	Config *config.RawConfig
	Path   string
	Writer io.Writer
}

// ConfigLint validates a configuration file
func ConfigLint(ctx context.Context, opts ConfigLintOptions) error {
	if opts.Config == nil || opts.Path == "" {
		return errors.New("no configuration file to lint")
	}
	if err := opts.Config.Validate(); err != nil {
		return err
	}
	fmt.Fprintf(opts.Writer, "✓ Configuration is valid\n")
	fmt.Fprintf(opts.Writer, "  File: %s\n", opts.Path)
	fmt.Fprintf(opts.Writer, "  Models: %d\n", len(opts.Config.Models))
	if len(opts.Config.Providers) > 0 {
		fmt.Fprintf(opts.Writer, "  Providers: %d\n", len(opts.Config.Providers))
	}
	if m := opts.Config.Defaults.Model; m != "" {
		fmt.Fprintf(opts.Writer, "  Default Model: %s\n", m)
	}
	return nil
}
