package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/spachava753/oracle/internal/modelcatalog"
	"github.com/spachava753/oracle/internal/usage"
)

// ModelListOptions contains parameters for listing models
type ModelListOptions struct {
	Registry *modelcatalog.Registry
	// Defaults are marked in the listing
	Defaults []string
	Writer   io.Writer
}

// ModelList lists every registered model
func ModelList(ctx context.Context, opts ModelListOptions) error {
	for _, name := range opts.Registry.Names() {
		line := name
		if slices.Contains(opts.Defaults, name) {
			line += " (default)"
		}
		fmt.Fprintln(opts.Writer, line)
	}
	return nil
}

// ModelInfoOptions contains parameters for showing model details
type ModelInfoOptions struct {
	Registry  *modelcatalog.Registry
	ModelName string
	Writer    io.Writer
}

// ModelInfo displays detailed information about a specific model
func ModelInfo(ctx context.Context, opts ModelInfoOptions) error {
	if opts.ModelName == "" {
		return errors.New("no model name provided")
	}
	m, err := opts.Registry.Lookup(opts.ModelName)
	if err != nil {
		return err
	}

	w := opts.Writer
	fmt.Fprintf(w, "Name: %s\nProvider: %s\nInput Limit: %s tokens\n",
		m.Name, m.Provider, usage.FormatTokenEstimate(m.InputLimit))
	if m.Pricing != nil {
		fmt.Fprintf(w, "Input Cost Per Million: $%.2f\nOutput Cost Per Million: $%.2f\n",
			m.Pricing.InputPerToken*1_000_000, m.Pricing.OutputPerToken*1_000_000)
	} else {
		fmt.Fprintln(w, "Pricing: unknown")
	}
	if m.Reasoning != nil {
		fmt.Fprintf(w, "Reasoning Effort: %s\n", m.Reasoning.Effort)
	}
	if modelcatalog.IsPro(m.Name) {
		fmt.Fprintln(w, "Long running: yes")
	}
	return nil
}
