package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/spachava753/oracle/internal/config"
	"github.com/spachava753/oracle/internal/llm"
	"github.com/spachava753/oracle/internal/modelcatalog"
	"github.com/spachava753/oracle/internal/usage"
)

// PreviewOptions contains parameters for a dry run
type PreviewOptions struct {
	Mode         config.PreviewMode
	Request      config.RunRequest
	SystemPrompt string
	Files        fs.FS
	Registry     *modelcatalog.Registry
	Writer       io.Writer
}

type previewModel struct {
	Model       string `json:"model"`
	InputTokens int    `json:"inputTokens,omitempty"`
	InputLimit  int    `json:"inputLimit,omitempty"`
	Error       string `json:"error,omitempty"`
}

type previewDocument struct {
	Engine       config.Engine  `json:"engine"`
	Search       bool           `json:"search"`
	Files        []string       `json:"files,omitempty"`
	Models       []previewModel `json:"models"`
	SystemPrompt string         `json:"systemPrompt"`
	Prompt       string         `json:"prompt"`
}

// Preview prints what a run would send without creating a session.
func Preview(opts PreviewOptions) error {
	if opts.Registry == nil {
		return errors.New("preview requires a model registry")
	}
	prompt, err := llm.BuildPrompt(opts.Request.Prompt, opts.Request.Files, opts.Files)
	if err != nil {
		return err
	}

	doc := previewDocument{
		Engine:       opts.Request.Engine,
		Search:       opts.Request.Search,
		Files:        opts.Request.Files,
		SystemPrompt: opts.SystemPrompt,
		Prompt:       prompt,
	}
	for _, name := range opts.Request.Models {
		pm := previewModel{Model: name}
		if cfg, err := opts.Registry.Lookup(name); err != nil {
			pm.Error = err.Error()
		} else {
			pm.InputTokens = cfg.CountTokens(opts.SystemPrompt + prompt)
			pm.InputLimit = cfg.InputLimit
		}
		doc.Models = append(doc.Models, pm)
	}

	if opts.Mode == config.PreviewJSON {
		enc := json.NewEncoder(opts.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}

	w := opts.Writer
	fmt.Fprintf(w, "Engine: %s\n", doc.Engine)
	fmt.Fprintf(w, "Search: %s\n", onOff(doc.Search))
	if len(doc.Files) > 0 {
		fmt.Fprintf(w, "Files: %s\n", strings.Join(doc.Files, ", "))
	}
	fmt.Fprintln(w, "Models:")
	for _, m := range doc.Models {
		switch {
		case m.Error != "":
			fmt.Fprintf(w, "  %s: %s\n", m.Model, m.Error)
		case m.InputLimit > 0 && m.InputTokens > m.InputLimit:
			fmt.Fprintf(w, "  %s: %s input tokens, over the %s limit\n", m.Model, usage.FormatTokenEstimate(m.InputTokens), usage.FormatTokenEstimate(m.InputLimit))
		case m.InputLimit > 0:
			fmt.Fprintf(w, "  %s: %s input tokens (limit %s)\n", m.Model, usage.FormatTokenEstimate(m.InputTokens), usage.FormatTokenEstimate(m.InputLimit))
		default:
			fmt.Fprintf(w, "  %s: %s input tokens\n", m.Model, usage.FormatTokenEstimate(m.InputTokens))
		}
	}
	if opts.Mode == config.PreviewFull {
		fmt.Fprintf(w, "\n--- system prompt ---\n%s\n\n--- prompt ---\n%s\n", doc.SystemPrompt, doc.Prompt)
	}
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
