package commands

import (
	"fmt"
	"os"

	"github.com/spachava753/oracle/internal/llm"
	"github.com/spachava753/oracle/internal/modelcatalog"
)

// LoadSystemPromptOptions contains parameters for loading a system prompt
type LoadSystemPromptOptions struct {
	// Path is a template file; empty selects the built-in prompt
	Path string
	Data llm.SystemPromptData
}

// LoadSystemPrompt reads and renders the system prompt template.
func LoadSystemPrompt(opts LoadSystemPromptOptions) (string, error) {
	tmpl := modelcatalog.DefaultSystemPrompt
	if opts.Path != "" {
		contents, err := os.ReadFile(opts.Path)
		if err != nil {
			return "", fmt.Errorf("could not read system prompt file %q: %w", opts.Path, err)
		}
		tmpl = string(contents)
	}

	rendered, err := llm.RenderSystemPrompt(tmpl, opts.Data)
	if err != nil {
		return "", fmt.Errorf("failed to render system prompt: %w", err)
	}
	return rendered, nil
}
