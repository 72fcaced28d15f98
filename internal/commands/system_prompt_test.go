package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spachava753/oracle/internal/llm"
	"github.com/spachava753/oracle/internal/modelcatalog"
)

func TestLoadSystemPrompt(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		got, err := LoadSystemPrompt(LoadSystemPromptOptions{})
		require.NoError(t, err)
		assert.Equal(t, modelcatalog.DefaultSystemPrompt, got)
	})

	t.Run("template file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "system.tmpl")
		require.NoError(t, os.WriteFile(path, []byte(`You answer as {{ .Model | upper }}{{ if .Search }} with search{{ end }}.`), 0o644))
		got, err := LoadSystemPrompt(LoadSystemPromptOptions{
			Path: path,
			Data: llm.SystemPromptData{Model: "gpt-5.1-pro", Search: true},
		})
		require.NoError(t, err)
		assert.Equal(t, "You answer as GPT-5.1-PRO with search.", got)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSystemPrompt(LoadSystemPromptOptions{Path: filepath.Join(t.TempDir(), "nope")})
		require.ErrorContains(t, err, "could not read system prompt file")
	})

	t.Run("bad template", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.tmpl")
		require.NoError(t, os.WriteFile(path, []byte("{{ .Model "), 0o644))
		_, err := LoadSystemPrompt(LoadSystemPromptOptions{Path: path})
		require.ErrorContains(t, err, "failed to render system prompt")
	})
}
