package llm

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrompt(t *testing.T) {
	fsys := fstest.MapFS{
		"main.go":       {Data: []byte("package main\n\nfunc main() {}\n")},
		"notes.md":      {Data: []byte("has a fence:\n```go\nx\n```")},
		"image.png":     {Data: []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")},
		"data/cfg.json": {Data: []byte(`{"a": 1}`)},
	}

	t.Run("no files", func(t *testing.T) {
		got, err := BuildPrompt("question", nil, fsys)
		require.NoError(t, err)
		assert.Equal(t, "question", got)
	})

	t.Run("fenced sections", func(t *testing.T) {
		got, err := BuildPrompt("review this", []string{"main.go", "data/cfg.json"}, fsys)
		require.NoError(t, err)
		want := "review this" +
			"\n\n### File: main.go\n```go\npackage main\n\nfunc main() {}\n```" +
			"\n\n### File: data/cfg.json\n```json\n{\"a\": 1}\n```"
		assert.Equal(t, want, got)
	})

	t.Run("longer fence when content has one", func(t *testing.T) {
		got, err := BuildPrompt("q", []string{"notes.md"}, fsys)
		require.NoError(t, err)
		assert.Contains(t, got, "````md\n")
		assert.Contains(t, got, "\n````")
	})

	t.Run("binary refused", func(t *testing.T) {
		_, err := BuildPrompt("q", []string{"image.png"}, fsys)
		require.ErrorContains(t, err, "attachment image.png is not a text file")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := BuildPrompt("q", []string{"nope.txt"}, fsys)
		require.ErrorContains(t, err, "reading attachment nope.txt")
	})
}

func TestRenderSystemPrompt(t *testing.T) {
	got, err := RenderSystemPrompt(`You answer for {{ .Model | upper }}{{ if .Search }} with search{{ end }}; files: {{ join "," .Files }}`,
		SystemPromptData{Model: "gpt-5.1", Search: true, Files: []string{"a.go", "b.go"}})
	require.NoError(t, err)
	assert.Equal(t, "You answer for GPT-5.1 with search; files: a.go,b.go", got)

	_, err = RenderSystemPrompt("{{ .Broken", SystemPromptData{})
	require.ErrorContains(t, err, "failed to parse system prompt template")
}
