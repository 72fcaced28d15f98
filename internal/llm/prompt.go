package llm

import (
	"bytes"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/gabriel-vasile/mimetype"
)

// maxAttachmentSize bounds a single attached file.
const maxAttachmentSize = 10 * 1024 * 1024

// isText walks the detected mime hierarchy looking for text/plain, so json,
// html and source files all count as text.
func isText(content []byte) bool {
	for m := mimetype.Detect(content); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// BuildPrompt appends every file in files, read from fsys, to prompt as a
// fenced section headed by its path. Binary files are refused.
func BuildPrompt(prompt string, files []string, fsys fs.FS) (string, error) {
	if len(files) == 0 {
		return prompt, nil
	}
	var sb strings.Builder
	sb.WriteString(prompt)
	for _, name := range files {
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return "", fmt.Errorf("reading attachment %s: %w", name, err)
		}
		if len(content) > maxAttachmentSize {
			return "", fmt.Errorf("attachment %s exceeds maximum size limit (10MB)", name)
		}
		if len(content) > 0 && !isText(content) {
			return "", fmt.Errorf("attachment %s is not a text file (%s)", name, mimetype.Detect(content).String())
		}
		fence := "```"
		for strings.Contains(string(content), fence) {
			fence += "`"
		}
		fmt.Fprintf(&sb, "\n\n### File: %s\n%s%s\n%s", name, fence, strings.TrimPrefix(path.Ext(name), "."), content)
		if !bytes.HasSuffix(content, []byte("\n")) {
			sb.WriteByte('\n')
		}
		sb.WriteString(fence)
	}
	return sb.String(), nil
}

// SystemPromptData is exposed to system prompt templates.
type SystemPromptData struct {
	Model  string
	Engine string
	Search bool
	Files  []string
}

// RenderSystemPrompt executes tmpl as a text/template with the sprig function set.
func RenderSystemPrompt(tmpl string, data SystemPromptData) (string, error) {
	t, err := template.New("system").Funcs(sprig.TxtFuncMap()).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse system prompt template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute system prompt template: %w", err)
	}
	return buf.String(), nil
}
