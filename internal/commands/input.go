package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ProcessUserInputOptions contains parameters for assembling the prompt
type ProcessUserInputOptions struct {
	// Prompt is the value of --prompt
	Prompt string
	// Args are positional arguments; at most one is accepted
	Args []string
	// Stdin is read only when it is a pipe or a redirected file
	Stdin io.Reader
}

// ProcessUserInput returns the prompt from --prompt or the positional
// argument, followed by piped stdin when there is any.
func ProcessUserInput(opts ProcessUserInputOptions) (string, error) {
	if len(opts.Args) > 1 {
		return "", fmt.Errorf("too many arguments to process")
	}
	prompt := opts.Prompt
	if len(opts.Args) == 1 {
		if prompt != "" {
			return "", errors.New("prompt given both as --prompt and as an argument")
		}
		prompt = opts.Args[0]
	}

	piped, err := readPipedStdin(opts.Stdin)
	if err != nil {
		return "", err
	}
	switch {
	case piped == "":
		return prompt, nil
	case prompt == "":
		return piped, nil
	}
	return prompt + "\n\n" + piped, nil
}

func readPipedStdin(r io.Reader) (string, error) {
	if r == nil {
		return "", nil
	}
	if f, ok := r.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil {
			return "", fmt.Errorf("failed to check stdin: %w", err)
		}
		if stat.Mode()&os.ModeCharDevice != 0 {
			return "", nil
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read from stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// AttachmentPaths rewrites files relative to cwd so they can be opened from
// os.DirFS(cwd). Paths that leave cwd are refused.
func AttachmentPaths(cwd string, files []string) ([]string, error) {
	out := make([]string, 0, len(files))
	for _, f := range files {
		p := f
		if filepath.IsAbs(p) {
			rel, err := filepath.Rel(cwd, p)
			if err != nil {
				return nil, fmt.Errorf("attachment %s: %w", f, err)
			}
			p = rel
		}
		p = filepath.ToSlash(filepath.Clean(p))
		if p == ".." || strings.HasPrefix(p, "../") {
			return nil, fmt.Errorf("attachment %s is outside the working directory %s", f, cwd)
		}
		out = append(out, p)
	}
	return out, nil
}
