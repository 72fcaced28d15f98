package commands

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessUserInput(t *testing.T) {
	tests := []struct {
		name    string
		opts    ProcessUserInputOptions
		want    string
		wantErr string
	}{
		{name: "flag", opts: ProcessUserInputOptions{Prompt: "from flag"}, want: "from flag"},
		{name: "argument", opts: ProcessUserInputOptions{Args: []string{"from arg"}}, want: "from arg"},
		{name: "piped only", opts: ProcessUserInputOptions{Stdin: strings.NewReader("  piped text\n")}, want: "piped text"},
		{
			name: "argument and pipe",
			opts: ProcessUserInputOptions{Args: []string{"explain"}, Stdin: strings.NewReader("stack trace")},
			want: "explain\n\nstack trace",
		},
		{name: "empty pipe", opts: ProcessUserInputOptions{Prompt: "p", Stdin: strings.NewReader("")}, want: "p"},
		{name: "too many args", opts: ProcessUserInputOptions{Args: []string{"a", "b"}}, wantErr: "too many arguments"},
		{
			name:    "flag and argument",
			opts:    ProcessUserInputOptions{Prompt: "a", Args: []string{"b"}},
			wantErr: "both as --prompt and as an argument",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ProcessUserInput(tt.opts)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAttachmentPaths(t *testing.T) {
	tests := []struct {
		name    string
		files   []string
		want    []string
		wantErr string
	}{
		{name: "relative", files: []string{"a.go", "./dir/b.go"}, want: []string{"a.go", "dir/b.go"}},
		{name: "absolute inside", files: []string{"/work/repo/src/c.go"}, want: []string{"src/c.go"}},
		{name: "absolute outside", files: []string{"/etc/passwd"}, wantErr: "outside the working directory"},
		{name: "parent", files: []string{"sub/../../x"}, wantErr: "outside the working directory"},
		{name: "none", files: nil, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AttachmentPaths("/work/repo", tt.files)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
