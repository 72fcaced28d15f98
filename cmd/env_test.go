package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/spachava753/oracle/internal/config"
)

func TestMaskSensitive(t *testing.T) {
	tests := map[string]string{
		"short":               "********",
		"sk-0123456789abcdef": "sk-0...cdef",
	}
	for in, want := range tests {
		if got := maskSensitive(in); got != want {
			t.Errorf("maskSensitive(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPrintEnvironmentVariables(t *testing.T) {
	var out bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&out)
	printEnvironmentVariables(c, config.Env{
		config.EnvOpenAIKey: "sk-0123456789abcdef",
		config.EnvModel:     "gpt-5.1-pro",
	})
	got := out.String()
	if strings.Contains(got, "sk-0123456789abcdef") {
		t.Fatalf("api key printed unmasked:\n%s", got)
	}
	for _, want := range []string{"Value: sk-0...cdef", "Value: gpt-5.1-pro", "Value: (not set)"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"status"},
		{"session"},
		{"session", "cancel"},
		{"session", "run"},
		{"mcp"},
		{"config", "init"},
		{"config", "lint"},
		{"model", "info"},
		{"env"},
		{"system-prompt"},
	} {
		c, rest, err := rootCmd.Find(path)
		if err != nil || len(rest) != 0 || c == rootCmd {
			t.Errorf("command %v not registered (err=%v)", path, err)
		}
	}

	f := rootCmd.Flags().Lookup("preview")
	if f == nil || f.NoOptDefVal != string(config.PreviewSummary) {
		t.Fatalf("--preview without a value should mean %q", config.PreviewSummary)
	}
}
