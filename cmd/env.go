package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spachava753/oracle/internal/config"
)

// envCmd represents the env command
var envCmd = &cobra.Command{
	Use:          "env",
	Short:        "Print environment variables",
	Long:         `Print the environment variables oracle reads, including values from ./.env.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := config.LoadEnv(".env")
		if err != nil {
			return err
		}
		printEnvironmentVariables(cmd, env)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(envCmd)
}

func maskSensitive(value string) string {
	if len(value) <= 8 {
		return "********"
	}
	return value[:4] + "..." + value[len(value)-4:]
}

func printEnvironmentVariables(cmd *cobra.Command, env config.Env) {
	w := cmd.OutOrStdout()
	printVar := func(name, description string, sensitive bool) {
		value := env.Get(name)
		switch {
		case value == "":
			value = "(not set)"
		case sensitive:
			value = maskSensitive(value)
		}
		fmt.Fprintf(w, "  %-28s - %s\n    Value: %s\n\n", name, description, value)
	}

	fmt.Fprintln(w, "Oracle Environment Variables:")
	fmt.Fprintln(w, "=============================")

	fmt.Fprintln(w, "\nAPI Keys:")
	printVar(config.EnvOpenAIKey, "Enables the api engine for OpenAI models", true)
	printVar(config.EnvAnthropicKey, "Required for Claude models", true)
	printVar(config.EnvGeminiKey, "Required for Gemini models", true)
	printVar(config.EnvOpenAIBase, "Alternate OpenAI compatible base URL", false)

	fmt.Fprintln(w, "\nDefaults:")
	printVar(config.EnvModel, "Model used when neither --model nor --models is given", false)
	printVar(config.EnvEngine, "Engine used when --engine is not given (api or browser)", false)
	printVar(config.EnvHomeDir, "Directory holding sessions (default ~/.oracle)", false)
	printVar(config.EnvNoDetach, "Set to 1 to ignore --detach", false)

	fmt.Fprintln(w, "\nBrowser:")
	printVar("CHROME_PATH", "Chrome executable for the browser engine", false)

	fmt.Fprintln(w, "\nTelemetry:")
	printVar(config.EnvOTLPEndpoint, "OTLP/HTTP collector for traces", false)
}
