package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spachava753/oracle/internal/commands"
	"github.com/spachava753/oracle/internal/llm"
)

var (
	spModel  string
	spEngine string
	spSearch bool
	spFiles  []string
)

var systemPromptCmd = &cobra.Command{
	Use:     "system-prompt",
	Short:   "Show the rendered system prompt",
	Long:    `Render and display the system prompt template to help debug template issues.`,
	Aliases: []string{"sp"},
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := commands.LoadSystemPrompt(commands.LoadSystemPromptOptions{
			Path: systemPromptPath,
			Data: llm.SystemPromptData{
				Model:  spModel,
				Engine: spEngine,
				Search: spSearch,
				Files:  spFiles,
			},
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	systemPromptCmd.Flags().StringVarP(&systemPromptPath, "system-prompt-file", "s", "", "System prompt template file (default: the built-in prompt)")
	systemPromptCmd.Flags().StringVarP(&spModel, "model", "m", "", "Model name passed to the template")
	systemPromptCmd.Flags().StringVar(&spEngine, "engine", "api", "Engine passed to the template")
	systemPromptCmd.Flags().BoolVar(&spSearch, "search", true, "Search flag passed to the template")
	systemPromptCmd.Flags().StringSliceVarP(&spFiles, "file", "f", nil, "Attachment names passed to the template")
	rootCmd.AddCommand(systemPromptCmd)
}
