package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/spachava753/oracle/internal/commands"
	"github.com/spachava753/oracle/internal/config"
	"github.com/spachava753/oracle/internal/modelcatalog"
)

var modelCmd = &cobra.Command{
	Use:     "model",
	Short:   "Inspect the models oracle can ask",
	Aliases: []string{"models"},
}

var modelListCmd = &cobra.Command{
	Use:          "list",
	Short:        "List built-in and configured models",
	Aliases:      []string{"ls"},
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, raw, _, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := config.ResolveModels(raw, modelcatalog.HeuristicTokens)
		if err != nil {
			return err
		}
		return commands.ModelList(cmd.Context(), commands.ModelListOptions{
			Registry: reg,
			Defaults: config.DefaultModels(raw, env),
			Writer:   os.Stdout,
		})
	},
}

var modelInfoCmd = &cobra.Command{
	Use:          "info <model>",
	Short:        "Show provider, input limit and pricing of a model",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, raw, _, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := config.ResolveModels(raw, modelcatalog.HeuristicTokens)
		if err != nil {
			return err
		}
		return commands.ModelInfo(cmd.Context(), commands.ModelInfoOptions{
			Registry:  reg,
			ModelName: config.NormalizeModelName(args[0], config.EngineAPI),
			Writer:    os.Stdout,
		})
	},
}

func init() {
	modelCmd.AddCommand(modelListCmd, modelInfoCmd)
	rootCmd.AddCommand(modelCmd)
}
