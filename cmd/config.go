package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/spachava753/oracle/internal/commands"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage oracle configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	Long: `Write a starter configuration to --config, or to oracle/oracle.yaml under the
user config directory.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return commands.ConfigInit(cmd.Context(), commands.ConfigInitOptions{
			Path:   configPath,
			Force:  configInitForce,
			Writer: os.Stdout,
		})
	},
}

var configShowCmd = &cobra.Command{
	Use:          "show",
	Short:        "Print the effective configuration",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, raw, path, err := loadConfig()
		if err != nil {
			return err
		}
		return commands.ConfigShow(cmd.Context(), commands.ConfigShowOptions{
			Config: raw,
			Path:   path,
			Writer: os.Stdout,
		})
	},
}

var configLintCmd = &cobra.Command{
	Use:          "lint",
	Short:        "Validate the configuration file",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, raw, path, err := loadConfig()
		if err != nil {
			return err
		}
		return commands.ConfigLint(cmd.Context(), commands.ConfigLintOptions{
			Config: raw,
			Path:   path,
			Writer: os.Stdout,
		})
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd, configLintCmd)
	rootCmd.AddCommand(configCmd)
}
