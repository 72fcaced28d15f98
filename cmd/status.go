package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/spachava753/oracle/internal/commands"
)

var (
	statusHours float64
	statusAll   bool
	statusLimit int
)

var statusCmd = &cobra.Command{
	Use:          "status",
	Short:        "List recent sessions",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return commands.ShowStatus(cmd.Context(), commands.StatusOptions{
			Store:      a.backend.Store,
			Hours:      statusHours,
			IncludeAll: statusAll,
			Limit:      statusLimit,
			Writer:     os.Stdout,
		})
	},
}

func init() {
	statusCmd.Flags().Float64Var(&statusHours, "hours", 24, "Only list sessions from the last N hours")
	statusCmd.Flags().BoolVar(&statusAll, "all", false, "List sessions of any age")
	statusCmd.Flags().IntVar(&statusLimit, "limit", 100, "Maximum number of sessions to list")
	rootCmd.AddCommand(statusCmd)
}
