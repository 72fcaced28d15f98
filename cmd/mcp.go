package cmd

import (
	"github.com/spf13/cobra"

	"github.com/spachava753/oracle/internal/commands"
)

// mcpCmd serves oracle as an MCP server on stdio
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the consult and sessions tools over MCP (stdio)",
	Long: `Run oracle as a Model Context Protocol server on stdin/stdout so that agents
can consult the configured models and list past sessions. Logs go to stderr.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return commands.ServeMCP(cmd.Context(), commands.ServeMCPOptions{
			Config:  a.config,
			Env:     a.env,
			Backend: a.backend,
		})
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
