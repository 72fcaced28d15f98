package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/spachava753/oracle/internal/commands"
)

var (
	sessionRender     bool
	sessionHidePrompt bool
	sessionClear      bool
	sessionHours      float64
	sessionAll        bool
	sessionLimit      int
)

// sessionCmd shows one session, or lists them when no id is given
var sessionCmd = &cobra.Command{
	Use:   "session [id]",
	Short: "Show a stored session, list recent ones, or prune old ones",
	Long: `Show the metadata and answers of a stored session. Without an id, list
recent sessions like 'oracle status'. With --clear, delete finished sessions
older than --hours (or every session with --all).`,
	Aliases:      []string{"sessions"},
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		switch {
		case sessionClear:
			if len(args) > 0 {
				return errors.New("--clear does not take a session id")
			}
			return commands.ClearSessions(cmd.Context(), commands.ClearSessionsOptions{
				Store:      a.backend.Store,
				Hours:      sessionHours,
				IncludeAll: sessionAll,
				Writer:     os.Stdout,
			})
		case len(args) == 0:
			return commands.ShowStatus(cmd.Context(), commands.StatusOptions{
				Store:      a.backend.Store,
				Hours:      sessionHours,
				IncludeAll: sessionAll,
				Limit:      sessionLimit,
				Writer:     os.Stdout,
			})
		}
		return commands.ShowSession(cmd.Context(), commands.ShowSessionOptions{
			Store:      a.backend.Store,
			ID:         args[0],
			Render:     sessionRender,
			HidePrompt: sessionHidePrompt,
			Writer:     os.Stdout,
		})
	},
}

var sessionCancelCmd = &cobra.Command{
	Use:          "cancel <id>",
	Short:        "Cancel a pending or running session",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return commands.CancelSession(cmd.Context(), commands.CancelSessionOptions{
			Store:  a.backend.Store,
			ID:     args[0],
			Writer: os.Stdout,
		})
	},
}

// sessionRunCmd is what --detach spawns
var sessionRunCmd = &cobra.Command{
	Use:          "run <id>",
	Short:        "Execute a pending session",
	Hidden:       true,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		_, err = commands.RunSession(cmd.Context(), commands.RunSessionOptions{
			ID:      args[0],
			Config:  a.config,
			Env:     a.env,
			Backend: a.backend,
			Stdout:  os.Stdout,
			Stderr:  os.Stderr,
		})
		return err
	},
}

func init() {
	sessionCmd.Flags().BoolVar(&sessionRender, "render", false, "Render answers as markdown")
	sessionCmd.Flags().BoolVar(&sessionHidePrompt, "hide-prompt", false, "Do not print the prompt")
	sessionCmd.Flags().BoolVar(&sessionClear, "clear", false, "Delete finished sessions older than --hours")
	sessionCmd.Flags().Float64Var(&sessionHours, "hours", 24, "Only consider sessions from the last N hours")
	sessionCmd.Flags().BoolVar(&sessionAll, "all", false, "Consider every session regardless of age")
	sessionCmd.Flags().IntVar(&sessionLimit, "limit", 100, "Maximum number of sessions to list")

	sessionCmd.AddCommand(sessionCancelCmd, sessionRunCmd)
	rootCmd.AddCommand(sessionCmd)
}
