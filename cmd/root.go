package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spachava753/oracle/internal/commands"
	"github.com/spachava753/oracle/internal/config"
	"github.com/spachava753/oracle/internal/telemetry"
	"github.com/spachava753/oracle/internal/version"
)

var (
	prompt           string
	model            string
	models           []string
	files            []string
	engine           string
	search           bool
	heartbeat        time.Duration
	timeout          string
	systemPromptPath string
	preview          string
	detach           bool

	configPath string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "oracle [flags] [prompt]",
	Short: "Ask one or more frontier models a hard question",
	Long: `Oracle sends a prompt, plus any attached files, to one or more models at
once, either through the provider APIs or by driving the ChatGPT web UI in
Chrome. Every run is stored as a session that can be listed, shown again,
cancelled or resumed.

Examples:
  oracle "why does this deadlock?" -f internal/pool.go
  git diff | oracle -p "review this change" --models gpt-5.1-pro,gemini-3-pro
  oracle --engine browser -f main.go "what is wrong with main?"`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("oracle version %s\n", version.Get())
			return nil
		}

		input, err := commands.ProcessUserInput(commands.ProcessUserInputOptions{
			Prompt: prompt,
			Args:   args,
			Stdin:  os.Stdin,
		})
		if err != nil {
			return fmt.Errorf("could not process user input: %w", err)
		}
		if input == "" {
			return cmd.Help()
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		opts := config.RuntimeOptions{
			Prompt:           input,
			Files:            files,
			Model:            model,
			Models:           models,
			Engine:           engine,
			Heartbeat:        heartbeat,
			Timeout:          timeout,
			SystemPromptPath: systemPromptPath,
		}
		if cmd.Flags().Changed("search") {
			opts.Search = &search
		}

		_, err = commands.Consult(cmd.Context(), commands.ConsultOptions{
			Config:  a.config,
			Env:     a.env,
			Request: opts,
			Preview: preview,
			Detach:  detach,
			Spawn:   spawnSessionRun,
			Backend: a.backend,
			Stdout:  os.Stdout,
			Stderr:  os.Stderr,
		})
		return err
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Listen for cancellation
	// - in shells for user-initiated interruption SIGINT
	// - in system sent/container environments, SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the configuration file (default: ./oracle.yaml, then the user config dir)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log debug output to stderr")

	rootCmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Prompt text; may also be given as an argument or piped on stdin")
	rootCmd.Flags().StringVarP(&model, "model", "m", "", "Model to ask (default: ORACLE_MODEL, then the config default)")
	rootCmd.Flags().StringSliceVar(&models, "models", nil, "Comma separated models to ask in parallel")
	rootCmd.Flags().StringSliceVarP(&files, "file", "f", nil, "Attach a file under the working directory. Repeatable.")
	rootCmd.Flags().StringVar(&engine, "engine", "", "Execution engine: api or browser (default: api when an API key is set)")
	rootCmd.Flags().BoolVar(&search, "search", true, "Let the model search the web")
	rootCmd.Flags().DurationVar(&heartbeat, "heartbeat", 0, "Progress interval for long runs, 0 uses the configured default")
	rootCmd.Flags().StringVar(&timeout, "timeout", "", "Per-request timeout for API runs (e.g. '20m')")
	rootCmd.Flags().StringVarP(&systemPromptPath, "system-prompt-file", "s", "", "Custom system prompt template file")
	rootCmd.Flags().StringVar(&preview, "preview", "", "Print what would be sent instead of sending it: summary, json or full")
	rootCmd.Flags().Lookup("preview").NoOptDefVal = string(config.PreviewSummary)
	rootCmd.Flags().BoolVar(&detach, "detach", false, "Run the session in the background and return immediately")
	rootCmd.Flags().BoolP("version", "v", false, "Print the version number and exit")
}

// app bundles what every session-touching command needs
type app struct {
	env     config.Env
	config  *config.RawConfig
	path    string
	logger  *slog.Logger
	backend commands.Backend

	closers []func() error
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// loadConfig reads the environment and the configuration file without
// opening the session store.
func loadConfig() (config.Env, *config.RawConfig, string, error) {
	env, err := config.LoadEnv(".env")
	if err != nil {
		return nil, nil, "", err
	}
	raw, path, err := config.LoadRawConfig(configPath, env)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to load configuration: %w", err)
	}
	return env, raw, path, nil
}

func newApp(ctx context.Context) (*app, error) {
	a := &app{logger: newLogger()}
	var err error
	a.env, a.config, a.path, err = loadConfig()
	if err != nil {
		return nil, err
	}

	tcfg := config.ResolveTelemetry(a.config, a.env)
	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "oracle",
		ServiceVersion: version.Get(),
		OTLPEndpoint:   tcfg.Endpoint,
		Insecure:       tcfg.Insecure,
	})
	if err != nil {
		a.logger.Warn("telemetry disabled", slog.String("error", err.Error()))
	} else {
		a.closers = append(a.closers, func() error {
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			return shutdown(sctx)
		})
	}

	backend, closeStore, err := commands.NewBackend(ctx, commands.BackendOptions{
		Config: a.config,
		Env:    a.env,
		Logger: a.logger,
	})
	a.closers = append(a.closers, closeStore)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.backend = backend
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown", slog.String("error", err.Error()))
	}
}

// spawnSessionRun re-executes this binary as `oracle session run <id>`. The
// child outlives the parent; its progress goes to the session log.
func spawnSessionRun(_ context.Context, id string) error {
	self, err := os.Executable()
	if err != nil {
		self = os.Args[0]
	}
	args := []string{"session", "run", id}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	child := exec.Command(self, args...)
	if err := child.Start(); err != nil {
		return fmt.Errorf("starting background run: %w", err)
	}
	return child.Process.Release()
}
