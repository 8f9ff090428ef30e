// Package commands implements the CLI commands for codemcp.
package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/codemcp/cmd"
	"github.com/thoreinstein/codemcp/internal/changes"
	"github.com/thoreinstein/codemcp/internal/config"
	"github.com/thoreinstein/codemcp/internal/errors"
	"github.com/thoreinstein/codemcp/internal/fileops"
	"github.com/thoreinstein/codemcp/internal/logging"
	"github.com/thoreinstein/codemcp/internal/paths"
	"github.com/thoreinstein/codemcp/internal/project"
)

// dirFlag holds the value of the --dir flag.
var dirFlag string

// verbosity holds the count of -v flags.
var verbosity int

// quiet holds the value of the -q/--quiet flag.
var quiet bool

// logFormat holds the value of the --log-format flag.
var logFormat string

// logFile holds the path to the log file.
var logFile string

// configFile holds the value of the --config flag.
var configFile string

// cfg is the settings loaded by initConfig.
var cfg *config.Config

// configLoadErr holds any error that occurred during config loading.
var configLoadErr error

// projectFs is the filesystem codemcp.toml is read from.
var projectFs = afero.NewOsFs()

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&dirFlag, "dir", "C", "",
		"start project discovery in this directory instead of the working directory")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"increase verbosity level (e.g., -v, -vv)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"log format: text, json")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"write logs to file in JSON format")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"settings file (default: $XDG_CONFIG_HOME/codemcp/config.yaml)")

	rootCmd.Version = cmd.Version
	rootCmd.SetVersionTemplate("codemcp version {{.Version}}\n")

	// Silence errors and usage so main controls error output
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

func initConfig() {
	config.Init()
	cfg, configLoadErr = config.Load(configFile)
}

var rootCmd = &cobra.Command{
	Use:   "codemcp",
	Short: "Run a project's declared commands and its formatter",
	Long: `codemcp reads the command table in codemcp.toml and runs the commands
it declares (format, lint, test, accept, typecheck, ...) from the project
root, whatever directory you call it from.

It also ships the formatter launcher used by the default format command,
and an approval queue for proposed file writes that are staged and
committed to git once applied.`,
	Example: `  # Create codemcp.toml in the current directory
  codemcp init

  # Run the formatter, then the linter
  codemcp run format
  codemcp run lint

  # Regenerate expected-output baselines for one test
  codemcp run --accept test tests/test_parser.py

  See Also: codemcp list, codemcp doctor, codemcp config`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := setupLogging(cmd); err != nil {
			return err
		}
		return checkConfig(cmd)
	},
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// setupLogging configures the default logger based on verbosity flags.
func setupLogging(cmd *cobra.Command) error {
	if quiet && verbosity > 0 {
		return errors.NewUserError(
			errors.New("--quiet and --verbose cannot be used together"), "pass only one of -q and -v")
	}
	if !logging.ValidFormat(logFormat) {
		return errors.NewUserError(
			errors.Newf("invalid log format %q", logFormat),
			"use --log-format text or --log-format json")
	}

	var level slog.Level
	if quiet {
		level = slog.LevelError
	} else {
		v := verbosity

		// CLI flags take precedence, but if not set, check env var
		if v == 0 {
			if val, ok := os.LookupEnv("CODEMCP_DEBUG"); ok {
				switch val {
				case "1", "true":
					v = 2 // Debug
				case "2":
					v = 3 // Trace
				}
			}
		}
		level = logging.LevelFromVerbosity(v)
	}

	opts := logging.HandlerOptions(level)

	var primaryHandler slog.Handler
	switch logging.Format(logFormat) {
	case logging.FormatJSON:
		primaryHandler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	default:
		primaryHandler = logging.NewHandler(cmd.ErrOrStderr(), opts)
	}

	handlers := []slog.Handler{primaryHandler}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return errors.NewUserError(err, "failed to open log file")
		}
		handlers = append(handlers, slog.NewJSONHandler(f, logging.HandlerOptions(level)))
	}

	var handler slog.Handler
	if len(handlers) > 1 {
		handler = logging.NewMultiHandler(handlers...)
	} else {
		handler = handlers[0]
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.NewContext(ctx, logger))

	return nil
}

// checkConfig reports a broken settings file, except to the commands that
// diagnose or repair it.
func checkConfig(cmd *cobra.Command) error {
	if configLoadErr == nil {
		return nil
	}
	switch cmd.CommandPath() {
	case "codemcp help", "codemcp version", "codemcp doctor", "codemcp config edit":
		return nil
	}
	return errors.NewConfigError(configLoadErr)
}

// settings returns the loaded settings, or the defaults when loading failed
// for a command that tolerates it.
func settings() *config.Config {
	if cfg == nil {
		return config.Default()
	}
	return cfg
}

// startDir returns the directory project discovery starts from.
func startDir() (string, error) {
	if dirFlag != "" {
		return paths.Abs(dirFlag)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, "getting working directory")
	}
	return wd, nil
}

// loadProject discovers and loads the codemcp.toml governing startDir.
func loadProject() (*project.Project, error) {
	dir, err := startDir()
	if err != nil {
		return nil, err
	}
	p, err := project.Discover(projectFs, dir)
	switch {
	case errors.Is(err, project.ErrProjectNotFound):
		return nil, errors.NewUserError(err, "Run: codemcp init")
	case errors.Is(err, errors.ErrInvalidConfig):
		return nil, errors.NewUserError(err, "Run: codemcp edit")
	case err != nil:
		return nil, err
	}
	return p, nil
}

// projectRoot returns the directory holding codemcp.toml.
func projectRoot() (string, error) {
	dir, err := startDir()
	if err != nil {
		return "", err
	}
	path, err := project.Find(projectFs, dir)
	if err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			return "", errors.NewUserError(err, "Run: codemcp init")
		}
		return "", err
	}
	return filepath.Dir(path), nil
}

// openStore opens the pending-change store under the state directory.
func openStore() (*changes.Store, error) {
	store, err := changes.Open(paths.PendingDir(settings().ResolvedStateDir()))
	if err != nil {
		return nil, errors.NewSystemError(err, "Run: codemcp doctor")
	}
	return store, nil
}

// newWriter creates a file writer backed by the pending-change store.
func newWriter(cmd *cobra.Command) (*fileops.Writer, *changes.Store, error) {
	store, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	w := fileops.NewWriter(store,
		fileops.WithCommitPrompt(settings().CommitPrompt),
		fileops.WithLogger(logging.FromContext(cmd.Context())),
	)
	return w, store, nil
}

// Execute runs the root command. An interrupt cancels the command context,
// which stops any running child process.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
