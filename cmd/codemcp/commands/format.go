package commands

import (
	"github.com/spf13/cobra"

	"github.com/thoreinstein/codemcp/internal/launcher"
	"github.com/thoreinstein/codemcp/internal/logging"
	"github.com/thoreinstein/codemcp/internal/proc"
)

func init() {
	rootCmd.AddCommand(formatCmd)
}

// newExecutor builds the process executor for a command. Tests replace it.
var newExecutor = func(cmd *cobra.Command) proc.Executor {
	return &proc.ExecExecutor{
		Stdin:  cmd.InOrStdin(),
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	}
}

var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "Run the project formatters from the project root",
	Long: `Run the formatter launcher from the directory holding codemcp.toml.

The primary formatter (black by default) runs through the virtual
environment's own executable when <venv>/bin/black exists and through
"<venv>/bin/python -m black" otherwise. The secondary formatter (ruff by
default) then always runs as "<venv>/bin/python -m ruff format .".

The first failing step stops the sequence and its exit code becomes the
exit code of codemcp. The venv directory and formatter names come from
the format.* settings.`,
	Example: `  # Format the project containing the working directory
  codemcp format

  # Format another checkout
  codemcp format --dir ~/src/other

See Also: codemcp run format, codemcp config`,
	Args: cobra.NoArgs,
	RunE: runFormat,
}

func runFormat(cmd *cobra.Command, _ []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}

	l := launcher.New(root, launcher.DefaultPlan(settings().LauncherSettings()),
		launcher.WithExecutor(newExecutor(cmd)),
		launcher.WithOutput(cmd.OutOrStdout()),
		launcher.WithLogger(logging.FromContext(cmd.Context())),
	)
	return l.Run(cmd.Context())
}
