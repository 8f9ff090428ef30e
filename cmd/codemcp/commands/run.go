package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/codemcp/internal/errors"
	"github.com/thoreinstein/codemcp/internal/logging"
	"github.com/thoreinstein/codemcp/internal/project"
	"github.com/thoreinstein/codemcp/internal/proc"
	"github.com/thoreinstein/codemcp/internal/runner"
)

var runAccept bool

func init() {
	runCmd.Flags().BoolVar(&runAccept, "accept", false,
		"regenerate expected-output baselines (sets the accept_env variable)")
	// Everything after the command name belongs to the command.
	runCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(runCmd)
}

// interactive reports whether a picker can be shown. Tests replace it.
var interactive = func() bool {
	return logging.IsTTY(os.Stdin) && logging.IsTTY(os.Stdout)
}

// pickCommand asks the user for a command name. An empty name means the
// user aborted. Tests replace it.
var pickCommand = fuzzyPick

var runCmd = &cobra.Command{
	Use:   "run [name] [args...]",
	Short: "Run a command from codemcp.toml",
	Long: `Run a command declared in the [commands] table of codemcp.toml.

The command runs in the project root with its output streamed, and any
arguments after the name are appended to its argument vector. Its exit
code becomes the exit code of codemcp.

After a successful run of a command listed in auto_commit_commands
(format and lint by default), any change it made to a git work tree is
staged and committed as "Auto-commit <formatting|linting|name> changes".

Without a name on an interactive terminal, a fuzzy picker lists the
available commands.`,
	Example: `  # Run the linter
  codemcp run lint

  # Run a single test file
  codemcp run test tests/test_parser.py

  # Accept new expected output for one test
  codemcp run --accept test tests/test_parser.py::test_roundtrip

  # Pick a command interactively
  codemcp run

See Also: codemcp list, codemcp show`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	var name string
	var extra []string
	if len(args) > 0 {
		name, extra = args[0], args[1:]
	} else {
		if !interactive() {
			return errors.NewUserError(errors.ErrMissingName, "Run: codemcp list")
		}
		name, err = pickCommand(p)
		if err != nil {
			return err
		}
		if name == "" {
			return nil
		}
	}

	s := settings()
	r := runner.New(p,
		runner.WithExecutor(newExecutor(cmd)),
		runner.WithLogger(logging.FromContext(cmd.Context())),
		runner.WithAcceptEnv(s.AcceptEnv),
		runner.WithAutoCommit(s.AutoCommits),
	)

	res, err := r.Run(cmd.Context(), name, extra, runner.Options{Accept: runAccept})
	if err != nil {
		return err
	}
	if res.Commit != "" && !quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "Committed %s: %s\n", shortHash(res.Commit), runner.CommitMessage(name))
	}
	return nil
}

func fuzzyPick(p *project.Project) (string, error) {
	names := p.Names()
	if len(names) == 0 {
		return "", errors.NewUserError(
			errors.Newf("no commands defined in %s", p.Path), "Run: codemcp edit")
	}

	idx, err := fuzzyfinder.Find(
		names,
		func(i int) string {
			return names[i]
		},
		fuzzyfinder.WithPreviewWindow(func(i, _, _ int) string {
			if i == -1 {
				return ""
			}
			return describeCommand(p, names[i])
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return "", nil
		}
		return "", errors.Wrap(err, "selecting command")
	}
	return names[idx], nil
}

// describeCommand renders the argv, doc and env of a table entry.
func describeCommand(p *project.Project, name string) string {
	c, err := p.Lookup(name)
	if err != nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "name:    %s\n", name)
	fmt.Fprintf(&b, "command: %s\n", proc.Spec{Argv: c.Args}.String())
	if c.Doc != "" {
		fmt.Fprintf(&b, "doc:     %s\n", c.Doc)
	}
	for _, kv := range logging.MaskEnv(proc.FormatEnv(c.Env)) {
		fmt.Fprintf(&b, "env:     %s\n", kv)
	}
	return b.String()
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
