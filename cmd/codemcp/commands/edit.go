package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/codemcp/internal/editor"
	"github.com/thoreinstein/codemcp/internal/errors"
	"github.com/thoreinstein/codemcp/internal/project"
)

func init() {
	rootCmd.AddCommand(editCmd)
}

// openEditor launches the user's editor. Tests replace it.
var openEditor = editor.Open

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open codemcp.toml in $EDITOR",
	Long: `Open the project's codemcp.toml in your editor, then check that the
edited table still parses.

The editor is taken from CODEMCP_EDITOR, EDITOR or VISUAL, falling back to
nano and then vi.`,
	Example: `  codemcp edit

  # Use a specific editor
  EDITOR=nvim codemcp edit

See Also: codemcp init, codemcp doctor`,
	Args: cobra.NoArgs,
	RunE: runEdit,
}

func runEdit(cmd *cobra.Command, _ []string) error {
	dir, err := startDir()
	if err != nil {
		return err
	}
	path, err := project.Find(projectFs, dir)
	if err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			return errors.NewUserError(err, "Run: codemcp init")
		}
		return err
	}

	if err := openEditor(cmd.Context(), path); err != nil {
		return err
	}

	if _, err := project.Load(projectFs, path); err != nil {
		return errors.NewUserError(err, "Run: codemcp edit")
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", path)
	}
	return nil
}
