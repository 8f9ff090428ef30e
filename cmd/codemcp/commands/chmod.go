package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/codemcp/internal/changes"
	"github.com/thoreinstein/codemcp/internal/errors"
	"github.com/thoreinstein/codemcp/internal/fileops"
	"github.com/thoreinstein/codemcp/internal/paths"
)

var (
	chmodPropose bool
	chmodChat    string
)

func init() {
	chmodCmd.Flags().BoolVar(&chmodPropose, "propose", false, "queue the change for approval instead of applying it")
	chmodCmd.Flags().StringVar(&chmodChat, "chat", changes.DefaultChat, "conversation the change belongs to")
	rootCmd.AddCommand(chmodCmd)
}

var chmodCmd = &cobra.Command{
	Use:   "chmod <a+x|a-x> <path>",
	Short: "Set or clear the executable bit and stage the file",
	Long: `Make a file executable (a+x) or non-executable (a-x) and stage it with
git add. Only these two modes exist because git tracks nothing else about
file permissions. A file already in the requested state is left alone.`,
	Example: `  codemcp chmod a+x run_test.sh
  codemcp chmod a-x src/app.py

  # Queue instead of applying
  codemcp chmod --propose a+x run_lint.sh

See Also: codemcp pending`,
	Args: cobra.ExactArgs(2),
	RunE: runChmod,
}

func runChmod(cmd *cobra.Command, args []string) error {
	mode := fileops.Mode(args[0])
	path, err := paths.Abs(args[1])
	if err != nil {
		return errors.NewUserError(err, "")
	}

	out := cmd.OutOrStdout()
	if !chmodPropose {
		res, err := fileops.Chmod(cmd.Context(), path, mode)
		if res != nil {
			fmt.Fprintln(out, res.Message)
		}
		return err
	}

	w, _, err := newWriter(cmd)
	if err != nil {
		return err
	}
	c, err := w.ProposeChmod(cmd.Context(), path, mode, chmodChat)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Proposed chmod %s %s\n", c.Mode, c.Path)
	fmt.Fprintf(out, "\nApply with: codemcp pending apply %s\n", c.ID)
	return nil
}
