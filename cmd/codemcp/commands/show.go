package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/codemcp/internal/errors"
)

func init() {
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show one command from codemcp.toml",
	Long: `Show the shell-quoted argument vector, documentation and environment of
a command. Environment values that look like secrets are masked.`,
	Example: `  codemcp show test

See Also: codemcp list, codemcp run`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}
	if !p.Has(args[0]) {
		_, err := p.Lookup(args[0])
		return errors.NewUserError(err, "Run: codemcp list")
	}
	fmt.Fprint(cmd.OutOrStdout(), describeCommand(p, args[0]))
	return nil
}
