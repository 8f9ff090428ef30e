package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(promptCmd)
}

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the project prompt from codemcp.toml",
	Long: `Print the project_prompt text of codemcp.toml, the instructions a
collaborator should follow when working in the project.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		if p.Prompt == "" {
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(p.Prompt, "\n"))
		return nil
	},
}
