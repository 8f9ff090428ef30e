package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/codemcp/internal/errors"
	"github.com/thoreinstein/codemcp/internal/paths"
	"github.com/thoreinstein/codemcp/internal/project"
	"github.com/thoreinstein/codemcp/pkg/fileutil"
)

var (
	initName  string
	initForce bool
)

func init() {
	initCmd.Flags().StringVar(&initName, "name", "", "project name (default: directory name)")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing codemcp.toml")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create codemcp.toml with the default command table",
	Long: `Write codemcp.toml to the working directory (or --dir) with the default
project prompt and the format, lint, test, accept, typecheck, ghstack and
git commands. Edit the file afterwards to match your project's scripts.`,
	Example: `  # Initialize the current directory
  codemcp init

  # Initialize with an explicit project name
  codemcp init --name parser

  # Replace an existing table
  codemcp init --force

  See Also: codemcp edit, codemcp doctor`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, _ []string) error {
	dir, err := startDir()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, paths.ProjectFileName)

	exists, err := afero.Exists(projectFs, path)
	if err != nil {
		return errors.Wrapf(err, "checking %s", path)
	}
	if exists && !initForce {
		return errors.NewUserError(
			errors.Newf("%s already exists", path),
			"Use --force to overwrite, or run: codemcp edit")
	}

	name := initName
	if name == "" {
		name = filepath.Base(dir)
	}

	data, err := project.Marshal(project.Default(name))
	if err != nil {
		return err
	}
	if err := fileutil.AtomicWriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
	}
	return nil
}
