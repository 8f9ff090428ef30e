package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/codemcp/internal/doctor"
	"github.com/thoreinstein/codemcp/internal/errors"
	"github.com/thoreinstein/codemcp/internal/paths"
)

var (
	doctorJSON    bool
	doctorQuiet   bool
	doctorVerbose bool
	doctorFix     bool
)

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false,
		"output results as JSON")
	doctorCmd.Flags().BoolVar(&doctorQuiet, "quiet", false,
		"suppress output, exit code only")
	doctorCmd.Flags().BoolVar(&doctorVerbose, "verbose", false,
		"show detailed check-by-check output")
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false,
		"repair fixable issues, then check again")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose project and environment issues",
	Long: `Run diagnostic checks on the settings file, codemcp.toml, the commands
it declares, the formatter virtual environment, git and the state
directory.

Output modes (mutually exclusive):
  (default)   Show errors and warnings
  --verbose   Show all checks including passed ones
  --quiet     No output, exit code only
  --json      Machine-readable JSON output

With --fix, issues that can be repaired (missing execute bits on command
scripts, state directory permissions) are fixed before the final report.

Exit codes:
  0 - All checks passed (no errors or warnings)
  1 - Warnings present, no errors
  2 - Errors present`,
	Args:    cobra.NoArgs,
	PreRunE: validateDoctorFlags,
	RunE:    runDoctor,
}

// validateDoctorFlags ensures output flags are mutually exclusive.
func validateDoctorFlags(_ *cobra.Command, _ []string) error {
	count := 0
	if doctorJSON {
		count++
	}
	if doctorQuiet {
		count++
	}
	if doctorVerbose {
		count++
	}

	if count > 1 {
		return errors.NewUserError(
			errors.New("flags --json, --quiet, and --verbose are mutually exclusive"), "")
	}

	return nil
}

// newDoctorRunner registers the checks in report order.
func newDoctorRunner() (*doctor.Runner, error) {
	dir, err := startDir()
	if err != nil {
		return nil, err
	}

	s := settings()
	settingsPath := configFile
	if settingsPath == "" {
		settingsPath = paths.ConfigFile()
	}

	projectCheck := doctor.NewProjectCheck(projectFs, dir)

	runner := doctor.NewRunner()
	runner.AddCheck(doctor.NewConfigCheck(settingsPath, configLoadErr))
	runner.AddCheck(projectCheck)
	runner.AddCheck(doctor.NewCommandsCheck(projectCheck))
	runner.AddCheck(doctor.NewLauncherCheck(projectCheck, projectFs, s.LauncherSettings()))
	runner.AddCheck(doctor.NewGitCheck(projectCheck, dir))
	runner.AddCheck(doctor.NewStateDirCheck(s.ResolvedStateDir()))
	return runner, nil
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	runner, err := newDoctorRunner()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	report := runner.Run(ctx)

	w := cmd.OutOrStdout()
	if doctorFix {
		fixes := runner.Fix(ctx)
		if !doctorQuiet && !doctorJSON {
			outputFixes(w, fixes)
		}
		if len(fixes) > 0 {
			report = runner.Run(ctx)
		}
	}

	if err := outputDoctorReport(w, report); err != nil {
		return err
	}

	if code := report.ExitCode(); code != errors.ExitSuccess {
		return errors.NewExitError(nil, code)
	}
	return nil
}

func outputFixes(w io.Writer, fixes []doctor.FixResult) {
	for _, f := range fixes {
		switch {
		case f.Error != nil:
			fmt.Fprintf(w, "✗ fix %s: %v\n", f.Path, f.Error)
		case f.Fixed:
			fmt.Fprintf(w, "✓ fixed %s: %s\n", f.Path, f.Description)
		default:
			fmt.Fprintf(w, "- skipped %s: %s\n", f.Path, f.Description)
		}
	}
	if len(fixes) > 0 {
		fmt.Fprintln(w)
	}
}

func outputDoctorReport(w io.Writer, report *doctor.DoctorReport) error {
	if doctorQuiet {
		return nil
	}

	if doctorJSON {
		return outputDoctorJSON(w, report)
	}

	return outputDoctorText(w, report)
}

func outputDoctorJSON(w io.Writer, report *doctor.DoctorReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return errors.Wrap(err, "encoding JSON")
	}
	return nil
}

func outputDoctorText(w io.Writer, report *doctor.DoctorReport) error {
	// In normal mode, show only errors and warnings
	showAll := doctorVerbose

	hasOutput := false
	for _, result := range report.Results {
		problem := result.Status == doctor.SeverityError || result.Status == doctor.SeverityWarning
		if !showAll && !problem {
			continue
		}

		hasOutput = true
		icon := statusIcon(result.Status)
		fmt.Fprintf(w, "%s [%s] %s: %s\n", icon, result.Category, result.Name, result.Message)

		if result.FixHint != "" && problem {
			fmt.Fprintf(w, "  hint: %s\n", result.FixHint)
		}
	}

	if hasOutput || showAll {
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Summary: %d passed, %d info, %d warnings, %d errors\n",
		report.Summary.Passed, report.Summary.Info, report.Summary.Warnings, report.Summary.Errors)

	return nil
}

func statusIcon(s doctor.Severity) string {
	switch s {
	case doctor.SeverityPass:
		return "✓"
	case doctor.SeverityInfo:
		return "ℹ"
	case doctor.SeverityWarning:
		return "⚠"
	case doctor.SeverityError:
		return "✗"
	default:
		return "?"
	}
}
