package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/afero"

	"github.com/thoreinstein/codemcp/internal/errors"
	"github.com/thoreinstein/codemcp/internal/fileops"
	"github.com/thoreinstein/codemcp/internal/launcher"
	"github.com/thoreinstein/codemcp/internal/project"
)

// ProjectCheck locates and parses codemcp.toml. Later checks read the
// loaded project from it.
type ProjectCheck struct {
	fs    afero.Fs
	start string

	project *project.Project
}

var _ Check = (*ProjectCheck)(nil)

// NewProjectCheck creates a check that discovers the project from start.
func NewProjectCheck(fs afero.Fs, start string) *ProjectCheck {
	return &ProjectCheck{fs: fs, start: start}
}

func (c *ProjectCheck) Name() string     { return "project-file" }
func (c *ProjectCheck) Category() string { return "project" }

// Project returns the project loaded by Run, or nil.
func (c *ProjectCheck) Project() *project.Project {
	return c.project
}

func (c *ProjectCheck) Run(_ context.Context) *CheckResult {
	c.project = nil
	result := &CheckResult{Name: c.Name(), Category: c.Category()}

	p, err := project.Discover(c.fs, c.start)
	switch {
	case errors.Is(err, project.ErrProjectNotFound):
		result.Status = SeverityError
		result.Message = fmt.Sprintf("no codemcp.toml at or above %s", c.start)
		result.FixHint = "codemcp init"
		return result
	case err != nil:
		result.Status = SeverityError
		result.Message = err.Error()
		var verr *project.ValidationError
		if errors.As(err, &verr) {
			result.Details = map[string]any{"problems": verr.Problems}
		}
		result.FixHint = "codemcp edit"
		return result
	}

	c.project = p
	result.Status = SeverityPass
	result.Message = fmt.Sprintf("%s defines %d commands", p.Path, len(p.Commands))
	result.Details = map[string]any{
		"path":     p.Path,
		"commands": p.Names(),
	}
	return result
}

// ProjectSource supplies the project under diagnosis.
type ProjectSource interface {
	Project() *project.Project
}

// commandIssue is a command whose executable will not start.
type commandIssue struct {
	Command  string
	Path     string
	Problem  string
	Severity Severity
	Fixable  bool
}

// CommandsCheck verifies that every command's executable resolves:
// relative scripts must exist and be executable, bare names must be on
// PATH. Non-executable scripts can be fixed with chmod a+x.
type CommandsCheck struct {
	source   ProjectSource
	lookPath func(string) (string, error)

	issues []commandIssue
}

var (
	_ Check = (*CommandsCheck)(nil)
	_ Fixer = (*CommandsCheck)(nil)
)

// NewCommandsCheck creates a check over the commands of source's project.
func NewCommandsCheck(source ProjectSource) *CommandsCheck {
	return &CommandsCheck{source: source, lookPath: exec.LookPath}
}

func (c *CommandsCheck) Name() string     { return "command-executables" }
func (c *CommandsCheck) Category() string { return "project" }

func (c *CommandsCheck) Run(_ context.Context) *CheckResult {
	c.issues = nil
	result := &CheckResult{Name: c.Name(), Category: c.Category()}

	p := c.source.Project()
	if p == nil {
		result.Status = SeverityInfo
		result.Message = "skipped: project file not loaded"
		return result
	}

	status := make(map[string]any, len(p.Commands))
	for _, name := range p.Names() {
		issue := c.checkCommand(p, p.Commands[name])
		if issue == nil {
			status[name] = "ok"
			continue
		}
		status[name] = issue.Problem
		c.issues = append(c.issues, *issue)
	}
	result.Details = map[string]any{"commands": status}

	return c.buildResult(result, len(p.Commands))
}

func (c *CommandsCheck) checkCommand(p *project.Project, cmd project.Command) *commandIssue {
	exe := p.Resolve(cmd)[0]

	if !cmd.IsRelativePath() && !filepath.IsAbs(exe) {
		if _, err := c.lookPath(exe); err != nil {
			return &commandIssue{
				Command:  cmd.Name,
				Path:     exe,
				Problem:  exe + " not found on PATH",
				Severity: SeverityWarning,
			}
		}
		return nil
	}

	info, err := os.Stat(exe)
	if os.IsNotExist(err) {
		return &commandIssue{Command: cmd.Name, Path: exe, Problem: "missing " + exe, Severity: SeverityError}
	}
	if err != nil {
		return &commandIssue{Command: cmd.Name, Path: exe, Problem: err.Error(), Severity: SeverityError}
	}
	if info.IsDir() {
		return &commandIssue{Command: cmd.Name, Path: exe, Problem: exe + " is a directory", Severity: SeverityError}
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o111 == 0 {
		return &commandIssue{
			Command:  cmd.Name,
			Path:     exe,
			Problem:  exe + " is not executable",
			Severity: SeverityError,
			Fixable:  true,
		}
	}
	return nil
}

func (c *CommandsCheck) buildResult(result *CheckResult, total int) *CheckResult {
	if len(c.issues) == 0 {
		result.Status = SeverityPass
		result.Message = fmt.Sprintf("all %d commands resolve", total)
		return result
	}

	result.Status = SeverityWarning
	var problems, hints []string
	for _, issue := range c.issues {
		if issue.Severity > result.Status {
			result.Status = issue.Severity
		}
		problems = append(problems, issue.Command+": "+issue.Problem)
		if issue.Fixable {
			result.Fixable = true
			hints = append(hints, "codemcp chmod a+x "+issue.Path)
		}
	}
	result.Message = strings.Join(problems, "; ")
	if len(hints) > 0 {
		result.FixHint = strings.Join(hints, "; ")
	}
	return result
}

// CanFix reports whether any script only lacks its execute bit.
func (c *CommandsCheck) CanFix() bool {
	for _, issue := range c.issues {
		if issue.Fixable {
			return true
		}
	}
	return false
}

// Fix makes non-executable scripts executable and stages them.
func (c *CommandsCheck) Fix(ctx context.Context) []FixResult {
	var results []FixResult
	for _, issue := range c.issues {
		if !issue.Fixable {
			continue
		}
		res := FixResult{Path: issue.Path}
		out, err := fileops.Chmod(ctx, issue.Path, fileops.ModeExecutable)
		if err != nil {
			res.Description = "chmod a+x failed: " + err.Error()
			res.Error = err
		} else {
			res.Fixed = true
			res.Description = out.Message
		}
		results = append(results, res)
	}
	return results
}

// LauncherCheck reports which formatter invocations `codemcp format`
// would use, and fails when the interpreter they need is missing.
type LauncherCheck struct {
	source   ProjectSource
	fs       afero.Fs
	settings launcher.Settings
}

var _ Check = (*LauncherCheck)(nil)

// NewLauncherCheck creates a check of the formatter plan for settings.
func NewLauncherCheck(source ProjectSource, fs afero.Fs, settings launcher.Settings) *LauncherCheck {
	return &LauncherCheck{source: source, fs: fs, settings: settings}
}

func (c *LauncherCheck) Name() string     { return "format-launcher" }
func (c *LauncherCheck) Category() string { return "format" }

func (c *LauncherCheck) Run(_ context.Context) *CheckResult {
	result := &CheckResult{Name: c.Name(), Category: c.Category()}

	p := c.source.Project()
	if p == nil {
		result.Status = SeverityInfo
		result.Message = "skipped: project file not loaded"
		return result
	}

	l := launcher.New(p.Root, launcher.DefaultPlan(c.settings), launcher.WithFs(c.fs))
	steps := make(map[string]any)
	var chosen []string
	for _, step := range launcher.DefaultPlan(c.settings) {
		inv, err := l.Choose(step)
		if err != nil {
			result.Status = SeverityError
			result.Message = err.Error()
			return result
		}

		exe := inv.Argv[0]
		if !filepath.IsAbs(exe) && strings.ContainsAny(exe, `/\`) {
			exe = filepath.Join(p.Root, exe)
		}
		steps[step.Label] = strings.Join(inv.Argv, " ")
		chosen = append(chosen, step.Label+": "+filepath.Base(inv.Argv[0]))

		if ok, _ := afero.Exists(c.fs, exe); !ok {
			result.Status = SeverityError
			result.Message = fmt.Sprintf("%s step needs %s, which does not exist", step.Label, exe)
			result.Details = map[string]any{"steps": steps}
			result.FixHint = fmt.Sprintf("python -m venv %s && %s -m pip install %s %s",
				c.settings.Venv, filepath.Join(c.settings.Venv, "bin", "python"), c.settings.Primary, c.settings.Secondary)
			return result
		}
	}

	result.Status = SeverityPass
	result.Message = strings.Join(chosen, ", ")
	result.Details = map[string]any{"steps": steps}
	return result
}
