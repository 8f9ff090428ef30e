package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/thoreinstein/codemcp/internal/git"
	"github.com/thoreinstein/codemcp/internal/logging"
	"github.com/thoreinstein/codemcp/internal/paths"
)

// GitCheck verifies git is installed and the project is a repository.
// Auto-commit and the approval workflow both depend on it.
type GitCheck struct {
	source ProjectSource
	dir    string
}

var _ Check = (*GitCheck)(nil)

// NewGitCheck creates a git check for the project root, falling back to
// dir when no project is loaded.
func NewGitCheck(source ProjectSource, dir string) *GitCheck {
	return &GitCheck{source: source, dir: dir}
}

func (c *GitCheck) Name() string     { return "git-repository" }
func (c *GitCheck) Category() string { return "git" }

func (c *GitCheck) Run(ctx context.Context) *CheckResult {
	result := &CheckResult{Name: c.Name(), Category: c.Category()}

	if err := git.Available(); err != nil {
		result.Status = SeverityError
		result.Message = "git is not installed"
		result.FixHint = "install git and make sure it is on PATH"
		return result
	}

	dir := c.dir
	if p := c.source.Project(); p != nil {
		dir = p.Root
	}

	repo, err := git.Open(ctx, dir)
	if err != nil {
		result.Status = SeverityWarning
		result.Message = dir + " is not inside a git repository; changes will not be committed"
		result.FixHint = "git init"
		return result
	}

	details := map[string]any{"root": repo.Dir}
	if head, err := repo.HeadCommit(ctx); err == nil {
		details["head"] = head
	}
	if remote, err := repo.RemoteURL(ctx, "origin"); err == nil {
		details["origin"] = logging.MaskURL(remote)
	}
	result.Details = details

	dirty, err := repo.Dirty(ctx)
	if err != nil {
		result.Status = SeverityWarning
		result.Message = err.Error()
		return result
	}
	if dirty {
		result.Status = SeverityInfo
		result.Message = "work tree has uncommitted changes; auto-commit will include them"
		return result
	}

	result.Status = SeverityPass
	result.Message = "clean work tree at " + repo.Dir
	return result
}

// StateDirCheck verifies the pending-change directory is writable and
// not accessible to other users.
type StateDirCheck struct {
	dir string
}

var (
	_ Check = (*StateDirCheck)(nil)
	_ Fixer = (*StateDirCheck)(nil)
)

// NewStateDirCheck creates a check of the pending-change directory.
func NewStateDirCheck(dir string) *StateDirCheck {
	return &StateDirCheck{dir: dir}
}

func (c *StateDirCheck) Name() string     { return "state-directory" }
func (c *StateDirCheck) Category() string { return "filesystem" }

func (c *StateDirCheck) Run(_ context.Context) *CheckResult {
	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Details:  map[string]any{"path": c.dir},
	}

	info, err := os.Stat(c.dir)
	if os.IsNotExist(err) {
		result.Status = SeverityInfo
		result.Message = c.dir + " will be created on first use"
		return result
	}
	if err != nil {
		result.Status = SeverityError
		result.Message = fmt.Sprintf("cannot stat directory: %v", err)
		return result
	}
	if !info.IsDir() {
		result.Status = SeverityError
		result.Message = "expected directory but found file: " + c.dir
		return result
	}

	if err := probeWritable(c.dir); err != nil {
		result.Status = SeverityError
		result.Message = "directory is not writable"
		result.FixHint = "chmod u+w " + c.dir
		return result
	}

	perm := info.Mode().Perm()
	result.Details["permissions"] = fmt.Sprintf("%04o", perm)
	if runtime.GOOS != "windows" && perm&0o077 != 0 {
		result.Status = SeverityWarning
		result.Message = fmt.Sprintf("pending changes are readable by other users (%04o)", perm)
		result.Fixable = true
		result.FixHint = fmt.Sprintf("chmod %04o %s", paths.DefaultDirPerm, c.dir)
		return result
	}

	result.Status = SeverityPass
	result.Message = c.dir + " is writable"
	return result
}

func (c *StateDirCheck) CanFix() bool {
	info, err := os.Stat(c.dir)
	return err == nil && info.IsDir() && runtime.GOOS != "windows" && info.Mode().Perm()&0o077 != 0
}

func (c *StateDirCheck) Fix(_ context.Context) []FixResult {
	res := FixResult{Path: c.dir}
	if err := os.Chmod(c.dir, paths.DefaultDirPerm); err != nil {
		res.Description = fmt.Sprintf("failed to chmod %04o: %v", paths.DefaultDirPerm, err)
		res.Error = err
		return []FixResult{res}
	}
	res.Fixed = true
	res.Description = fmt.Sprintf("chmod %04o", paths.DefaultDirPerm)
	return []FixResult{res}
}

func probeWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".codemcp-doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(filepath.Clean(name))
}

// ConfigCheck reports whether the tool's settings loaded.
type ConfigCheck struct {
	path    string
	loadErr error
}

var _ Check = (*ConfigCheck)(nil)

// NewConfigCheck wraps the outcome of loading the settings file at path.
// An empty path means defaults were used.
func NewConfigCheck(path string, loadErr error) *ConfigCheck {
	return &ConfigCheck{path: path, loadErr: loadErr}
}

func (c *ConfigCheck) Name() string     { return "settings" }
func (c *ConfigCheck) Category() string { return "config" }

func (c *ConfigCheck) Run(_ context.Context) *CheckResult {
	result := &CheckResult{Name: c.Name(), Category: c.Category()}
	switch {
	case c.loadErr != nil:
		result.Status = SeverityError
		result.Message = c.loadErr.Error()
		result.FixHint = "codemcp config edit"
	case c.path == "":
		result.Status = SeverityPass
		result.Message = "no settings file; using defaults"
	default:
		result.Status = SeverityPass
		result.Message = "loaded " + c.path
	}
	return result
}
