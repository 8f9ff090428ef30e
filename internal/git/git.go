// Package git wraps the git binary for the few operations codemcp needs:
// staging, committing and inspecting the working tree.
package git

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/thoreinstein/codemcp/internal/errors"
)

var (
	// ErrNotRepository indicates a directory is not inside a git work tree.
	ErrNotRepository = errors.New("not a git repository")

	// ErrGitNotInstalled indicates the git binary is not on PATH.
	ErrGitNotInstalled = errors.New("git is not installed")

	// ErrNothingToCommit indicates the index has no staged changes.
	ErrNothingToCommit = errors.New("nothing to commit")
)

// Repo is a git work tree rooted at Dir.
type Repo struct {
	Dir string
}

// Available reports whether the git binary can be found.
func Available() error {
	if _, err := exec.LookPath("git"); err != nil {
		return errors.Mark(errors.Wrap(err, "looking up git"), ErrGitNotInstalled)
	}
	return nil
}

// Open returns the repository containing dir. The returned Repo's Dir is
// the top level of the work tree.
func Open(ctx context.Context, dir string) (*Repo, error) {
	if err := Available(); err != nil {
		return nil, err
	}
	out, err := run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "opening %s", dir), ErrNotRepository)
	}
	return &Repo{Dir: strings.TrimSpace(out)}, nil
}

// Status returns the porcelain status of the work tree.
func (r *Repo) Status(ctx context.Context) (string, error) {
	out, err := run(ctx, r.Dir, "status", "--porcelain")
	if err != nil {
		return "", errors.Wrap(err, "git status failed")
	}
	return out, nil
}

// Dirty reports whether the work tree has modified, staged or untracked files.
func (r *Repo) Dirty(ctx context.Context) (bool, error) {
	out, err := r.Status(ctx)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// Snapshot returns the hash of a tree object holding the current contents
// of the work tree, untracked files included and ignored files excluded.
// Two snapshots are equal exactly when the work tree contents are. The
// real index is left untouched.
func (r *Repo) Snapshot(ctx context.Context) (string, error) {
	tmp, err := os.MkdirTemp("", "codemcp-index-")
	if err != nil {
		return "", errors.Wrap(err, "creating temporary index directory")
	}
	defer os.RemoveAll(tmp)

	env := []string{"GIT_INDEX_FILE=" + filepath.Join(tmp, "index")}
	if _, err := runEnv(ctx, r.Dir, env, "add", "--all"); err != nil {
		return "", errors.Wrap(err, "staging snapshot")
	}
	out, err := runEnv(ctx, r.Dir, env, "write-tree")
	if err != nil {
		return "", errors.Wrap(err, "writing snapshot tree")
	}
	return strings.TrimSpace(out), nil
}

// AddAll stages every change in the work tree, including deletions.
func (r *Repo) AddAll(ctx context.Context) error {
	if _, err := run(ctx, r.Dir, "add", "--all"); err != nil {
		return errors.Wrap(err, "git add failed")
	}
	return nil
}

// Add stages the given paths.
func (r *Repo) Add(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"add", "--"}, paths...)
	if _, err := run(ctx, r.Dir, args...); err != nil {
		return errors.Wrap(err, "git add failed")
	}
	return nil
}

// HasStaged reports whether the index differs from HEAD.
func (r *Repo) HasStaged(ctx context.Context) (bool, error) {
	_, err := run(ctx, r.Dir, "diff", "--cached", "--quiet")
	if err == nil {
		return false, nil
	}
	if exitCode(err) == 1 {
		return true, nil
	}
	return false, errors.Wrap(err, "git diff failed")
}

// Commit records the staged changes with message and returns the new
// commit hash. It returns ErrNothingToCommit when nothing is staged.
func (r *Repo) Commit(ctx context.Context, message string) (string, error) {
	staged, err := r.HasStaged(ctx)
	if err != nil {
		return "", err
	}
	if !staged {
		return "", ErrNothingToCommit
	}
	if _, err := run(ctx, r.Dir, "commit", "--no-verify", "-m", message); err != nil {
		return "", errors.Wrap(err, "git commit failed")
	}
	return r.HeadCommit(ctx)
}

// HeadCommit returns the full hash of HEAD.
func (r *Repo) HeadCommit(ctx context.Context) (string, error) {
	out, err := run(ctx, r.Dir, "rev-parse", "HEAD")
	if err != nil {
		return "", errors.Wrap(err, "reading HEAD")
	}
	return strings.TrimSpace(out), nil
}

// IsTracked reports whether path is known to git.
func (r *Repo) IsTracked(ctx context.Context, path string) (bool, error) {
	_, err := run(ctx, r.Dir, "ls-files", "--error-unmatch", "--", path)
	if err == nil {
		return true, nil
	}
	if exitCode(err) == 1 {
		return false, nil
	}
	return false, errors.Wrapf(err, "checking whether %s is tracked", path)
}

// RemoteURL returns the URL of the named remote.
func (r *Repo) RemoteURL(ctx context.Context, name string) (string, error) {
	out, err := run(ctx, r.Dir, "remote", "get-url", name)
	if err != nil {
		return "", errors.Wrapf(err, "remote %s", name)
	}
	return strings.TrimSpace(out), nil
}

// run executes git in dir and returns stdout. Stderr is folded into the
// error so failures explain themselves.
func run(ctx context.Context, dir string, args ...string) (string, error) {
	return runEnv(ctx, dir, nil, args...)
}

// runEnv is run with extra environment entries appended to the inherited
// environment.
func runEnv(ctx context.Context, dir string, env []string, args ...string) (string, error) {
	full := append([]string{"-C", dir}, args...)
	cmd := exec.CommandContext(ctx, "git", full...)
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("running git", "dir", dir, "args", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.String(), errors.Wrapf(err, "%s", msg)
		}
		return stdout.String(), err
	}
	return stdout.String(), nil
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
