// Package proc runs external collaborators (formatters, test runners, git)
// as child processes and maps their exit status onto CLI exit codes.
package proc

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"slices"

	"al.essio.dev/pkg/shellescape"

	"github.com/thoreinstein/codemcp/internal/errors"
)

// ExitNotFound is the conventional shell status for a missing executable.
const ExitNotFound = 127

// Spec describes one child process.
type Spec struct {
	// Argv is the argument vector; Argv[0] is resolved through PATH unless
	// it contains a path separator.
	Argv []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env is appended to the parent environment; later entries win.
	Env []string
}

// String renders the argument vector as a copy-pasteable shell command.
func (s Spec) String() string {
	return shellescape.QuoteCommand(s.Argv)
}

// Executor runs a Spec to completion.
type Executor interface {
	Run(ctx context.Context, spec Spec) error
}

// ExecExecutor runs real processes with the configured stdio.
// Zero-valued writers and reader fall back to the parent's stdio.
type ExecExecutor struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

var _ Executor = (*ExecExecutor)(nil)

// Run starts the process and waits for it. A non-zero exit is returned as
// *errors.ExitError carrying the child's status so callers can propagate it
// unchanged.
func (e *ExecExecutor) Run(ctx context.Context, spec Spec) error {
	if len(spec.Argv) == 0 {
		return errors.New("empty argument vector")
	}

	cmd := exec.CommandContext(ctx, spec.Argv[0], spec.Argv[1:]...)
	cmd.Dir = spec.Dir
	cmd.Stdin = e.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}

	slog.Debug("starting process", "argv", spec.String(), "dir", spec.Dir)

	err := cmd.Run()
	if err == nil {
		return nil
	}
	return classify(spec, err)
}

func classify(spec Spec, err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			// Killed by a signal.
			code = errors.ExitSystem
		}
		return errors.NewExitError(errors.Wrapf(err, "%s", spec.Argv[0]), code)
	}
	if errors.Is(err, exec.ErrNotFound) || isPathNotFound(err) {
		return errors.NewExitErrorWithSuggestion(
			errors.Wrapf(err, "starting %s", spec.Argv[0]),
			ExitNotFound,
			"check that "+spec.Argv[0]+" is installed and on PATH",
		)
	}
	return errors.NewSystemError(errors.Wrapf(err, "running %s", spec.String()), "")
}

func isPathNotFound(err error) bool {
	var pathErr *os.PathError
	return errors.As(err, &pathErr) && os.IsNotExist(pathErr.Err)
}

// FormatEnv renders a map as KEY=VALUE entries sorted by key.
func FormatEnv(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	slices.Sort(out)
	return out
}
