package fileops

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/thoreinstein/codemcp/internal/errors"
)

// Mode is a supported chmod mode.
type Mode string

const (
	// ModeExecutable adds the execute bit for user, group and other.
	ModeExecutable Mode = "a+x"
	// ModeNonExecutable removes the execute bits.
	ModeNonExecutable Mode = "a-x"
)

const execBits os.FileMode = 0o111

// ErrUnsupportedMode indicates a mode other than a+x or a-x.
var ErrUnsupportedMode = errors.New("unsupported chmod mode")

func (m Mode) validate() error {
	switch m {
	case ModeExecutable, ModeNonExecutable:
		return nil
	}
	return errors.NewUserError(
		errors.Wrapf(ErrUnsupportedMode, "%q", string(m)),
		"only a+x and a-x are supported because git only tracks the execute bit",
	)
}

type chmodConfig struct {
	openRepo func(ctx context.Context, dir string) (Repository, error)
}

// ChmodOption configures Chmod.
type ChmodOption func(*chmodConfig)

func withChmodRepo(fn func(ctx context.Context, dir string) (Repository, error)) ChmodOption {
	return func(c *chmodConfig) {
		c.openRepo = fn
	}
}

// Chmod sets or clears the execute bits of path and stages the result.
// A file already in the requested state is left untouched.
func Chmod(ctx context.Context, path string, mode Mode, opts ...ChmodOption) (*Outcome, error) {
	cfg := chmodConfig{openRepo: openGit}
	for _, opt := range opts {
		opt(&cfg)
	}

	if path == "" {
		return nil, errors.NewUserError(errors.New("file path must be provided"), "")
	}
	if err := mode.validate(); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", path)
	}
	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		return nil, errors.NewUserError(errors.Wrapf(errors.ErrNotFound, "the file does not exist: %s", path), "")
	}
	if err != nil {
		return nil, errors.Wrapf(err, "checking %s", path)
	}

	perm := info.Mode().Perm()
	executable := perm&0o100 != 0
	out := &Outcome{Path: abs}

	switch {
	case mode == ModeExecutable && executable:
		out.Message = fmt.Sprintf("File '%s' is already executable", path)
		return out, nil
	case mode == ModeNonExecutable && !executable:
		out.Message = fmt.Sprintf("File '%s' is already non-executable", path)
		return out, nil
	}

	newPerm := perm &^ execBits
	out.Message = fmt.Sprintf("Removed executable permission from file '%s'", path)
	if mode == ModeExecutable {
		newPerm = perm | execBits
		out.Message = fmt.Sprintf("Made file '%s' executable", path)
	}
	if err := os.Chmod(abs, newPerm); err != nil {
		return nil, errors.Wrapf(err, "chmod %s %s", mode, path)
	}
	slog.Debug("changed mode", "path", abs, "from", perm, "to", newPerm)

	repo, err := cfg.openRepo(ctx, filepath.Dir(abs))
	if err != nil {
		out.Message += ". Not in a git repository; nothing staged."
		return out, nil
	}
	if err := repo.Add(ctx, abs); err != nil {
		return out, err
	}
	out.Staged = true
	out.Message += ". Changes staged."
	return out, nil
}
