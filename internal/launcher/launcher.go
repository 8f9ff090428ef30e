package launcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/thoreinstein/codemcp/internal/errors"
	"github.com/thoreinstein/codemcp/internal/proc"
)

// CompletionMessage is printed once every step has succeeded.
const CompletionMessage = "Format completed successfully!"

// ErrNoEligibleInvocation indicates every alternative of a step required a
// file that does not exist.
var ErrNoEligibleInvocation = errors.New("no eligible invocation")

// StepError reports the step that stopped the plan.
type StepError struct {
	Label string
	Argv  []string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Label, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Launcher executes a Plan rooted at a project directory.
type Launcher struct {
	root   string
	plan   Plan
	fs     afero.Fs
	exec   proc.Executor
	out    io.Writer
	logger *slog.Logger
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithFs sets the filesystem used to test RequireFile.
func WithFs(fs afero.Fs) Option {
	return func(l *Launcher) {
		l.fs = fs
	}
}

// WithExecutor sets the process executor.
func WithExecutor(e proc.Executor) Option {
	return func(l *Launcher) {
		l.exec = e
	}
}

// WithOutput sets where progress lines are printed.
func WithOutput(w io.Writer) Option {
	return func(l *Launcher) {
		l.out = w
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Launcher) {
		l.logger = logger
	}
}

// New creates a Launcher for plan rooted at root.
func New(root string, plan Plan, opts ...Option) *Launcher {
	l := &Launcher{
		root:   root,
		plan:   plan,
		fs:     afero.NewOsFs(),
		exec:   &proc.ExecExecutor{},
		out:    os.Stdout,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run executes the plan. It prints "Running <label>..." before each step,
// stops at the first failure, and prints CompletionMessage only when every
// step succeeded. The returned error carries the failing step's exit code.
func (l *Launcher) Run(ctx context.Context) error {
	for _, step := range l.plan {
		inv, err := l.choose(step)
		if err != nil {
			return err
		}

		argv := l.resolve(inv.Argv)
		fmt.Fprintf(l.out, "Running %s...\n", step.Label)
		l.logger.Debug("running format step", "step", step.Label, "argv", proc.Spec{Argv: argv}.String())

		if err := l.exec.Run(ctx, proc.Spec{Argv: argv, Dir: l.root}); err != nil {
			l.logger.Debug("format step failed", "step", step.Label, "code", errors.Code(err))
			return &StepError{Label: step.Label, Argv: argv, Err: err}
		}
	}

	fmt.Fprintln(l.out, CompletionMessage)
	return nil
}

// Choose returns the invocation that would run for step, without running it.
func (l *Launcher) Choose(step Step) (Invocation, error) {
	return l.choose(step)
}

func (l *Launcher) choose(step Step) (Invocation, error) {
	for _, inv := range step.Alternatives {
		if inv.RequireFile == "" {
			return inv, nil
		}
		path := l.resolvePath(inv.RequireFile)
		exists, err := afero.Exists(l.fs, path)
		if err != nil {
			return Invocation{}, errors.Wrapf(err, "checking %s", path)
		}
		if exists {
			return inv, nil
		}
		l.logger.Debug("alternative not available", "step", step.Label, "missing", path)
	}
	return Invocation{}, errors.Wrapf(ErrNoEligibleInvocation, "step %s", step.Label)
}

func (l *Launcher) resolve(argv []string) []string {
	out := make([]string, len(argv))
	copy(out, argv)
	if len(out) > 0 && isRelativePath(out[0]) {
		out[0] = l.resolvePath(out[0])
	}
	return out
}

func (l *Launcher) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(l.root, p)
}

func isRelativePath(p string) bool {
	return !filepath.IsAbs(p) && strings.ContainsAny(p, `/\`)
}
