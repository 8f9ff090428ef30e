// Package runner executes named commands from a project's command table.
package runner

import (
	"context"
	"log/slog"

	"github.com/thoreinstein/codemcp/internal/errors"
	"github.com/thoreinstein/codemcp/internal/git"
	"github.com/thoreinstein/codemcp/internal/proc"
	"github.com/thoreinstein/codemcp/internal/project"
)

// Options adjust a single Run.
type Options struct {
	// Accept sets the baseline-regeneration variable to 1 for the child.
	Accept bool
}

// Result describes a completed run.
type Result struct {
	Name string
	Argv []string

	// Commit is the hash of the auto-commit, empty when none was made.
	Commit string
}

// Repository is the subset of git the runner needs for auto-commit.
type Repository interface {
	// Snapshot identifies the work tree contents; equal snapshots mean
	// nothing changed.
	Snapshot(ctx context.Context) (string, error)
	AddAll(ctx context.Context) error
	Commit(ctx context.Context, message string) (string, error)
}

// Runner runs commands rooted at a project.
type Runner struct {
	project *project.Project
	exec    proc.Executor
	logger  *slog.Logger

	acceptEnv  string
	autoCommit func(name string) bool
	openRepo   func(ctx context.Context, dir string) (Repository, error)
}

// Option configures a Runner.
type Option func(*Runner)

// WithExecutor sets the process executor.
func WithExecutor(e proc.Executor) Option {
	return func(r *Runner) {
		r.exec = e
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithAcceptEnv overrides the variable set by Options.Accept.
func WithAcceptEnv(name string) Option {
	return func(r *Runner) {
		if name != "" {
			r.acceptEnv = name
		}
	}
}

// WithAutoCommit sets the predicate deciding which commands have their
// changes committed. A nil predicate disables auto-commit.
func WithAutoCommit(fn func(name string) bool) Option {
	return func(r *Runner) {
		r.autoCommit = fn
	}
}

// WithRepositoryOpener replaces how the project's git repository is found.
func WithRepositoryOpener(fn func(ctx context.Context, dir string) (Repository, error)) Option {
	return func(r *Runner) {
		r.openRepo = fn
	}
}

// New creates a Runner for p.
func New(p *project.Project, opts ...Option) *Runner {
	r := &Runner{
		project:   p,
		exec:      &proc.ExecExecutor{},
		logger:    slog.Default(),
		acceptEnv: project.AcceptEnv,
		openRepo:  openGit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func openGit(ctx context.Context, dir string) (Repository, error) {
	return git.Open(ctx, dir)
}

// Run executes the named command with extra arguments appended. The child
// runs in the project root with its output streamed. A non-zero exit is
// returned as *errors.ExitError carrying the child's status.
func (r *Runner) Run(ctx context.Context, name string, extra []string, opts Options) (*Result, error) {
	cmd, err := r.project.Lookup(name)
	if err != nil {
		return nil, errors.NewUserError(err, "Run: codemcp list")
	}

	spec := proc.Spec{
		Argv: r.project.Resolve(cmd, extra...),
		Dir:  r.project.Root,
		Env:  proc.FormatEnv(cmd.Env),
	}
	if opts.Accept {
		spec.Env = append(spec.Env, r.acceptEnv+"=1")
	}

	repo, before := r.snapshot(ctx, name)

	r.logger.Info("running command", "name", name, "argv", spec.String())
	if err := r.exec.Run(ctx, spec); err != nil {
		return nil, errors.Wrapf(err, "command %s", name)
	}

	res := &Result{Name: name, Argv: spec.Argv}
	if repo == nil {
		return res, nil
	}

	hash, err := r.commitChanges(ctx, repo, name, before)
	if err != nil {
		return res, err
	}
	res.Commit = hash
	return res, nil
}

// snapshot records the work tree contents before an auto-committed command
// runs. It returns a nil Repository when auto-commit does not apply.
func (r *Runner) snapshot(ctx context.Context, name string) (Repository, string) {
	if r.autoCommit == nil || !r.autoCommit(name) {
		return nil, ""
	}
	repo, err := r.openRepo(ctx, r.project.Root)
	if err != nil {
		r.logger.Debug("auto-commit skipped", "name", name, "reason", err)
		return nil, ""
	}
	tree, err := repo.Snapshot(ctx)
	if err != nil {
		r.logger.Warn("auto-commit skipped", "name", name, "error", err)
		return nil, ""
	}
	return repo, tree
}

func (r *Runner) commitChanges(ctx context.Context, repo Repository, name, before string) (string, error) {
	after, err := repo.Snapshot(ctx)
	if err != nil {
		return "", errors.Wrap(err, "checking for changes")
	}
	if after == before {
		r.logger.Debug("no changes to commit", "name", name)
		return "", nil
	}

	if err := repo.AddAll(ctx); err != nil {
		return "", err
	}
	hash, err := repo.Commit(ctx, CommitMessage(name))
	if errors.Is(err, git.ErrNothingToCommit) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	r.logger.Info("committed changes", "name", name, "commit", hash)
	return hash, nil
}

// CommitMessage returns the auto-commit message for a command,
// e.g. "Auto-commit linting changes".
func CommitMessage(name string) string {
	return "Auto-commit " + gerund(name) + " changes"
}

func gerund(name string) string {
	switch name {
	case project.CommandFormat:
		return "formatting"
	case project.CommandLint:
		return "linting"
	default:
		return name
	}
}
