package fileops

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/thoreinstein/codemcp/internal/changes"
	"github.com/thoreinstein/codemcp/internal/errors"
	"github.com/thoreinstein/codemcp/internal/git"
	"github.com/thoreinstein/codemcp/pkg/fileutil"
)

// Approval options shown under every proposal.
const (
	OptionApply     = "1. Apply this change"
	OptionApplyAuto = "2. Apply this change and enable auto mode for future changes"
	OptionSkip      = "3. Skip this change"
)

// Repository is the subset of git the writer needs.
type Repository interface {
	IsTracked(ctx context.Context, path string) (bool, error)
	Add(ctx context.Context, paths ...string) error
	Commit(ctx context.Context, message string) (string, error)
}

// Request describes content to be written to a file.
type Request struct {
	Path        string
	Content     string
	Description string
	ChatID      string
}

// Proposal is a pending write awaiting approval.
type Proposal struct {
	Change *changes.Change
	Action string // "creating" or "updating"
	Diff   string
}

// String renders the preview with the approval options.
func (p *Proposal) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Proposed changes for %s %s:\n\n", p.Action, p.Change.Path)
	b.WriteString(p.Diff)
	b.WriteString("\n\nOptions:\n")
	b.WriteString(OptionApply + "\n")
	b.WriteString(OptionApplyAuto + "\n")
	b.WriteString(OptionSkip)
	return b.String()
}

// Outcome reports what applying a change did.
type Outcome struct {
	Path    string
	Staged  bool
	Commit  string
	Message string
}

// Writer writes files and records them in git.
type Writer struct {
	store        *changes.Store
	commitPrompt bool
	openRepo     func(ctx context.Context, dir string) (Repository, error)
	logger       *slog.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithCommitPrompt stops Apply after staging so the user commits by hand.
func WithCommitPrompt(enabled bool) Option {
	return func(w *Writer) {
		w.commitPrompt = enabled
	}
}

// WithRepositoryOpener replaces how the repository holding a file is found.
func WithRepositoryOpener(fn func(ctx context.Context, dir string) (Repository, error)) Option {
	return func(w *Writer) {
		w.openRepo = fn
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) {
		w.logger = logger
	}
}

// NewWriter creates a Writer that keeps proposals in store.
func NewWriter(store *changes.Store, opts ...Option) *Writer {
	w := &Writer{
		store:    store,
		openRepo: openGit,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func openGit(ctx context.Context, dir string) (Repository, error) {
	return git.Open(ctx, dir)
}

// Propose validates req, stores it as a pending change, makes it the
// chat's current change and returns a diff preview.
func (w *Writer) Propose(ctx context.Context, req Request) (*Proposal, error) {
	path, existing, exists, err := w.check(ctx, req.Path)
	if err != nil {
		return nil, err
	}

	diff, err := UnifiedDiff(path, string(existing), req.Content)
	if err != nil {
		return nil, err
	}

	c := &changes.Change{
		Kind:        changes.KindWrite,
		Path:        path,
		Content:     req.Content,
		Description: req.Description,
		ChatID:      req.ChatID,
	}
	if _, err := w.store.Put(c); err != nil {
		return nil, err
	}
	if err := w.store.SetCurrent(req.ChatID, c.ID); err != nil {
		return nil, err
	}

	action := "creating"
	if exists {
		action = "updating"
	}
	w.logger.Info("proposed change", "id", c.ID, "path", path)
	return &Proposal{Change: c, Action: action, Diff: diff}, nil
}

// ProposeChmod stores an execute-bit change for approval.
func (w *Writer) ProposeChmod(ctx context.Context, path string, mode Mode, chatID string) (*changes.Change, error) {
	if err := mode.validate(); err != nil {
		return nil, err
	}
	path, _, exists, err := w.check(ctx, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.Wrapf(errors.ErrNotFound, "file %s", path)
	}

	c := &changes.Change{
		Kind:        changes.KindChmod,
		Path:        path,
		Mode:        string(mode),
		Description: fmt.Sprintf("chmod %s %s", mode, filepath.Base(path)),
		ChatID:      chatID,
	}
	if _, err := w.store.Put(c); err != nil {
		return nil, err
	}
	if err := w.store.SetCurrent(chatID, c.ID); err != nil {
		return nil, err
	}
	return c, nil
}

// Write applies req immediately, as when auto-edit is enabled.
func (w *Writer) Write(ctx context.Context, req Request) (*Outcome, error) {
	path, existing, exists, err := w.check(ctx, req.Path)
	if err != nil {
		return nil, err
	}

	ending := LF
	if exists {
		ending = DetectLineEnding(existing)
	}
	if err := fileutil.AtomicWriteFileAll(path, []byte(ending.Apply(req.Content)), filePerm(path, exists)); err != nil {
		return nil, errors.Wrapf(err, "writing %s", path)
	}
	w.logger.Debug("wrote file", "path", path, "crlf", ending == CRLF)

	out := &Outcome{Path: path, Message: "Successfully wrote to " + path}
	msg := req.Description
	if msg == "" {
		msg = "Write " + filepath.Base(path)
	}
	if err := w.record(ctx, path, msg, out); err != nil {
		return out, err
	}
	return out, nil
}

// Apply carries out the pending change id and removes it from the store.
func (w *Writer) Apply(ctx context.Context, id string) (*Outcome, error) {
	c, err := w.store.Get(id)
	if err != nil {
		return nil, err
	}

	var out *Outcome
	switch c.Kind {
	case changes.KindWrite:
		out, err = w.Write(ctx, Request{Path: c.Path, Content: c.Content, Description: c.Description, ChatID: c.ChatID})
	case changes.KindChmod:
		out, err = Chmod(ctx, c.Path, Mode(c.Mode), w.chmodOptions()...)
	default:
		return nil, errors.Newf("unknown change kind %q", c.Kind)
	}
	if err != nil {
		return out, err
	}

	if err := w.Discard(c); err != nil {
		return out, err
	}
	return out, nil
}

// Discard drops a pending change without applying it.
func (w *Writer) Discard(c *changes.Change) error {
	if err := w.store.Remove(c.ID); err != nil {
		return err
	}
	current, err := w.store.Current(c.ChatID)
	if err != nil {
		return err
	}
	if current == c.ID {
		return w.store.ClearCurrent(c.ChatID)
	}
	return nil
}

func (w *Writer) chmodOptions() []ChmodOption {
	return []ChmodOption{withChmodRepo(w.openRepo)}
}

// check validates path and returns its cleaned form with any existing
// content. Existing files must be tracked by git.
func (w *Writer) check(ctx context.Context, path string) (string, []byte, bool, error) {
	if path == "" {
		return "", nil, false, errors.NewUserError(errors.New("file path must be provided"), "")
	}
	if !filepath.IsAbs(path) {
		return "", nil, false, errors.NewUserError(errors.Newf("file path must be absolute: %s", path), "")
	}
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return path, nil, false, nil
	}
	if err != nil {
		return "", nil, false, errors.Wrapf(err, "checking %s", path)
	}
	if info.IsDir() {
		return "", nil, false, errors.NewUserError(errors.Newf("%s is a directory", path), "")
	}

	repo, err := w.openRepo(ctx, filepath.Dir(path))
	if err != nil {
		return "", nil, false, errors.Wrapf(errors.ErrNotTracked, "%s: %v", path, err)
	}
	tracked, err := repo.IsTracked(ctx, path)
	if err != nil {
		return "", nil, false, err
	}
	if !tracked {
		return "", nil, false, errors.NewUserError(
			errors.Wrapf(errors.ErrNotTracked, "%s", path),
			"Run: git add "+path,
		)
	}

	existing, err := fileutil.ReadFileWithLimit(path)
	if err != nil {
		return "", nil, false, errors.Wrapf(err, "reading %s", path)
	}
	return path, existing, true, nil
}

// record stages path and commits it unless commit prompting is on.
// Files outside a repository are written but not recorded.
func (w *Writer) record(ctx context.Context, path, message string, out *Outcome) error {
	repo, err := w.openRepo(ctx, filepath.Dir(path))
	if err != nil {
		w.logger.Warn("file is not in a git repository; nothing recorded", "path", path)
		return nil
	}
	if err := repo.Add(ctx, path); err != nil {
		return err
	}
	out.Staged = true

	if w.commitPrompt {
		out.Message += "\nChanges staged; commit them when ready."
		return nil
	}

	hash, err := repo.Commit(ctx, message)
	if errors.Is(err, git.ErrNothingToCommit) {
		out.Message += "\nNo changes to commit."
		return nil
	}
	if err != nil {
		out.Message += "\nFailed to commit changes to git: " + err.Error()
		return err
	}
	out.Commit = hash
	out.Message += "\nChanges committed to git: " + message
	return nil
}

func filePerm(path string, exists bool) os.FileMode {
	if exists {
		if info, err := os.Stat(path); err == nil {
			return info.Mode().Perm()
		}
	}
	return 0o644
}
