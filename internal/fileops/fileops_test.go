package fileops

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/codemcp/internal/changes"
	"github.com/thoreinstein/codemcp/internal/errors"
	"github.com/thoreinstein/codemcp/internal/logging"
)

type fakeRepo struct {
	tracked  map[string]bool
	added    []string
	messages []string
}

func (r *fakeRepo) IsTracked(_ context.Context, path string) (bool, error) {
	return r.tracked[path], nil
}

func (r *fakeRepo) Add(_ context.Context, paths ...string) error {
	r.added = append(r.added, paths...)
	return nil
}

func (r *fakeRepo) Commit(_ context.Context, message string) (string, error) {
	r.messages = append(r.messages, message)
	return "deadbeef", nil
}

func opener(repo *fakeRepo) func(context.Context, string) (Repository, error) {
	return func(context.Context, string) (Repository, error) { return repo, nil }
}

func newWriter(t *testing.T, repo *fakeRepo, opts ...Option) (*Writer, *changes.Store) {
	t.Helper()
	store, err := changes.Open(filepath.Join(t.TempDir(), "pending"))
	require.NoError(t, err)
	opts = append([]Option{WithRepositoryOpener(opener(repo)), WithLogger(logging.ForTest(t))}, opts...)
	return NewWriter(store, opts...), store
}

func TestUnifiedDiff(t *testing.T) {
	diff, err := UnifiedDiff("/repo/pkg/a.py", "x = 1\r\ny = 2\r\n", "x = 1\ny = 3\n")
	require.NoError(t, err)

	lines := strings.Split(diff, "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.True(t, strings.HasPrefix(lines[0], "--- a/a.py"))
	assert.True(t, strings.HasPrefix(lines[1], "+++ b/a.py"))
	assert.Contains(t, lines, "-y = 2")
	assert.Contains(t, lines, "+y = 3")
	assert.Contains(t, lines, " x = 1", "CRLF vs LF is not a change")
	assert.NotContains(t, diff, "\r")

	same, err := UnifiedDiff("a.py", "x\n", "x\r\n")
	require.NoError(t, err)
	assert.Empty(t, same)
}

func TestLineEnding(t *testing.T) {
	assert.Equal(t, CRLF, DetectLineEnding([]byte("a\r\nb\r\n")))
	assert.Equal(t, LF, DetectLineEnding([]byte("a\nb\n")))
	assert.Equal(t, LF, DetectLineEnding(nil))

	assert.Equal(t, "a\r\nb\r\n", CRLF.Apply("a\nb\r\n"))
	assert.Equal(t, "a\nb\n", LF.Apply("a\r\nb\n"))
}

func TestWriter_ProposeNewFile(t *testing.T) {
	repo := &fakeRepo{}
	w, store := newWriter(t, repo)
	path := filepath.Join(t.TempDir(), "new", "file.txt")

	p, err := w.Propose(t.Context(), Request{Path: path, Content: "hello\n", Description: "add file", ChatID: "c1"})
	require.NoError(t, err)

	assert.Equal(t, "creating", p.Action)
	assert.Contains(t, p.Diff, "+hello")
	assert.NoFileExists(t, path, "proposals never touch the file")

	preview := p.String()
	assert.True(t, strings.HasPrefix(preview, "Proposed changes for creating "+path+":\n\n"))
	assert.True(t, strings.HasSuffix(preview, "Options:\n"+OptionApply+"\n"+OptionApplyAuto+"\n"+OptionSkip))

	current, err := store.Current("c1")
	require.NoError(t, err)
	assert.Equal(t, p.Change.ID, current)
}

func TestWriter_RejectsUntrackedExistingFile(t *testing.T) {
	repo := &fakeRepo{tracked: map[string]bool{}}
	w, _ := newWriter(t, repo)
	path := filepath.Join(t.TempDir(), "local.txt")
	require.NoError(t, os.WriteFile(path, []byte("mine\n"), 0o644))

	_, err := w.Propose(t.Context(), Request{Path: path, Content: "theirs\n"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotTracked))

	_, err = w.Write(t.Context(), Request{Path: path, Content: "theirs\n"})
	assert.True(t, errors.Is(err, errors.ErrNotTracked))

	data, _ := os.ReadFile(path)
	assert.Equal(t, "mine\n", string(data))
}

func TestWriter_RejectsBadPaths(t *testing.T) {
	w, _ := newWriter(t, &fakeRepo{})

	tests := []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"relative", "pkg/a.py"},
		{"directory", t.TempDir()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := w.Propose(t.Context(), Request{Path: tt.path, Content: "x"})
			require.Error(t, err)
			assert.Equal(t, errors.ExitUser, errors.Code(err))
		})
	}
}

func TestWriter_ApplyPreservesCRLF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "win.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\r\nb\r\n"), 0o644))

	repo := &fakeRepo{tracked: map[string]bool{path: true}}
	w, store := newWriter(t, repo)

	p, err := w.Propose(t.Context(), Request{Path: path, Content: "a\nc\n", Description: "edit win", ChatID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "updating", p.Action)

	out, err := w.Apply(t.Context(), p.Change.ID)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\r\nc\r\n", string(data))

	assert.Equal(t, []string{path}, repo.added)
	assert.Equal(t, []string{"edit win"}, repo.messages)
	assert.Equal(t, "deadbeef", out.Commit)
	assert.Contains(t, out.Message, "Changes committed to git: edit win")

	_, err = store.Get(p.Change.ID)
	assert.True(t, errors.Is(err, changes.ErrChangeNotFound), "applied changes leave the queue")
	current, _ := store.Current("c1")
	assert.Empty(t, current)
}

func TestWriter_CommitPromptOnlyStages(t *testing.T) {
	repo := &fakeRepo{}
	w, _ := newWriter(t, repo, WithCommitPrompt(true))
	path := filepath.Join(t.TempDir(), "f.txt")

	out, err := w.Write(t.Context(), Request{Path: path, Content: "x\r\n"})
	require.NoError(t, err)

	assert.True(t, out.Staged)
	assert.Empty(t, out.Commit)
	assert.Empty(t, repo.messages)

	data, _ := os.ReadFile(path)
	assert.Equal(t, "x\n", string(data), "new files take LF")
}

func TestWriter_ApplyChmod(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("execute bits are not tracked on windows")
	}
	path := filepath.Join(t.TempDir(), "run.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o644))

	repo := &fakeRepo{tracked: map[string]bool{path: true}}
	w, _ := newWriter(t, repo)

	c, err := w.ProposeChmod(t.Context(), path, ModeExecutable, "")
	require.NoError(t, err)
	assert.Equal(t, changes.KindChmod, c.Kind)

	out, err := w.Apply(t.Context(), c.ID)
	require.NoError(t, err)
	assert.True(t, out.Staged)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	_, err = w.ProposeChmod(t.Context(), path, Mode("755"), "")
	assert.True(t, errors.Is(err, ErrUnsupportedMode))
}

func TestChmod(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("execute bits are not tracked on windows")
	}

	tests := []struct {
		name      string
		start     os.FileMode
		mode      Mode
		want      os.FileMode
		wantMsg   string
		wantStage bool
	}{
		{"add", 0o644, ModeExecutable, 0o755, "Made file", true},
		{"already executable", 0o755, ModeExecutable, 0o755, "is already executable", false},
		{"remove", 0o755, ModeNonExecutable, 0o644, "Removed executable permission", true},
		{"already non-executable", 0o600, ModeNonExecutable, 0o600, "is already non-executable", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "script.sh")
			require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o600))
			require.NoError(t, os.Chmod(path, tt.start))

			repo := &fakeRepo{}
			out, err := Chmod(t.Context(), path, tt.mode, withChmodRepo(opener(repo)))
			require.NoError(t, err)

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.Mode().Perm())
			assert.Contains(t, out.Message, tt.wantMsg)
			assert.Equal(t, tt.wantStage, out.Staged)
			assert.Equal(t, tt.wantStage, len(repo.added) == 1)
		})
	}
}

func TestChmod_Errors(t *testing.T) {
	_, err := Chmod(t.Context(), filepath.Join(t.TempDir(), "missing"), ModeExecutable)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = Chmod(t.Context(), "", ModeExecutable)
	assert.Error(t, err)
}

// TestWriter_GitEndToEnd applies a proposal in a real repository.
func TestWriter_GitEndToEnd(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv("GIT_CONFIG_GLOBAL", os.DevNull)
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")

	dir := t.TempDir()
	runGit(t, dir, "init", "-q")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test User")
	runGit(t, dir, "config", "commit.gpgsign", "false")
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\n"), 0o644))
	runGit(t, dir, "add", "a.txt")
	runGit(t, dir, "commit", "-q", "-m", "initial")

	store, err := changes.Open(filepath.Join(t.TempDir(), "pending"))
	require.NoError(t, err)
	w := NewWriter(store, WithLogger(logging.ForTest(t)))

	p, err := w.Propose(t.Context(), Request{Path: path, Content: "two\n", Description: "Replace one with two"})
	require.NoError(t, err)
	assert.Contains(t, p.Diff, "-one")

	out, err := w.Apply(t.Context(), p.Change.ID)
	require.NoError(t, err)
	require.NotEmpty(t, out.Commit)

	assert.Equal(t, "Replace one with two", runGit(t, dir, "log", "-1", "--format=%s"))
	assert.Empty(t, runGit(t, dir, "status", "--porcelain"))

	untracked := filepath.Join(dir, "scratch.txt")
	require.NoError(t, os.WriteFile(untracked, []byte("x"), 0o644))
	_, err = w.Propose(t.Context(), Request{Path: untracked, Content: "y"})
	assert.True(t, errors.Is(err, errors.ErrNotTracked))
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), out)
	return strings.TrimSpace(string(out))
}
