package launcher

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/codemcp/internal/errors"
	"github.com/thoreinstein/codemcp/internal/logging"
	"github.com/thoreinstein/codemcp/internal/proc"
)

const root = "/work/proj"

// fakeExecutor records every spec and fails on argv[0] base names listed
// in codes.
type fakeExecutor struct {
	calls []proc.Spec
	codes map[string]int
	out   *bytes.Buffer
}

func (f *fakeExecutor) Run(_ context.Context, spec proc.Spec) error {
	f.calls = append(f.calls, spec)
	key := filepath.Base(spec.Argv[0])
	if len(spec.Argv) > 2 && spec.Argv[1] == "-m" {
		key = spec.Argv[2]
	}
	if f.out != nil {
		f.out.WriteString("[" + key + "]\n")
	}
	if code, ok := f.codes[key]; ok && code != 0 {
		return errors.NewExitError(errors.Newf("%s exited %d", key, code), code)
	}
	return nil
}

func newFs(t *testing.T, withLocalBlack bool) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(filepath.Join(root, venvBin(".venv", "")), 0o755))
	if withLocalBlack {
		require.NoError(t, afero.WriteFile(fs, filepath.Join(root, venvBin(".venv", "black")), []byte("#!/bin/sh\n"), 0o755))
	}
	return fs
}

func newLauncher(t *testing.T, fs afero.Fs, exec proc.Executor, out *bytes.Buffer) *Launcher {
	t.Helper()
	return New(root, DefaultPlan(DefaultSettings()),
		WithFs(fs),
		WithExecutor(exec),
		WithOutput(out),
		WithLogger(logging.ForTest(t)),
	)
}

func TestRun_LocalFormatterPresent(t *testing.T) {
	var out bytes.Buffer
	exec := &fakeExecutor{}
	l := newLauncher(t, newFs(t, true), exec, &out)

	require.NoError(t, l.Run(t.Context()))
	require.Len(t, exec.calls, 2)

	first := exec.calls[0]
	assert.Equal(t, []string{filepath.Join(root, venvBin(".venv", "black")), "."}, first.Argv)
	assert.Equal(t, root, first.Dir)

	second := exec.calls[1]
	assert.Equal(t, []string{filepath.Join(root, venvBin(".venv", "python")), "-m", "ruff", "format", "."}, second.Argv)
	assert.NotContains(t, second.Argv, "black", "module fallback must not run when the local executable exists")
}

func TestRun_LocalFormatterAbsent(t *testing.T) {
	var out bytes.Buffer
	exec := &fakeExecutor{}
	l := newLauncher(t, newFs(t, false), exec, &out)

	require.NoError(t, l.Run(t.Context()))
	require.Len(t, exec.calls, 2)

	python := filepath.Join(root, venvBin(".venv", "python"))
	assert.Equal(t, []string{python, "-m", "black", "."}, exec.calls[0].Argv)
	assert.Equal(t, []string{python, "-m", "ruff", "format", "."}, exec.calls[1].Argv)
}

func TestRun_SecondFormatterRunsAfterEitherBranch(t *testing.T) {
	for _, local := range []bool{true, false} {
		exec := &fakeExecutor{}
		l := newLauncher(t, newFs(t, local), exec, &bytes.Buffer{})

		require.NoError(t, l.Run(t.Context()))
		require.Len(t, exec.calls, 2, "local=%v", local)
		assert.Equal(t, "ruff", exec.calls[1].Argv[2], "local=%v", local)
	}
}

func TestRun_FirstFailureStopsSequence(t *testing.T) {
	tests := []struct {
		name  string
		local bool
		code  int
	}{
		{"local executable exits 1", true, 1},
		{"module fallback exits 2", false, 2},
		{"module fallback exits 123", false, 123},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			exec := &fakeExecutor{codes: map[string]int{"black": tt.code}}
			l := newLauncher(t, newFs(t, tt.local), exec, &out)

			err := l.Run(t.Context())
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.Code(err))

			var stepErr *StepError
			require.True(t, errors.As(err, &stepErr))
			assert.Equal(t, "black", stepErr.Label)

			assert.Len(t, exec.calls, 1, "second formatter must not run")
			assert.NotContains(t, out.String(), CompletionMessage)
			assert.NotContains(t, out.String(), "Running ruff...")
		})
	}
}

func TestRun_SecondFailurePropagates(t *testing.T) {
	var out bytes.Buffer
	exec := &fakeExecutor{codes: map[string]int{"ruff": 4}}
	l := newLauncher(t, newFs(t, true), exec, &out)

	err := l.Run(t.Context())
	require.Error(t, err)
	assert.Equal(t, 4, errors.Code(err))
	assert.Len(t, exec.calls, 2)
	assert.NotContains(t, out.String(), CompletionMessage)
}

func TestRun_ProgressLinesInOrder(t *testing.T) {
	var out bytes.Buffer
	exec := &fakeExecutor{out: &out}
	l := newLauncher(t, newFs(t, true), exec, &out)

	require.NoError(t, l.Run(t.Context()))

	want := []string{
		"Running black...",
		"[black]",
		"Running ruff...",
		"[ruff]",
		CompletionMessage,
	}
	got := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, want, got)
}

func TestChoose_NoEligibleInvocation(t *testing.T) {
	l := New(root, nil, WithFs(afero.NewMemMapFs()), WithLogger(logging.ForTest(t)))

	_, err := l.Choose(Step{
		Label:        "only-local",
		Alternatives: []Invocation{{Argv: []string{"bin/tool"}, RequireFile: "bin/tool"}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoEligibleInvocation))
}

func TestRun_NoEligibleInvocationRunsNothing(t *testing.T) {
	exec := &fakeExecutor{}
	plan := Plan{{
		Label:        "only-local",
		Alternatives: []Invocation{{Argv: []string{"bin/tool"}, RequireFile: "bin/tool"}},
	}}
	var out bytes.Buffer
	l := New(root, plan, WithFs(afero.NewMemMapFs()), WithExecutor(exec), WithOutput(&out), WithLogger(logging.ForTest(t)))

	require.Error(t, l.Run(t.Context()))
	assert.Empty(t, exec.calls)
	assert.Empty(t, out.String())
}

func TestDefaultPlan_CustomSettings(t *testing.T) {
	plan := DefaultPlan(Settings{
		Venv:          "env",
		Primary:       "isort",
		PrimaryArgs:   []string{"src"},
		Secondary:     "ruff",
		SecondaryArgs: []string{"check", "--fix", "src"},
	})

	require.Len(t, plan, 2)
	assert.Equal(t, "isort", plan[0].Label)
	require.Len(t, plan[0].Alternatives, 2)
	assert.Equal(t, venvBin("env", "isort"), plan[0].Alternatives[0].RequireFile)
	assert.Equal(t, []string{venvBin("env", "python"), "-m", "isort", "src"}, plan[0].Alternatives[1].Argv)
	assert.Equal(t, []string{venvBin("env", "python"), "-m", "ruff", "check", "--fix", "src"}, plan[1].Alternatives[0].Argv)
}
