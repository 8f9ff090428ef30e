package launcher

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"github.com/thoreinstein/codemcp/internal/errors"
	"github.com/thoreinstein/codemcp/internal/logging"
	"github.com/thoreinstein/codemcp/internal/proc"
)

// scaffoldVenv creates <dir>/.venv/bin/python that logs its module
// argument to calls.log and exits with the status named by the
// corresponding file in dir (black.exit, ruff.exit), defaulting to 0.
func scaffoldVenv(t *testing.T, withLocalBlack bool) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	dir := t.TempDir()
	bin := filepath.Join(dir, ".venv", "bin")
	if err := os.MkdirAll(bin, 0o755); err != nil {
		t.Fatal(err)
	}

	python := `#!/bin/sh
echo "python $*" >> calls.log
code=0
if [ -f "$2.exit" ]; then code=$(cat "$2.exit"); fi
exit $code
`
	if err := os.WriteFile(filepath.Join(bin, "python"), []byte(python), 0o755); err != nil {
		t.Fatal(err)
	}

	if withLocalBlack {
		black := `#!/bin/sh
echo "black $*" >> calls.log
code=0
if [ -f black.exit ]; then code=$(cat black.exit); fi
exit $code
`
		if err := os.WriteFile(filepath.Join(bin, "black"), []byte(black), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func setExit(t *testing.T, dir, tool string, code string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, tool+".exit"), []byte(code), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readCalls(t *testing.T, dir string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "calls.log"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func runReal(t *testing.T, dir string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	l := New(dir, DefaultPlan(DefaultSettings()),
		WithExecutor(&proc.ExecExecutor{Stdout: &out, Stderr: &out}),
		WithOutput(&out),
		WithLogger(logging.ForTest(t)),
	)
	err := l.Run(t.Context())
	return out.String(), err
}

func TestEndToEnd_LocalExecutableSucceeds(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	dir := scaffoldVenv(t, true)

	out, err := runReal(t, dir)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code := errors.Code(err); code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}

	wantCalls := []string{"black .", "python -m ruff format ."}
	if got := readCalls(t, dir); strings.Join(got, "|") != strings.Join(wantCalls, "|") {
		t.Errorf("calls = %q, want %q", got, wantCalls)
	}

	iBlack := strings.Index(out, "Running black...")
	iRuff := strings.Index(out, "Running ruff...")
	iDone := strings.Index(out, CompletionMessage)
	if iBlack < 0 || iRuff < 0 || iDone < 0 || !(iBlack < iRuff && iRuff < iDone) {
		t.Errorf("progress lines missing or out of order:\n%s", out)
	}
}

func TestEndToEnd_FallbackExitsTwo(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	dir := scaffoldVenv(t, false)
	setExit(t, dir, "black", "2")

	out, err := runReal(t, dir)
	if err == nil {
		t.Fatal("expected error")
	}
	if code := errors.Code(err); code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}

	wantCalls := []string{"python -m black ."}
	if got := readCalls(t, dir); strings.Join(got, "|") != strings.Join(wantCalls, "|") {
		t.Errorf("calls = %q, want %q", got, wantCalls)
	}
	if strings.Contains(out, CompletionMessage) {
		t.Errorf("completion line printed after failure:\n%s", out)
	}
}

func TestEndToEnd_RunsFromAnyWorkingDirectory(t *testing.T) {
	dir := scaffoldVenv(t, true)
	t.Chdir(t.TempDir())

	if _, err := runReal(t, dir); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := readCalls(t, dir); len(got) != 2 {
		t.Errorf("calls = %q, want two entries logged in the project root", got)
	}
}
