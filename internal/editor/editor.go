// Package editor launches the user's text editor on codemcp's own files.
package editor

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/thoreinstein/codemcp/internal/errors"
	"github.com/thoreinstein/codemcp/internal/proc"
)

// Open runs the preferred editor on path and waits for it to exit.
// The editor command may carry arguments, as in EDITOR="code --wait".
func Open(ctx context.Context, path string) error {
	return OpenWith(ctx, &proc.ExecExecutor{}, path)
}

// OpenWith is Open with an explicit executor.
func OpenWith(ctx context.Context, e proc.Executor, path string) error {
	argv := append(Command(), path)
	if err := e.Run(ctx, proc.Spec{Argv: argv}); err != nil {
		return errors.Wrap(err, "running editor")
	}
	return nil
}

// Command returns the editor argument vector. The fallback chain is
// $CODEMCP_EDITOR, $EDITOR, $VISUAL, nano, vi.
func Command() []string {
	for _, key := range []string{"CODEMCP_EDITOR", "EDITOR", "VISUAL"} {
		if fields := strings.Fields(os.Getenv(key)); len(fields) > 0 {
			return fields
		}
	}

	if _, err := exec.LookPath("nano"); err == nil {
		return []string{"nano"}
	}
	return []string{"vi"}
}
