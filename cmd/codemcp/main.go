// Package main is the entry point for the codemcp CLI.
package main

import (
	"fmt"
	"os"

	"github.com/thoreinstein/codemcp/cmd/codemcp/commands"
	"github.com/thoreinstein/codemcp/internal/errors"
)

func main() {
	err := commands.Execute()
	if err == nil {
		return
	}

	// A bare exit code has already been reported by the command.
	var exitErr *errors.ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil && exitErr.Suggestion == "" {
		os.Exit(exitErr.Code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if s := errors.Suggestion(err); s != "" {
		fmt.Fprintf(os.Stderr, "hint: %s\n", s)
	}
	os.Exit(errors.Code(err))
}
