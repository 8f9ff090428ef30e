// Package errors provides error handling conventions for the codemcp CLI.
//
// This package defines sentinel errors for common failure conditions,
// an ExitError type for CLI exit code handling, and exit code constants
// following standard Unix conventions. Construction and wrapping helpers
// are re-exported from github.com/cockroachdb/errors.
//
// # Sentinel Errors
//
// Sentinel errors allow callers to check for specific error conditions
// using [Is]:
//
//	if errors.Is(err, errors.ErrUnknownCommand) {
//	    // handle missing table entry
//	}
//
// # Exit Codes
//
// The package defines standard exit codes for CLI applications:
//
//   - ExitSuccess (0): Command completed successfully
//   - ExitUser (1): User-related error (invalid input, configuration, etc.)
//   - ExitSystem (2): System-related error (I/O, permissions, missing tools, etc.)
//
// An external tool that exits non-zero is reported as an [ExitError]
// carrying the tool's own exit status, so the CLI exits with exactly the
// code of the step that failed.
//
// # ExitError
//
// [ExitError] wraps an underlying error with an exit code and optional suggestion
// for CLI applications:
//
//	err := errors.NewUserError(errors.ErrInvalidConfig, "Check codemcp.toml")
//	os.Exit(errors.Code(err))
package errors
