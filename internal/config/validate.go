package config

import (
	"strings"

	"github.com/thoreinstein/codemcp/internal/errors"
)

// Validation errors for configuration fields.
var (
	ErrEmptyValue  = errors.New("value must not be empty")
	ErrInvalidName = errors.New("invalid name")
	ErrInvalidPath = errors.New("invalid path")
)

// FieldError names the key whose value failed validation.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Value == "" {
		return e.Field + ": " + e.Err.Error()
	}
	return e.Field + ": " + e.Err.Error() + ": " + e.Value
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Validate checks cfg and returns every problem found.
func Validate(cfg *Config) []error {
	if cfg == nil {
		return []error{errors.New("config is nil")}
	}

	var errs []error

	if cfg.AcceptEnv == "" {
		errs = append(errs, &FieldError{Field: KeyAcceptEnv, Err: ErrEmptyValue})
	} else if strings.ContainsAny(cfg.AcceptEnv, "= \t") {
		errs = append(errs, &FieldError{Field: KeyAcceptEnv, Value: cfg.AcceptEnv, Err: ErrInvalidName})
	}

	for _, f := range []struct{ key, val string }{
		{KeyFormatVenv, cfg.Format.Venv},
		{KeyFormatPrimary, cfg.Format.Primary},
		{KeyFormatSecondary, cfg.Format.Secondary},
	} {
		if strings.TrimSpace(f.val) == "" {
			errs = append(errs, &FieldError{Field: f.key, Err: ErrEmptyValue})
		}
	}

	for _, name := range cfg.AutoCommitCommands {
		if strings.TrimSpace(name) == "" || strings.ContainsAny(name, " \t") {
			errs = append(errs, &FieldError{Field: KeyAutoCommitCommands, Value: name, Err: ErrInvalidName})
		}
	}

	if strings.ContainsRune(cfg.StateDir, '\x00') {
		errs = append(errs, &FieldError{Field: KeyStateDir, Err: ErrInvalidPath})
	}

	return errs
}
