package doctor

import "context"

// Fixer is an optional interface for checks that can repair what they find.
// CanFix and Fix must be called after Run.
type Fixer interface {
	CanFix() bool
	Fix(ctx context.Context) []FixResult
}

// FixResult describes the outcome of one attempted repair.
type FixResult struct {
	// Path is the file or directory that was targeted.
	Path string `json:"path"`

	Fixed       bool   `json:"fixed"`
	Description string `json:"description"`
	Error       error  `json:"-"`
}
