// Package doctor diagnoses a codemcp project and its environment.
package doctor

// Severity indicates the importance level of a check result.
type Severity int

const (
	// SeverityPass indicates the check passed without issues.
	SeverityPass Severity = iota

	// SeverityInfo indicates informational output, not a problem.
	SeverityInfo

	// SeverityWarning indicates a potential issue that doesn't prevent operation.
	SeverityWarning

	// SeverityError indicates a problem that prevents proper operation.
	SeverityError
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityPass:
		return "pass"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText renders the severity by name in JSON reports.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CheckResult represents the outcome of a single diagnostic check.
type CheckResult struct {
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Status   Severity `json:"status"`
	Message  string   `json:"message"`

	// Details holds check-specific context, such as per-command status.
	Details map[string]any `json:"details,omitempty"`

	// Fixable indicates whether `codemcp doctor --fix` can repair the issue.
	Fixable bool   `json:"fixable,omitempty"`
	FixHint string `json:"fix_hint,omitempty"`
}

// Summary aggregates counts of check results by severity.
type Summary struct {
	Passed   int `json:"passed"`
	Info     int `json:"info"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}
