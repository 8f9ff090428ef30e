package doctor

import (
	"context"
	"time"
)

// Check is the interface that diagnostic checks must implement.
type Check interface {
	// Name returns the unique identifier for this check.
	Name() string

	// Category returns the grouping for this check (e.g., "project", "git").
	Category() string

	// Run executes the diagnostic check and returns its result.
	Run(ctx context.Context) *CheckResult
}

// Runner executes diagnostic checks and aggregates their results.
type Runner struct {
	checks []Check
	now    func() time.Time
}

// NewRunner creates a new diagnostic runner.
func NewRunner() *Runner {
	return &Runner{
		checks: make([]Check, 0),
		now:    time.Now,
	}
}

// AddCheck registers a diagnostic check with the runner.
func (r *Runner) AddCheck(c Check) {
	r.checks = append(r.checks, c)
}

// Checks returns the registered checks in order.
func (r *Runner) Checks() []Check {
	return r.checks
}

// Run executes all registered checks in order and returns a report.
func (r *Runner) Run(ctx context.Context) *DoctorReport {
	report := &DoctorReport{
		Timestamp: r.now().UTC(),
		Results:   make([]*CheckResult, 0, len(r.checks)),
	}

	for _, check := range r.checks {
		result := check.Run(ctx)
		if result.Name == "" {
			result.Name = check.Name()
		}
		if result.Category == "" {
			result.Category = check.Category()
		}
		report.Results = append(report.Results, result)

		switch result.Status {
		case SeverityPass:
			report.Summary.Passed++
		case SeverityInfo:
			report.Summary.Info++
		case SeverityWarning:
			report.Summary.Warnings++
		case SeverityError:
			report.Summary.Errors++
		}
	}

	return report
}

// Fix runs Fix on every registered check that implements Fixer and has
// something to fix. Run must have been called first.
func (r *Runner) Fix(ctx context.Context) []FixResult {
	var results []FixResult
	for _, check := range r.checks {
		if f, ok := check.(Fixer); ok && f.CanFix() {
			results = append(results, f.Fix(ctx)...)
		}
	}
	return results
}

// DoctorReport aggregates all check results with timing and summary.
type DoctorReport struct {
	Timestamp time.Time      `json:"timestamp"`
	Results   []*CheckResult `json:"results"`
	Summary   Summary        `json:"summary"`
}

// HasErrors returns true if any check has SeverityError.
func (r *DoctorReport) HasErrors() bool {
	return r.Summary.Errors > 0
}

// HasWarnings returns true if any check has SeverityWarning.
func (r *DoctorReport) HasWarnings() bool {
	return r.Summary.Warnings > 0
}

// ExitCode maps the report onto the doctor exit status: 0 when clean,
// 1 with warnings, 2 with errors.
func (r *DoctorReport) ExitCode() int {
	switch {
	case r.HasErrors():
		return 2
	case r.HasWarnings():
		return 1
	default:
		return 0
	}
}
