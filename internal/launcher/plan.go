package launcher

import (
	"path/filepath"
	"runtime"
)

// Invocation is one way of running a step.
type Invocation struct {
	// Argv is the argument vector. Relative executables are resolved
	// against the project root.
	Argv []string

	// RequireFile, when set, must exist (relative to the root) for this
	// invocation to be eligible.
	RequireFile string
}

// Step is a labeled unit of the plan.
type Step struct {
	Label        string
	Alternatives []Invocation
}

// Plan is an ordered sequence of steps.
type Plan []Step

// Settings selects the virtual environment and formatter modules used by
// DefaultPlan.
type Settings struct {
	// Venv is the virtual environment directory relative to the root.
	Venv string

	// Primary is the first formatter. It runs as a standalone executable
	// when the venv provides one, else as an interpreter module.
	Primary string

	// PrimaryArgs follow the primary formatter's name.
	PrimaryArgs []string

	// Secondary is the second formatter, always run as a module.
	Secondary string

	// SecondaryArgs follow "-m <secondary>".
	SecondaryArgs []string
}

// DefaultSettings returns the black + ruff configuration.
func DefaultSettings() Settings {
	return Settings{
		Venv:          ".venv",
		Primary:       "black",
		PrimaryArgs:   []string{"."},
		Secondary:     "ruff",
		SecondaryArgs: []string{"format", "."},
	}
}

// DefaultPlan builds the two-step formatter plan for s.
func DefaultPlan(s Settings) Plan {
	primaryExe := venvBin(s.Venv, s.Primary)
	python := venvBin(s.Venv, "python")

	return Plan{
		{
			Label: s.Primary,
			Alternatives: []Invocation{
				{
					Argv:        append([]string{primaryExe}, s.PrimaryArgs...),
					RequireFile: primaryExe,
				},
				{
					Argv: append([]string{python, "-m", s.Primary}, s.PrimaryArgs...),
				},
			},
		},
		{
			Label: s.Secondary,
			Alternatives: []Invocation{
				{
					Argv: append([]string{python, "-m", s.Secondary}, s.SecondaryArgs...),
				},
			},
		},
	}
}

// venvBin returns the root-relative path of an executable inside a
// virtual environment, accounting for the Windows layout.
func venvBin(venv, name string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(venv, "Scripts", name+".exe")
	}
	return filepath.Join(venv, "bin", name)
}
