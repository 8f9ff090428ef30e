package project

import (
	toml "github.com/pelletier/go-toml/v2"

	"github.com/thoreinstein/codemcp/internal/errors"
)

// Well-known command names.
const (
	CommandFormat    = "format"
	CommandLint      = "lint"
	CommandTest      = "test"
	CommandAccept    = "accept"
	CommandTypecheck = "typecheck"
	CommandGhstack   = "ghstack"
	CommandGit       = "git"
)

// AcceptEnv is the environment toggle that switches the test runner into
// baseline-regeneration mode.
const AcceptEnv = "EXPECTTEST_ACCEPT"

// DefaultPrompt is written into new project files.
const DefaultPrompt = `Before you commit, run the format command and the lint command.
Keep commit messages short: one summary line, then details if needed.
Add a test for every behavior change and run it with the test command.
Do not swallow errors or add silent fallbacks; let failures reach the top
so the root cause stays visible.
`

// Default returns the canonical command table for a new project.
func Default(name string) *Project {
	selectorDoc := "Accepts a pytest-style test selector as an argument to run a specific test."
	return &Project{
		Name:   name,
		Prompt: DefaultPrompt,
		Commands: map[string]Command{
			CommandFormat: {Name: CommandFormat, Args: []string{"codemcp", "format"}},
			CommandLint:   {Name: CommandLint, Args: []string{"./run_lint.sh"}},
			CommandTest: {
				Name: CommandTest,
				Args: []string{"./run_test.sh"},
				Doc:  selectorDoc,
			},
			CommandAccept: {
				Name: CommandAccept,
				Args: []string{"env", AcceptEnv + "=1", "./run_test.sh"},
				Doc:  "Updates expected-output baselines for failing tests, like running with " + AcceptEnv + "=1. " + selectorDoc,
			},
			CommandTypecheck: {Name: CommandTypecheck, Args: []string{"./run_typecheck.sh"}},
			CommandGhstack:   {Name: CommandGhstack, Args: []string{"uv", "tool", "run", "ghstack"}},
			CommandGit: {
				Name: CommandGit,
				Args: []string{"git"},
				Doc:  "Runs git directly; pass the subcommand and its arguments.",
			},
		},
	}
}

type outDoc struct {
	ProjectPrompt string                `toml:"project_prompt,multiline,omitempty"`
	Project       outProject            `toml:"project"`
	Commands      map[string]outCommand `toml:"commands"`
}

type outProject struct {
	Name string `toml:"name,omitempty"`
}

type outCommand struct {
	Command []string          `toml:"command"`
	Doc     string            `toml:"doc,omitempty"`
	Env     map[string]string `toml:"env,inline,omitempty"`
}

// Marshal renders p as a project file. Every command uses the table form
// so doc strings and env overrides have a place to live.
func Marshal(p *Project) ([]byte, error) {
	doc := outDoc{
		ProjectPrompt: p.Prompt,
		Project:       outProject{Name: p.Name},
		Commands:      make(map[string]outCommand, len(p.Commands)),
	}
	for name, cmd := range p.Commands {
		doc.Commands[name] = outCommand{Command: cmd.Args, Doc: cmd.Doc, Env: cmd.Env}
	}

	data, err := toml.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "encoding TOML")
	}
	return data, nil
}
