package project

import (
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/thoreinstein/codemcp/internal/errors"
)

// Command is one entry of the command table.
type Command struct {
	// Name is the table key. Unique within a project.
	Name string `json:"name" yaml:"name"`

	// Args is the argument vector. Args[0] names an executable, a path
	// relative to the project root, or an interpreter.
	Args []string `json:"command" yaml:"command"`

	// Doc optionally describes the arguments the command accepts.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Env holds extra environment variables for the command.
	Env map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

// Argv returns the argument vector with extra appended. The receiver is
// never modified.
func (c Command) Argv(extra ...string) []string {
	argv := make([]string, 0, len(c.Args)+len(extra))
	argv = append(argv, c.Args...)
	return append(argv, extra...)
}

// IsRelativePath reports whether the executable is a path relative to the
// project root, such as "./run_test.sh" or "scripts/lint".
func (c Command) IsRelativePath() bool {
	if len(c.Args) == 0 {
		return false
	}
	exe := c.Args[0]
	if filepath.IsAbs(exe) {
		return false
	}
	return strings.ContainsRune(exe, '/') || strings.ContainsRune(exe, filepath.Separator)
}

// Project is a parsed codemcp.toml.
type Project struct {
	// Name is the optional [project] name.
	Name string

	// Prompt is the optional free-text project prompt.
	Prompt string

	// Commands maps command names to their definitions.
	Commands map[string]Command

	// Path is the file the project was loaded from, empty when parsed from bytes.
	Path string

	// Root is the directory containing Path.
	Root string
}

// Names returns the command names in sorted order.
func (p *Project) Names() []string {
	return slices.Sorted(maps.Keys(p.Commands))
}

// Lookup returns the command named name or ErrUnknownCommand.
func (p *Project) Lookup(name string) (Command, error) {
	cmd, ok := p.Commands[name]
	if !ok {
		return Command{}, errors.Wrapf(errors.ErrUnknownCommand, "%q is not defined in %s", name, p.displayPath())
	}
	return cmd, nil
}

// Has reports whether a command named name is defined.
func (p *Project) Has(name string) bool {
	_, ok := p.Commands[name]
	return ok
}

// Resolve returns the argument vector for cmd with extra appended and
// relative executables anchored at the project root.
func (p *Project) Resolve(cmd Command, extra ...string) []string {
	argv := cmd.Argv(extra...)
	if cmd.IsRelativePath() && p.Root != "" {
		argv[0] = filepath.Join(p.Root, argv[0])
	}
	return argv
}

func (p *Project) displayPath() string {
	if p.Path == "" {
		return "codemcp.toml"
	}
	return p.Path
}
