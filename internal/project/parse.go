package project

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/thoreinstein/codemcp/internal/errors"
)

// fileDoc mirrors the on-disk layout. Commands stay untyped because each
// entry may be an array or a table.
type fileDoc struct {
	ProjectPrompt string `toml:"project_prompt"`
	Project       struct {
		Name string `toml:"name"`
	} `toml:"project"`
	Commands map[string]any `toml:"commands"`
}

// ValidationError collects every problem found in a project file.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid command table: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid command table (%d problems): %s",
		len(e.Problems), strings.Join(e.Problems, "; "))
}

// Unwrap lets callers match ErrInvalidConfig.
func (e *ValidationError) Unwrap() error {
	return errors.ErrInvalidConfig
}

// Parse decodes and validates project file bytes.
func Parse(data []byte) (*Project, error) {
	var doc fileDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "line %d, column %d: %s", row, col, derr.Error())
		}
		return nil, errors.Wrap(errors.Mark(err, errors.ErrInvalidConfig), "decoding TOML")
	}

	p := &Project{
		Name:     doc.Project.Name,
		Prompt:   doc.ProjectPrompt,
		Commands: make(map[string]Command, len(doc.Commands)),
	}

	var problems []string
	for _, name := range slices.Sorted(maps.Keys(doc.Commands)) {
		cmd, err := decodeCommand(name, doc.Commands[name])
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		p.Commands[name] = cmd
	}
	for _, e := range Validate(p) {
		problems = append(problems, e.Error())
	}
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return p, nil
}

func decodeCommand(name string, raw any) (Command, error) {
	cmd := Command{Name: name}
	switch v := raw.(type) {
	case []any:
		args, err := stringSlice(name, v)
		if err != nil {
			return Command{}, err
		}
		cmd.Args = args
	case map[string]any:
		rawArgs, ok := v["command"]
		if !ok {
			return Command{}, errors.Newf("command %q: table form requires a \"command\" array", name)
		}
		list, ok := rawArgs.([]any)
		if !ok {
			return Command{}, errors.Newf("command %q: \"command\" must be an array of strings", name)
		}
		args, err := stringSlice(name, list)
		if err != nil {
			return Command{}, err
		}
		cmd.Args = args

		if doc, ok := v["doc"]; ok {
			s, ok := doc.(string)
			if !ok {
				return Command{}, errors.Newf("command %q: \"doc\" must be a string", name)
			}
			cmd.Doc = strings.TrimSpace(s)
		}

		if env, ok := v["env"]; ok {
			table, ok := env.(map[string]any)
			if !ok {
				return Command{}, errors.Newf("command %q: \"env\" must be a table of strings", name)
			}
			cmd.Env = make(map[string]string, len(table))
			for k, val := range table {
				s, ok := val.(string)
				if !ok {
					return Command{}, errors.Newf("command %q: env %s must be a string", name, k)
				}
				cmd.Env[k] = s
			}
		}
	default:
		return Command{}, errors.Newf("command %q: expected an array or a table, got %T", name, raw)
	}
	return cmd, nil
}

func stringSlice(name string, list []any) ([]string, error) {
	out := make([]string, 0, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, errors.Newf("command %q: argument %d must be a string, got %T", name, i, item)
		}
		out = append(out, s)
	}
	return out, nil
}

// Validate checks a parsed project for problems that parsing alone cannot
// catch. Returns nil when the project is valid.
func Validate(p *Project) []error {
	if p == nil {
		return []error{errors.New("project is nil")}
	}

	var errs []error
	for _, name := range p.Names() {
		cmd := p.Commands[name]
		switch {
		case strings.TrimSpace(name) == "":
			errs = append(errs, errors.Wrap(errors.ErrMissingName, "command with empty name"))
		case strings.ContainsAny(name, " \t\n"):
			errs = append(errs, errors.Newf("command %q: name must not contain whitespace", name))
		}
		if len(cmd.Args) == 0 {
			errs = append(errs, errors.Newf("command %q: argument vector is empty", name))
			continue
		}
		if strings.TrimSpace(cmd.Args[0]) == "" {
			errs = append(errs, errors.Newf("command %q: first argument must name an executable", name))
		}
	}
	return errs
}
