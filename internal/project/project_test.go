package project

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/codemcp/internal/errors"
)

const sampleTable = `project_prompt = """
Run the formatter before committing.
"""

[project]
name = "sample"

[commands]
format = ["./run_format.sh"]
lint = ["./run_lint.sh"]
ghstack = ["uv", "tool", "run", "ghstack"]
typecheck = ["./run_typecheck.sh"]

[commands.test]
command = ["./run_test.sh"]
doc = "Accepts a pytest-style test selector as an argument to run a specific test."

[commands.accept]
command = ["env", "EXPECTTEST_ACCEPT=1", "./run_test.sh"]
doc = "Regenerates expected outputs."

[commands.git]
command = ["git"]
env = { GIT_PAGER = "cat" }
`

func TestParse_BothShapes(t *testing.T) {
	p, err := Parse([]byte(sampleTable))
	require.NoError(t, err)

	assert.Equal(t, "sample", p.Name)
	assert.Contains(t, p.Prompt, "Run the formatter")
	assert.Equal(t,
		[]string{"accept", "format", "ghstack", "git", "lint", "test", "typecheck"},
		p.Names())

	lint, err := p.Lookup("lint")
	require.NoError(t, err)
	assert.Equal(t, []string{"./run_lint.sh"}, lint.Args)
	assert.Empty(t, lint.Doc)

	test, err := p.Lookup("test")
	require.NoError(t, err)
	assert.Equal(t, []string{"./run_test.sh"}, test.Args)
	assert.True(t, strings.HasPrefix(test.Doc, "Accepts a pytest-style"))

	git, err := p.Lookup("git")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"GIT_PAGER": "cat"}, git.Env)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{
			name:    "empty argv",
			input:   "[commands]\nlint = []\n",
			wantMsg: `"lint": argument vector is empty`,
		},
		{
			name:    "blank executable",
			input:   "[commands]\nlint = [\"\", \"x\"]\n",
			wantMsg: "first argument must name an executable",
		},
		{
			name:    "non-string argument",
			input:   "[commands]\nlint = [\"ruff\", 3]\n",
			wantMsg: "argument 1 must be a string",
		},
		{
			name:    "scalar command",
			input:   "[commands]\nlint = \"ruff check\"\n",
			wantMsg: "expected an array or a table",
		},
		{
			name:    "table without command",
			input:   "[commands.test]\ndoc = \"no argv\"\n",
			wantMsg: `requires a "command" array`,
		},
		{
			name:    "non-string doc",
			input:   "[commands.test]\ncommand = [\"pytest\"]\ndoc = 1\n",
			wantMsg: `"doc" must be a string`,
		},
		{
			name:    "duplicate key",
			input:   "[commands]\nlint = [\"a\"]\nlint = [\"b\"]\n",
			wantMsg: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidConfig), "want ErrInvalidConfig, got %v", err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestParse_CollectsAllProblems(t *testing.T) {
	_, err := Parse([]byte("[commands]\na = []\nb = 1\n"))
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve.Problems, 2)
	assert.Contains(t, ve.Problems[0], `command "b": expected an array or a table`)
	assert.Contains(t, ve.Problems[1], `command "a": argument vector is empty`)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}

func TestParse_DecodeAndValidationProblemsTogether(t *testing.T) {
	data := []byte(`[commands]
lint = [""]
test = { command = ["./run_test.sh"], doc = 3 }
format = ["codemcp", "format"]
`)
	_, err := Parse(data)
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{
		`command "test": "doc" must be a string`,
		`command "lint": first argument must name an executable`,
	}, ve.Problems)
}

func TestParse_EmptyFile(t *testing.T) {
	p, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, p.Names())

	_, err = p.Lookup("format")
	assert.True(t, errors.Is(err, errors.ErrUnknownCommand))
}

func TestCommand_Argv(t *testing.T) {
	cmd := Command{Name: "test", Args: []string{"./run_test.sh"}}

	got := cmd.Argv("test/test_foo.py::test_bar")
	assert.Equal(t, []string{"./run_test.sh", "test/test_foo.py::test_bar"}, got)

	// The table entry itself is left alone.
	got[0] = "mutated"
	assert.Equal(t, []string{"./run_test.sh"}, cmd.Args)
}

func TestCommand_IsRelativePath(t *testing.T) {
	tests := []struct {
		exe  string
		want bool
	}{
		{"./run_test.sh", true},
		{"scripts/lint", true},
		{"git", false},
		{"/usr/bin/env", false},
	}
	for _, tt := range tests {
		t.Run(tt.exe, func(t *testing.T) {
			cmd := Command{Args: []string{tt.exe}}
			assert.Equal(t, tt.want, cmd.IsRelativePath())
		})
	}
	assert.False(t, Command{}.IsRelativePath())
}

func TestProject_Resolve(t *testing.T) {
	p := &Project{Root: "/work/proj"}

	rel := p.Resolve(Command{Args: []string{"./run_test.sh"}}, "-k", "foo")
	assert.Equal(t, []string{filepath.Join("/work/proj", "run_test.sh"), "-k", "foo"}, rel)

	bare := p.Resolve(Command{Args: []string{"git", "status"}})
	assert.Equal(t, []string{"git", "status"}, bare)
}

func TestFind(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/work/proj/src/pkg", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/work/proj/codemcp.toml", []byte(sampleTable), 0o644))

	tests := []struct {
		name  string
		start string
	}{
		{"at root", "/work/proj"},
		{"nested", "/work/proj/src/pkg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Find(fs, tt.start)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join("/work/proj", "codemcp.toml"), got)
		})
	}
}

func TestFind_NotFound(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/elsewhere", 0o755))

	_, err := Find(fs, "/elsewhere")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProjectNotFound))
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestFind_SkipsDirectoryNamedLikeProjectFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/a/b/codemcp.toml", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/a/codemcp.toml", []byte(""), 0o644))

	got, err := Find(fs, "/a/b")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/a", "codemcp.toml"), got)
}

func TestDiscover(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/work/proj/sub", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/work/proj/codemcp.toml", []byte(sampleTable), 0o644))

	p, err := Discover(fs, "/work/proj/sub")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/work/proj", "codemcp.toml"), p.Path)
	assert.Equal(t, "/work/proj", filepath.ToSlash(p.Root))
	assert.True(t, p.Has("accept"))
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(afero.NewMemMapFs(), "/nope/codemcp.toml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProjectNotFound))
}

func TestDefault_RoundTrip(t *testing.T) {
	want := Default("demo")

	data, err := Marshal(want)
	require.NoError(t, err)

	got, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "demo", got.Name)
	assert.Equal(t, want.Names(), got.Names())
	assert.Equal(t,
		[]string{"accept", "format", "ghstack", "git", "lint", "test", "typecheck"},
		got.Names())
	for _, name := range want.Names() {
		assert.Equal(t, want.Commands[name].Args, got.Commands[name].Args, name)
		assert.Equal(t, want.Commands[name].Doc, got.Commands[name].Doc, name)
	}
	assert.Equal(t, strings.TrimSpace(DefaultPrompt), strings.TrimSpace(got.Prompt))
}

func TestValidate_Nil(t *testing.T) {
	assert.Len(t, Validate(nil), 1)
}
