package project

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/thoreinstein/codemcp/internal/errors"
	"github.com/thoreinstein/codemcp/internal/paths"
)

// ErrProjectNotFound indicates no codemcp.toml exists at or above the
// starting directory.
var ErrProjectNotFound = errors.Mark(
	errors.Newf("%s not found", paths.ProjectFileName), errors.ErrNotFound)

// Find walks up from start until it finds a directory containing
// codemcp.toml and returns the file's path.
func Find(fs afero.Fs, start string) (string, error) {
	dir, err := paths.Abs(start)
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, paths.ProjectFileName)
		info, err := fs.Stat(candidate)
		switch {
		case err == nil && !info.IsDir():
			return candidate, nil
		case err != nil && !os.IsNotExist(err):
			return "", errors.Wrapf(err, "checking %s", candidate)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.Wrapf(ErrProjectNotFound, "searched upward from %s", start)
		}
		dir = parent
	}
}

// Load reads and validates the project file at path.
func Load(fs afero.Fs, path string) (*Project, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrProjectNotFound, "%s", path)
		}
		return nil, errors.Wrapf(err, "reading %s", path)
	}

	p, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}

	abs, err := paths.Abs(path)
	if err != nil {
		return nil, err
	}
	p.Path = abs
	p.Root = filepath.Dir(abs)
	return p, nil
}

// Discover finds and loads the project governing start.
func Discover(fs afero.Fs, start string) (*Project, error) {
	path, err := Find(fs, start)
	if err != nil {
		return nil, err
	}
	return Load(fs, path)
}
