package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
)

// AppName is the directory name used under the XDG base directories.
const AppName = "codemcp"

// ProjectFileName is the name of the per-project command table.
const ProjectFileName = "codemcp.toml"

// Sentinel errors for path resolution.
var (
	// ErrHomeDirNotFound indicates the user's home directory could not be determined.
	ErrHomeDirNotFound = errors.New("home directory not found")

	// ErrInvalidPath indicates the provided path is malformed or invalid.
	ErrInvalidPath = errors.New("invalid path")
)

// DefaultDirPerm is the default permission for newly created directories (private).
const DefaultDirPerm = 0o700

// EnsureDir creates the directory and any necessary parents with specified permissions.
// If perm is 0, DefaultDirPerm (0700) is used.
// This function is idempotent; it returns nil if the directory already exists.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = DefaultDirPerm
	}
	return os.MkdirAll(path, perm)
}

// ResolveHome returns the user's home directory.
// Returns ErrHomeDirNotFound if the directory cannot be determined.
func ResolveHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(ErrHomeDirNotFound, err.Error())
	}
	return home, nil
}

// ConfigHome returns the XDG config home directory.
// On Linux: ~/.config
// On macOS: ~/Library/Application Support
// On Windows: %LOCALAPPDATA%
func ConfigHome() string {
	return xdg.ConfigHome
}

// StateHome returns the XDG state home directory.
// On Linux: ~/.local/state
// On macOS: ~/Library/Application Support
// On Windows: %LOCALAPPDATA%
func StateHome() string {
	return xdg.StateHome
}

// ConfigDir returns the directory holding the tool's own config.yaml.
// Returns: <ConfigHome>/codemcp/
func ConfigDir() string {
	return filepath.Join(ConfigHome(), AppName)
}

// ConfigFile returns the default path of the tool's config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// StateDir returns the directory for runtime state such as pending changes.
// Returns: <StateHome>/codemcp/
func StateDir() string {
	return filepath.Join(StateHome(), AppName)
}

// PendingDir returns the directory holding pending changes below stateDir.
// An empty stateDir resolves to StateDir().
func PendingDir(stateDir string) string {
	if stateDir == "" {
		stateDir = StateDir()
	}
	return filepath.Join(stateDir, "pending")
}

// Abs resolves path to an absolute, cleaned path. Empty paths and paths
// containing NUL bytes are rejected with ErrInvalidPath.
func Abs(path string) (string, error) {
	if path == "" {
		return "", errors.Wrap(ErrInvalidPath, "empty path")
	}
	for i := 0; i < len(path); i++ {
		if path[i] == 0 {
			return "", errors.Wrapf(ErrInvalidPath, "%q contains a NUL byte", path)
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrapf(err, "resolving %s", path)
	}
	return abs, nil
}
