// Package fileutil provides file system utilities including atomic write operations.
package fileutil

import (
	"encoding/json"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/codemcp/internal/errors"
)

// AtomicWriteFile writes data to a file atomically using a temp file + rename pattern.
// Interrupted writes leave the original file intact.
//
// The caller is responsible for ensuring the parent directory exists.
// Permissions are applied to the final file via the perm parameter.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	// Same directory so the rename never crosses filesystems.
	tmp, err := os.CreateTemp(dir, ".codemcp-atomic-*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}

	tmpName := tmp.Name()
	defer func() {
		// Only present if the rename did not happen.
		if _, statErr := os.Stat(tmpName); statErr == nil {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing temp file")
	}

	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return errors.Wrap(err, "setting file permissions")
	}

	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp file")
	}

	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrap(err, "renaming temp file")
	}

	return nil
}

// AtomicWriteFileAll is AtomicWriteFile that first creates any missing
// parent directories with mode 0755.
func AtomicWriteFileAll(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating parent directory")
	}
	return AtomicWriteFile(path, data, perm)
}

// AtomicWriteJSON writes v as indented JSON to path atomically with the given permissions.
// Uses 2-space indentation and appends a trailing newline.
//
// The caller is responsible for ensuring the parent directory exists.
func AtomicWriteJSON(path string, v any, perm os.FileMode) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling JSON")
	}
	data = append(data, '\n')

	return AtomicWriteFile(path, data, perm)
}

// AtomicWriteYAML writes v as YAML to path atomically with the given permissions.
//
// The caller is responsible for ensuring the parent directory exists.
func AtomicWriteYAML(path string, v any, perm os.FileMode) (err error) {
	// yaml.Marshal panics on unmarshalable types.
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("marshaling YAML: %v", r)
		}
	}()

	data, err := yaml.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshaling YAML")
	}

	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}

	return AtomicWriteFile(path, data, perm)
}
