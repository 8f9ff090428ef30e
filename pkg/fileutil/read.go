package fileutil

import (
	"io"
	"os"

	"github.com/thoreinstein/codemcp/internal/errors"
)

// MaxFileSize is the largest file codemcp will read into memory (8MB).
const MaxFileSize = 8 * 1024 * 1024

// ErrFileTooLarge indicates that a file exceeded MaxFileSize.
var ErrFileTooLarge = errors.Newf("file exceeds maximum size of %d bytes", MaxFileSize)

// ReadFileWithLimit reads a file up to MaxFileSize.
// It returns ErrFileTooLarge if the file is larger than the limit.
func ReadFileWithLimit(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening file")
	}
	defer f.Close()

	// Fail fast when the size is already known to be too large.
	if info, err := f.Stat(); err == nil && info.Size() > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, errors.Wrap(err, "reading file")
	}

	if len(data) > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	return data, nil
}

// Exists reports whether path names an existing file or directory.
// Errors other than "not exist" are returned so callers never mistake a
// permission problem for absence.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrapf(err, "checking %s", path)
}
