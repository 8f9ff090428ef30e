// Package prompt asks the user to pick one of several pending changes.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/thoreinstein/codemcp/internal/changes"
	"github.com/thoreinstein/codemcp/internal/errors"
)

var (
	ErrNothingPending     = errors.New("no pending changes")
	ErrInvalidSelection   = errors.New("invalid selection")
	ErrSelectionCancelled = errors.New("selection cancelled")
)

// Selector reads a numbered choice from a line-oriented reader.
type Selector struct {
	reader io.Reader
	writer io.Writer
}

// NewSelector creates a Selector on stdin and stderr, keeping stdout for
// command output.
func NewSelector() *Selector {
	return &Selector{
		reader: os.Stdin,
		writer: os.Stderr,
	}
}

// NewSelectorWithIO creates a Selector with custom reader and writer.
func NewSelectorWithIO(r io.Reader, w io.Writer) *Selector {
	return &Selector{
		reader: r,
		writer: w,
	}
}

// SelectChange asks which of list to use. A single change is returned
// without prompting and an empty answer picks the first entry. EOF, as
// from Ctrl+D, yields ErrSelectionCancelled.
func (s *Selector) SelectChange(list []*changes.Change) (*changes.Change, error) {
	if len(list) == 0 {
		return nil, ErrNothingPending
	}
	if len(list) == 1 {
		return list[0], nil
	}

	fmt.Fprintln(s.writer, "Pending changes:")
	for i, c := range list {
		fmt.Fprintf(s.writer, "  [%d] %s %s (%s)\n", i+1, c.Kind, filepath.Base(c.Path), shortID(c.ID))
	}
	fmt.Fprint(s.writer, "Select [1]: ")

	input, err := bufio.NewReader(s.reader).ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && strings.TrimSpace(input) == "" {
			return nil, ErrSelectionCancelled
		}
		if !errors.Is(err, io.EOF) {
			return nil, errors.Wrap(err, "reading selection")
		}
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return list[0], nil
	}

	n, err := strconv.Atoi(input)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidSelection, "%q is not a number", input)
	}
	if n < 1 || n > len(list) {
		return nil, errors.Wrapf(ErrInvalidSelection, "%d is out of range [1-%d]", n, len(list))
	}
	return list[n-1], nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
