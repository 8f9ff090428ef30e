package fileops

import (
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/thoreinstein/codemcp/internal/errors"
)

// UnifiedDiff renders the change from oldContent to newContent with
// a/<base> and b/<base> headers. Line endings are ignored.
func UnifiedDiff(path, oldContent, newContent string) (string, error) {
	base := filepath.Base(path)
	diff := difflib.UnifiedDiff{
		A:        splitLines(oldContent),
		B:        splitLines(newContent),
		FromFile: "a/" + base,
		ToFile:   "b/" + base,
		Context:  3,
		Eol:      "\n",
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", errors.Wrap(err, "generating diff")
	}
	return strings.TrimSuffix(text, "\n"), nil
}

func splitLines(s string) []string {
	s = toLF(s)
	if s == "" {
		return nil
	}
	return difflib.SplitLines(strings.TrimSuffix(s, "\n"))
}
