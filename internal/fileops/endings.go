package fileops

import "strings"

// LineEnding is the newline sequence a file uses.
type LineEnding string

const (
	LF   LineEnding = "\n"
	CRLF LineEnding = "\r\n"
)

// DetectLineEnding returns CRLF when content uses it, LF otherwise.
func DetectLineEnding(content []byte) LineEnding {
	if strings.Contains(string(content), "\r\n") {
		return CRLF
	}
	return LF
}

// Apply converts content to use e.
func (e LineEnding) Apply(content string) string {
	content = toLF(content)
	if e == CRLF {
		return strings.ReplaceAll(content, "\n", "\r\n")
	}
	return content
}

func toLF(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
