package commands

import (
	"io"

	"github.com/fatih/color"

	"github.com/thoreinstein/codemcp/internal/logging"
)

// styles colors table output when w is a color-capable terminal.
type styles struct {
	header  *color.Color
	name    *color.Color
	muted   *color.Color
	enabled bool
}

func newStyles(w io.Writer) styles {
	return styles{
		header:  color.New(color.Bold),
		name:    color.New(color.FgGreen),
		muted:   color.New(color.FgHiBlack),
		enabled: logging.SupportsColor(w),
	}
}

func (s styles) paint(c *color.Color, text string) string {
	if !s.enabled {
		return text
	}
	c.EnableColor()
	return c.Sprint(text)
}

// truncate shortens a string to maxLen characters, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
