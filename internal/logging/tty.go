package logging

import (
	"io"
	"os"

	"golang.org/x/term"
)

// IsTTY reports whether w is a terminal. Any writer with an Fd method,
// such as *os.File, is checked.
func IsTTY(w io.Writer) bool {
	if f, ok := w.(interface{ Fd() uintptr }); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// SupportsColor reports whether ANSI colors should be written to w.
// NO_COLOR and TERM=dumb disable color; FORCE_COLOR enables it even
// when w is not a terminal, which is useful under CI log viewers.
func SupportsColor(w io.Writer) bool {
	return supportsColor(IsTTY(w))
}

func supportsColor(isTTY bool) bool {
	// https://no-color.org
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	if v := os.Getenv("FORCE_COLOR"); v != "" && v != "0" {
		return true
	}
	return isTTY
}
