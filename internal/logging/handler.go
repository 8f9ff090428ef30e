package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Handler implements slog.Handler for TTY-optimized text output.
// Colors are enabled only when the writer supports them.
type Handler struct {
	opts   slog.HandlerOptions
	out    io.Writer
	mu     *sync.Mutex
	attrs  []slog.Attr
	prefix string // dotted group path applied to record attributes

	useColor   bool
	timeColor  *color.Color
	traceColor *color.Color
	debugColor *color.Color
	infoColor  *color.Color
	warnColor  *color.Color
	errorColor *color.Color
	keyColor   *color.Color
}

// NewHandler creates a new TTY-optimized text handler. Attributes pass
// through opts.ReplaceAttr, which defaults to Redact.
func NewHandler(out io.Writer, opts *slog.HandlerOptions) *Handler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}

	h := &Handler{
		opts: *opts,
		out:  out,
		mu:   &sync.Mutex{},
	}
	if h.opts.ReplaceAttr == nil {
		h.opts.ReplaceAttr = Redact
	}

	if SupportsColor(out) {
		h.useColor = true
		h.timeColor = color.New(color.FgHiBlack)
		h.traceColor = color.New(color.FgHiBlack)
		h.debugColor = color.New(color.FgMagenta)
		h.infoColor = color.New(color.FgGreen)
		h.warnColor = color.New(color.FgYellow)
		h.errorColor = color.New(color.FgRed, color.Bold)
		h.keyColor = color.New(color.FgCyan)
	}

	return h
}

// Enabled reports whether the handler handles records at the given level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle writes a single line: time, level, message, then key=value pairs.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	if !r.Time.IsZero() {
		b.WriteString(h.paint(h.timeColor, r.Time.Format(time.Kitchen)))
		b.WriteByte(' ')
	}

	fmt.Fprintf(&b, "%-5s ", h.paint(h.levelColor(r.Level), levelName(r.Level)))
	b.WriteString(r.Message)

	for _, a := range h.attrs {
		h.appendAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(&b, h.prefix, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *Handler) appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		key := a.Key
		if prefix != "" {
			key = prefix + "." + key
		}
		for _, ga := range a.Value.Group() {
			h.appendAttr(b, key, ga)
		}
		return
	}

	if h.opts.ReplaceAttr != nil {
		var groups []string
		if prefix != "" {
			groups = strings.Split(prefix, ".")
		}
		a = h.opts.ReplaceAttr(groups, a)
		a.Value = a.Value.Resolve()
		if a.Key == "" {
			return
		}
	}

	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	value := a.Value.String()
	if value == "" || strings.ContainsAny(value, " \t\n\"=") {
		value = strconv.Quote(value)
	}

	fmt.Fprintf(b, " %s=%s", h.paint(h.keyColor, key), value)
}

func (h *Handler) levelColor(level slog.Level) *color.Color {
	switch {
	case level >= slog.LevelError:
		return h.errorColor
	case level >= slog.LevelWarn:
		return h.warnColor
	case level >= slog.LevelInfo:
		return h.infoColor
	case level >= slog.LevelDebug:
		return h.debugColor
	default:
		return h.traceColor
	}
}

func (h *Handler) paint(c *color.Color, s string) string {
	if !h.useColor || c == nil {
		return s
	}
	return c.Sprint(s)
}

func levelName(level slog.Level) string {
	if level < slog.LevelDebug {
		return "TRACE"
	}
	return level.String()
}

// WithAttrs returns a new Handler with the given attributes.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newH := *h
	newH.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	newH.attrs = append(newH.attrs, h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + "." + a.Key
		}
		newH.attrs = append(newH.attrs, a)
	}
	return &newH
}

// WithGroup returns a new Handler whose subsequent attributes are
// prefixed with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	newH := *h
	if h.prefix == "" {
		newH.prefix = name
	} else {
		newH.prefix = h.prefix + "." + name
	}
	return &newH
}
