package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"sync"

	"golang.org/x/term"
)

type textHandler struct {
	mu          *sync.Mutex
	writer      io.Writer
	attrs       []slog.Attr
	groups      []string
	isColored   bool
	replaceAttr func(groups []string, a slog.Attr) slog.Attr
	level       slog.Level
}

func newTextHandler(
	writer io.Writer,
	isColored bool,
	replaceAttr func(groups []string, a slog.Attr) slog.Attr,
	level slog.Level,
) slog.Handler {
	return &textHandler{
		mu:          &sync.Mutex{},
		writer:      writer,
		isColored:   isColored,
		replaceAttr: replaceAttr,
		level:       level,
	}
}

func (h *textHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle writes one line: LEVEL message, then attrs added with With, then
// the record's attrs. Group attrs are flattened to dotted keys.
func (h *textHandler) Handle(_ context.Context, r slog.Record) error {
	levelStr := getLevelName(r.Level)
	if h.isColored {
		levelStr = colorize(levelStr, r.Level)
	}

	var buf bytes.Buffer
	buf.WriteString(levelStr)
	buf.WriteByte(' ')
	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		h.appendAttr(&buf, nil, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(&buf, h.groups, a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

func (h *textHandler) appendAttr(buf *bytes.Buffer, groups []string, a slog.Attr) {
	if h.replaceAttr != nil && a.Value.Kind() != slog.KindGroup {
		a = h.replaceAttr(groups, a)
	}
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		if len(attrs) == 0 {
			return
		}
		nested := groups
		if a.Key != "" {
			nested = append(slices.Clip(groups), a.Key)
		}
		for _, ga := range attrs {
			h.appendAttr(buf, nested, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}

	buf.WriteByte(' ')
	for _, g := range groups {
		buf.WriteString(g)
		buf.WriteByte('.')
	}
	buf.WriteString(a.Key)
	buf.WriteByte('=')
	buf.WriteString(strconv.Quote(a.Value.String()))
}

// WithAttrs qualifies attrs with the current groups up front.
func (h *textHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.attrs = slices.Clone(h.attrs)
	for _, a := range attrs {
		if len(h.groups) > 0 {
			a = slog.Attr{Key: h.groups[len(h.groups)-1], Value: slog.GroupValue(a)}
			for i := len(h.groups) - 2; i >= 0; i-- {
				a = slog.Attr{Key: h.groups[i], Value: slog.GroupValue(a)}
			}
		}
		cp.attrs = append(cp.attrs, a)
	}
	return &cp
}

func (h *textHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	cp := *h
	cp.groups = append(slices.Clone(h.groups), name)
	return &cp
}

func colorize(levelStr string, level slog.Level) string {
	const (
		reset  = "\033[0m"
		blue   = "\033[34m"
		cyan   = "\033[36m"
		green  = "\033[32m"
		yellow = "\033[33m"
		red    = "\033[31m"
		white  = "\033[37m"
		redBg  = "\033[41m"
	)

	switch level {
	case levelTrace:
		return cyan + levelStr + reset
	case slog.LevelDebug:
		return blue + levelStr + reset
	case slog.LevelInfo:
		return green + levelStr + reset
	case slog.LevelWarn:
		return yellow + levelStr + reset
	case slog.LevelError:
		return red + levelStr + reset
	case levelCritical:
		return redBg + white + levelStr + reset
	default:
		switch {
		case level < slog.LevelInfo:
			return cyan + levelStr + reset
		case level < slog.LevelWarn:
			return green + levelStr + reset
		case level < slog.LevelError:
			return yellow + levelStr + reset
		default:
			return red + levelStr + reset
		}
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
