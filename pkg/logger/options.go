package logger

import (
	"io"
	"log/slog"

	"github.com/shuldan/dispatch/pkg/errors"
)

type Option func(*config)

type config struct {
	level       slog.Level
	json        bool
	addSource   bool
	writer      io.Writer
	replaceAttr func(groups []string, a slog.Attr) slog.Attr
	wantColor   bool
}

func WithLevel(level slog.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

func WithJSON() Option {
	return func(c *config) {
		c.json = true
	}
}

func WithText() Option {
	return func(c *config) {
		c.json = false
	}
}

func WithSource() Option {
	return func(c *config) {
		c.addSource = true
	}
}

// WithWriter sets the destination; nil discards. The default is stderr so
// logs never interleave with command output on stdout.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		if w == nil {
			w = io.Discard
		}
		c.writer = w
	}
}

// WithColor colours level names when the writer is a terminal.
func WithColor() Option {
	return func(c *config) {
		c.wantColor = true
	}
}

// WithReplaceAttr runs f before the built-in level and error rewriting.
func WithReplaceAttr(f func(groups []string, a slog.Attr) slog.Attr) Option {
	return func(c *config) {
		c.replaceAttr = f
	}
}

// replaceAttr names the custom levels and splits coded errors into
// code and message so faults can be filtered by code.
func (c *config) buildReplaceAttr() func(groups []string, a slog.Attr) slog.Attr {
	custom := c.replaceAttr
	return func(groups []string, a slog.Attr) slog.Attr {
		if custom != nil {
			a = custom(groups, a)
			if a.Equal(slog.Attr{}) {
				return a
			}
		}
		switch v := a.Value.Any().(type) {
		case slog.Level:
			if a.Key == slog.LevelKey {
				return slog.String(slog.LevelKey, getLevelName(v))
			}
		case error:
			if code := errors.GetErrorCode(v); code != "" {
				return slog.Group(a.Key,
					slog.String("code", string(code)),
					slog.String("message", v.Error()),
				)
			}
		}
		return a
	}
}
