package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shuldan/dispatch/pkg/errors"
)

func TestLoggerMethods(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := NewLogger(WithWriter(buf), WithText(), WithLevel(levelTrace))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		method func(string, ...any)
		prefix string
	}{
		{logger.Trace, "TRACE"},
		{logger.Debug, "DEBUG"},
		{logger.Info, "INFO"},
		{logger.Warn, "WARN"},
		{logger.Error, "ERROR"},
		{logger.Critical, "CRITICAL"},
	}

	for _, tt := range tests {
		buf.Reset()
		t.Run(tt.prefix, func(t *testing.T) {
			tt.method("test", "key", "val")
			output := buf.String()
			if !strings.HasPrefix(output, tt.prefix+" test") || !strings.Contains(output, `key="val"`) {
				t.Errorf("Expected %q in output, got: %q", tt.prefix, output)
			}
		})
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, _ := NewLogger(WithWriter(buf), WithLevel(slog.LevelWarn))

	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("info should be filtered: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn should be logged: %q", buf.String())
	}
}

func TestLogger_With(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, _ := NewLogger(WithWriter(buf))

	logger.With("component", "dispatcher").Info("posted", "kind", "button.first")

	out := buf.String()
	if !strings.Contains(out, `component="dispatcher"`) || !strings.Contains(out, `kind="button.first"`) {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestLogger_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, _ := NewLogger(WithWriter(buf), WithJSON(), WithLevel(levelTrace))

	logger.Critical("boom", "post_id", "abc")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	if record["level"] != "CRITICAL" {
		t.Errorf("expected CRITICAL level, got %v", record["level"])
	}
	if record["post_id"] != "abc" {
		t.Errorf("expected post_id attr, got %v", record["post_id"])
	}
}

func TestNewNop(t *testing.T) {
	NewNop().Critical("nothing to see")
}

func TestConvertArgs_OddArgs(t *testing.T) {
	attrs := convertArgs([]any{"key1", "val1", "key2"})

	if len(attrs) != 2 {
		t.Fatalf("Expected 2 attrs, got %d", len(attrs))
	}
	if attrs[1].Key != "MISSING_KEY" {
		t.Errorf("Expected MISSING_KEY, got %q", attrs[1].Key)
	}
}

func TestConvertArgs_NonStringKey(t *testing.T) {
	attrs := convertArgs([]any{42, "v"})
	if attrs[0].Key != "NON_STRING_KEY_int" {
		t.Errorf("unexpected key %q", attrs[0].Key)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"trace":    levelTrace,
		"DEBUG":    slog.LevelDebug,
		" warn ":   slog.LevelWarn,
		"error":    slog.LevelError,
		"critical": levelCritical,
		"bogus":    slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTextHandler_WithAttrsKeepsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := newTextHandler(buf, false, nil, slog.LevelWarn).
		WithAttrs([]slog.Attr{slog.String("service", "dispatch")})

	if handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("derived handler lost its level")
	}

	r := slog.NewRecord(time.Now(), slog.LevelError, "fault", 0)
	_ = handler.Handle(context.Background(), r)

	if !strings.Contains(buf.String(), `service="dispatch"`) {
		t.Errorf("Expected service attr, got: %q", buf.String())
	}
}

func TestColorize(t *testing.T) {
	tests := []struct {
		level    slog.Level
		expected string
	}{
		{levelTrace, "\033[36mTRACE\033[0m"},
		{slog.LevelInfo, "\033[32mINFO\033[0m"},
		{slog.LevelError, "\033[31mERROR\033[0m"},
		{levelCritical, "\033[41m\033[37mCRITICAL\033[0m"},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			if got := colorize(getLevelName(tt.level), tt.level); got != tt.expected {
				t.Errorf("colorize(%v) = %q, want %q", tt.level, got, tt.expected)
			}
		})
	}
}

func TestIsTerminal_NonFile(t *testing.T) {
	if isTerminal(&bytes.Buffer{}) {
		t.Error("buffer is not a terminal")
	}
}

func TestLogger_CodedErrorsSplitIntoCodeAndMessage(t *testing.T) {
	errClosed := errors.WithPrefix("LOGTEST")().New("dispatcher is closed")

	t.Run("text", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger, _ := NewLogger(WithWriter(buf))
		logger.Error("post failed", "error", errClosed)

		out := buf.String()
		if !strings.Contains(out, `error.code="LOGTEST_0001"`) || !strings.Contains(out, `error.message="dispatcher is closed"`) {
			t.Errorf("unexpected output: %q", out)
		}
	})

	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger, _ := NewLogger(WithWriter(buf), WithJSON())
		logger.Error("post failed", "error", errClosed)

		var record struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
			t.Fatalf("invalid json %q: %v", buf.String(), err)
		}
		if record.Error.Code != "LOGTEST_0001" {
			t.Errorf("unexpected error attr: %+v", record.Error)
		}
	})
}

func TestTextHandler_GroupsAreDotted(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(newTextHandler(buf, false, nil, slog.LevelInfo)).
		WithGroup("relay").
		With("node", "a")
	logger.Info("received", "kind", "button.first")

	out := buf.String()
	if !strings.Contains(out, `relay.node="a"`) || !strings.Contains(out, `relay.kind="button.first"`) {
		t.Errorf("unexpected output: %q", out)
	}
}
