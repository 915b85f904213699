package dispatcher

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLogFaultHandler_NilLoggerUsesSlogDefault(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	NewLogFaultHandler(nil).HandleFault(Fault{
		Reason:  FaultHandlerPanic,
		Event:   testEvent{},
		PostID:  "post-1",
		Context: Background,
		Err:     errors.New("kaboom"),
		Stack:   []byte("goroutine 1"),
	})

	out := buf.String()
	for _, want := range []string{"event delivery failed", "kind=test.event", "post_id=post-1", "stack="} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in log output: %s", want, out)
		}
	}
}
