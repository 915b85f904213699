package dispatcher

import (
	"log/slog"
	"time"

	"github.com/shuldan/dispatch/pkg/contracts"
)

type FaultReason int

const (
	// FaultUnresolvedContext: the declared context was missing or shut down.
	FaultUnresolvedContext FaultReason = iota + 1
	// FaultHandlerError: the handler returned an error.
	FaultHandlerError
	// FaultHandlerPanic: the handler panicked.
	FaultHandlerPanic
)

func (r FaultReason) String() string {
	switch r {
	case FaultUnresolvedContext:
		return "unresolved_context"
	case FaultHandlerError:
		return "handler_error"
	case FaultHandlerPanic:
		return "handler_panic"
	default:
		return "unknown"
	}
}

// Fault describes one failed delivery. Faults never reach the poster.
type Fault struct {
	Reason       FaultReason
	Event        Event
	Subscription *Subscription
	PostID       string
	Context      ContextName
	Err          error
	Stack        []byte
	At           time.Time
}

type FaultHandler interface {
	HandleFault(f Fault)
}

type FaultHandlerFunc func(f Fault)

func (fn FaultHandlerFunc) HandleFault(f Fault) { fn(f) }

type logFaultHandler struct {
	logger contracts.Logger
}

// NewLogFaultHandler logs errors and unresolved contexts at Error and panics
// at Critical. A nil logger falls back to slog's default logger.
func NewLogFaultHandler(logger contracts.Logger) FaultHandler {
	return &logFaultHandler{logger: logger}
}

func (h *logFaultHandler) HandleFault(f Fault) {
	args := []any{
		"reason", f.Reason.String(),
		"kind", string(f.Event.Kind()),
		"post_id", f.PostID,
		"context", string(f.Context),
		"error", f.Err,
	}
	if f.Subscription != nil {
		args = append(args, "subscription", f.Subscription.ID(), "subscriber", f.Subscription.Name())
	}

	if h.logger == nil {
		if f.Stack != nil {
			args = append(args, "stack", string(f.Stack))
		}
		slog.Error("event delivery failed", args...)
		return
	}

	if f.Reason == FaultHandlerPanic {
		h.logger.Critical("event handler panicked", append(args, "stack", string(f.Stack))...)
		return
	}
	h.logger.Error("event delivery failed", args...)
}
