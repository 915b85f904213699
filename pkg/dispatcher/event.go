package dispatcher

import "context"

// Kind identifies an event family. Routing is by exact Kind.
type Kind string

// Event is an immutable payload. Kind must be callable on the zero value of
// the implementing type so typed subscriptions can resolve it up front.
type Event interface {
	Kind() Kind
}

type Handler func(ctx context.Context, e Event) error

// ContextName names an execution context a subscription's handler runs on.
type ContextName string

const (
	// Posting runs the handler inline on the goroutine that called Post.
	Posting ContextName = "posting"
	// Main is the single designated serial context.
	Main ContextName = "main"
	// Background is a serial context separate from Main.
	Background ContextName = "background"
	// Async runs handlers on a worker pool; order across handlers is not kept.
	Async ContextName = "async"
)

const (
	KindFault        Kind = "dispatcher.fault"
	KindNoSubscriber Kind = "dispatcher.no_subscriber"
)

// FaultEvent is posted for every fault when the dispatcher runs with
// WithFaultEvents.
type FaultEvent struct {
	Fault Fault
}

func (FaultEvent) Kind() Kind { return KindFault }

// NoSubscriberEvent is posted when a post matched no subscription and the
// dispatcher runs with WithFaultEvents.
type NoSubscriberEvent struct {
	Event  Event
	PostID string
}

func (NoSubscriberEvent) Kind() Kind { return KindNoSubscriber }

func isDispatcherEvent(e Event) bool {
	k := e.Kind()
	return k == KindFault || k == KindNoSubscriber
}
