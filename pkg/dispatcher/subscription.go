package dispatcher

import (
	"fmt"
	"sync/atomic"
)

// Subscription pairs a subscriber with a kind, a handler and the context the
// handler runs on. It is active from Register until Unregister.
type Subscription struct {
	id         string
	subscriber any
	kind       Kind
	context    ContextName
	handler    Handler
	sticky     bool
	name       string
	active     atomic.Bool
}

func (s *Subscription) ID() string           { return s.id }
func (s *Subscription) Subscriber() any      { return s.subscriber }
func (s *Subscription) Kind() Kind           { return s.kind }
func (s *Subscription) Context() ContextName { return s.context }
func (s *Subscription) Active() bool         { return s.active.Load() }

// Name is the label used in logs and the journal. Defaults to the
// subscriber's type.
func (s *Subscription) Name() string {
	if s.name != "" {
		return s.name
	}
	return fmt.Sprintf("%T", s.subscriber)
}

func (s *Subscription) String() string {
	return fmt.Sprintf("%s(%s@%s#%s)", s.Name(), s.kind, s.context, s.id)
}

type SubscribeOption func(*Subscription)

// OnContext selects the execution context; the default is Posting.
func OnContext(name ContextName) SubscribeOption {
	return func(s *Subscription) {
		s.context = name
	}
}

// WithSticky delivers the latest sticky event of the kind, if any, right
// after registration.
func WithSticky() SubscribeOption {
	return func(s *Subscription) {
		s.sticky = true
	}
}

func WithName(name string) SubscribeOption {
	return func(s *Subscription) {
		s.name = name
	}
}
