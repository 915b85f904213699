package dispatcher

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shuldan/dispatch/pkg/contracts"
	"github.com/shuldan/dispatch/pkg/errors"
	"github.com/shuldan/dispatch/pkg/logger"
)

// Dispatcher routes events to subscriptions by Kind. It is safe for
// concurrent use; handlers run outside the registry lock.
type Dispatcher struct {
	mu            sync.RWMutex
	subscriptions map[Kind][]*Subscription
	sticky        map[Kind]Event
	closed        bool

	execMu    sync.RWMutex
	executors map[ContextName]Executor

	logger      contracts.Logger
	faults      FaultHandler
	observer    Observer
	faultEvents bool
}

func New(opts ...Option) *Dispatcher {
	cfg := &config{
		asyncWorkers: 4,
		executors:    make(map[ContextName]Executor),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.logger == nil {
		cfg.logger = logger.NewNop()
	}
	if cfg.faultHandler == nil {
		cfg.faultHandler = NewLogFaultHandler(cfg.logger)
	}

	executors := map[ContextName]Executor{
		Main:       cfg.executors[Main],
		Background: cfg.executors[Background],
		Async:      cfg.executors[Async],
	}
	if executors[Main] == nil {
		executors[Main] = NewSerialExecutor()
	}
	if executors[Background] == nil {
		executors[Background] = NewSerialExecutor()
	}
	if executors[Async] == nil {
		executors[Async] = NewPoolExecutor(cfg.asyncWorkers)
	}
	for name, exec := range cfg.executors {
		if name == Posting {
			cfg.logger.Warn("ignoring executor for reserved context", "context", string(name))
			continue
		}
		executors[name] = exec
	}

	var observer Observer = nopObserver{}
	if len(cfg.observers) > 0 {
		observer = observers(cfg.observers)
	}

	return &Dispatcher{
		subscriptions: make(map[Kind][]*Subscription),
		sticky:        make(map[Kind]Event),
		executors:     executors,
		logger:        cfg.logger,
		faults:        cfg.faultHandler,
		observer:      observer,
		faultEvents:   cfg.faultEvents,
	}
}

// Register subscribes handler to kind on behalf of subscriber. Registering
// the same subscriber for the same kind again adds another subscription.
// The context named by OnContext does not have to exist yet; delivery to a
// missing context is reported as a FaultUnresolvedContext.
func (d *Dispatcher) Register(subscriber any, kind Kind, handler Handler, opts ...SubscribeOption) (*Subscription, error) {
	if !isComparable(subscriber) {
		return nil, ErrInvalidSubscriber.WithDetail("type", fmt.Sprintf("%T", subscriber))
	}
	if kind == "" {
		return nil, ErrInvalidKind
	}
	if handler == nil {
		return nil, ErrInvalidHandler
	}

	sub := &Subscription{
		id:         uuid.NewString(),
		subscriber: subscriber,
		kind:       kind,
		context:    Posting,
		handler:    handler,
	}
	for _, opt := range opts {
		opt(sub)
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrDispatcherClosed
	}
	sub.active.Store(true)
	// Clip forces append to copy, so snapshots held by in-flight posts never change.
	d.subscriptions[kind] = append(slices.Clip(d.subscriptions[kind]), sub)
	stickyEvent, hasSticky := d.sticky[kind]
	d.mu.Unlock()

	d.logger.Debug("subscription registered",
		"kind", string(kind), "subscription", sub.id, "subscriber", sub.Name(), "context", string(sub.context))

	if sub.sticky && hasSticky {
		ctx := withPostID(context.Background(), uuid.NewString())
		d.deliver(ctx, stickyEvent, sub)
	}

	return sub, nil
}

// On registers fn for the kind of T and asserts delivered events to T.
func On[T Event](d *Dispatcher, subscriber any, fn func(ctx context.Context, e T) error, opts ...SubscribeOption) (*Subscription, error) {
	if fn == nil {
		return nil, ErrInvalidHandler
	}
	kind, err := KindOf[T]()
	if err != nil {
		return nil, err
	}

	return d.Register(subscriber, kind, func(ctx context.Context, e Event) error {
		typed, ok := e.(T)
		if !ok {
			return ErrUnexpectedEvent.
				WithDetail("kind", string(kind)).
				WithDetail("type", fmt.Sprintf("%T", e))
		}
		return fn(ctx, typed)
	}, opts...)
}

// KindOf resolves the Kind of T from its zero value.
func KindOf[T Event]() (kind Kind, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrInvalidEventType.WithDetail("type", reflect.TypeFor[T]().String())
		}
	}()

	var zero T
	kind = zero.Kind()
	if kind == "" {
		return "", ErrInvalidKind
	}
	return kind, nil
}

// Unregister removes every subscription owned by subscriber and returns how
// many were removed. Unknown subscribers are a no-op.
func (d *Dispatcher) Unregister(subscriber any) int {
	if !isComparable(subscriber) {
		return 0
	}
	return d.remove(func(s *Subscription) bool { return s.subscriber == subscriber })
}

// Unsubscribe removes a single subscription.
func (d *Dispatcher) Unsubscribe(sub *Subscription) bool {
	if sub == nil {
		return false
	}
	return d.remove(func(s *Subscription) bool { return s == sub }) > 0
}

func (d *Dispatcher) remove(match func(*Subscription) bool) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for kind, subs := range d.subscriptions {
		if !slices.ContainsFunc(subs, match) {
			continue
		}
		kept := make([]*Subscription, 0, len(subs))
		for _, s := range subs {
			if match(s) {
				s.active.Store(false)
				removed++
				continue
			}
			kept = append(kept, s)
		}
		if len(kept) == 0 {
			delete(d.subscriptions, kind)
			continue
		}
		d.subscriptions[kind] = kept
	}
	return removed
}

// Post delivers e to the subscriptions registered for e.Kind() at the time of
// the call, in registration order. Posting-context handlers have run when
// Post returns; every other delivery is queued and Post does not wait for it.
// Handler failures are reported to the fault handler, never returned.
func (d *Dispatcher) Post(ctx context.Context, e Event) error {
	if e == nil {
		return nil
	}

	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return ErrDispatcherClosed
	}
	subs := d.subscriptions[e.Kind()]
	d.mu.RUnlock()

	ctx = withPostID(ctx, uuid.NewString())
	d.observer.Posted(ctx, e, len(subs))

	if len(subs) == 0 {
		d.logger.Trace("no subscribers", "kind", string(e.Kind()), "post_id", PostID(ctx))
		if d.faultEvents && !isDispatcherEvent(e) {
			_ = d.Post(ctx, NoSubscriberEvent{Event: e, PostID: PostID(ctx)})
		}
		return nil
	}

	for _, sub := range subs {
		d.deliver(ctx, e, sub)
	}
	return nil
}

// PostSticky remembers e as the latest event of its kind, then posts it.
func (d *Dispatcher) PostSticky(ctx context.Context, e Event) error {
	if e == nil {
		return nil
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	d.sticky[e.Kind()] = e
	d.mu.Unlock()

	return d.Post(ctx, e)
}

func (d *Dispatcher) StickyEvent(kind Kind) (Event, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.sticky[kind]
	return e, ok
}

func (d *Dispatcher) RemoveSticky(kind Kind) (Event, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.sticky[kind]
	delete(d.sticky, kind)
	return e, ok
}

func (d *Dispatcher) HasSubscribers(kind Kind) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscriptions[kind]) > 0
}

// Subscriptions returns the current subscriptions for kind in delivery order.
func (d *Dispatcher) Subscriptions(kind Kind) []*Subscription {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.subscriptions[kind])
}

// Attach adds an execution context. Posting and names already attached are
// rejected.
func (d *Dispatcher) Attach(name ContextName, exec Executor) error {
	if name == Posting {
		return ErrReservedContext.WithDetail("context", string(name))
	}
	d.execMu.Lock()
	defer d.execMu.Unlock()
	if _, exists := d.executors[name]; exists {
		return ErrContextExists.WithDetail("context", string(name))
	}
	d.executors[name] = exec
	return nil
}

// Detach removes the named context and closes its executor. Deliveries still
// routed to it afterwards are reported as unresolved.
func (d *Dispatcher) Detach(name ContextName) error {
	return d.DetachContext(context.Background(), name)
}

// DetachContext is Detach for callers that may run inside a handler. Pass the
// handler's ctx: detaching the context the handler runs on would wait for
// itself, so it fails with ErrCloseFromHandler instead.
func (d *Dispatcher) DetachContext(ctx context.Context, name ContextName) error {
	d.execMu.Lock()
	exec, ok := d.executors[name]
	if ok && CurrentContext(ctx) == name {
		d.execMu.Unlock()
		return ErrCloseFromHandler.WithDetail("context", string(name))
	}
	delete(d.executors, name)
	d.execMu.Unlock()

	if !ok {
		return ErrContextNotFound.WithDetail("context", string(name))
	}
	return exec.Close()
}

func (d *Dispatcher) executor(name ContextName) (Executor, bool) {
	d.execMu.RLock()
	defer d.execMu.RUnlock()
	exec, ok := d.executors[name]
	return exec, ok
}

// Close rejects further posts and registrations, then drains and stops every
// attached executor. Handlers running on an attached context must use
// CloseContext.
func (d *Dispatcher) Close() error {
	return d.CloseContext(context.Background())
}

// CloseContext is Close for callers that may run inside a handler. When ctx
// belongs to a handler on an attached context, closing would wait for that
// handler to return, so it fails with ErrCloseFromHandler and leaves the
// dispatcher open.
func (d *Dispatcher) CloseContext(ctx context.Context) error {
	if cur := CurrentContext(ctx); cur != Posting {
		if _, ok := d.executor(cur); ok {
			return ErrCloseFromHandler.WithDetail("context", string(cur))
		}
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.execMu.Lock()
	executors := d.executors
	d.executors = make(map[ContextName]Executor)
	d.execMu.Unlock()

	var errs []error
	for _, name := range []ContextName{Main, Background, Async} {
		if exec, ok := executors[name]; ok {
			delete(executors, name)
			if err := exec.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, exec := range executors {
		if err := exec.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) deliver(ctx context.Context, e Event, sub *Subscription) {
	if sub.context == Posting {
		d.invoke(ctx, e, sub)
		return
	}

	exec, ok := d.executor(sub.context)
	if !ok {
		d.fault(ctx, Fault{
			Reason:       FaultUnresolvedContext,
			Event:        e,
			Subscription: sub,
			Err:          ErrUnresolvedContext.WithDetail("context", string(sub.context)),
		})
		return
	}

	if exec.Serial() && CurrentContext(ctx) == sub.context {
		d.invoke(ctx, e, sub)
		return
	}

	t := &delivery{d: d, ctx: context.WithoutCancel(ctx), event: e, sub: sub}
	if err := exec.Execute(t); err != nil {
		t.Abort(err)
	}
}

func (d *Dispatcher) invoke(ctx context.Context, e Event, sub *Subscription) {
	if sub.context != Posting {
		ctx = withCurrentContext(ctx, sub.context)
	}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			d.fault(ctx, Fault{
				Reason:       FaultHandlerPanic,
				Event:        e,
				Subscription: sub,
				Err:          ErrHandlerPanic.WithDetail("panic", fmt.Sprint(r)),
				Stack:        debug.Stack(),
			})
		}
	}()

	if err := sub.handler(ctx, e); err != nil {
		d.fault(ctx, Fault{
			Reason:       FaultHandlerError,
			Event:        e,
			Subscription: sub,
			Err:          err,
		})
		return
	}

	d.observer.Delivered(ctx, e, sub, time.Since(start))
}

func (d *Dispatcher) fault(ctx context.Context, f Fault) {
	f.PostID = PostID(ctx)
	f.At = time.Now()
	if f.Subscription != nil {
		f.Context = f.Subscription.context
	}

	d.faults.HandleFault(f)
	d.observer.Faulted(f)

	if d.faultEvents && !isDispatcherEvent(f.Event) {
		_ = d.Post(context.WithoutCancel(ctx), FaultEvent{Fault: f})
	}
}

// delivery is the Task queued on non-posting executors.
type delivery struct {
	d     *Dispatcher
	ctx   context.Context
	event Event
	sub   *Subscription
}

// Run skips subscriptions removed while the delivery was queued.
func (t *delivery) Run() {
	if !t.sub.Active() {
		return
	}
	t.d.invoke(t.ctx, t.event, t.sub)
}

func (t *delivery) Abort(err error) {
	t.d.fault(t.ctx, Fault{
		Reason:       FaultUnresolvedContext,
		Event:        t.event,
		Subscription: t.sub,
		Err: ErrUnresolvedContext.
			WithDetail("context", string(t.sub.context)).
			WithCause(err),
	})
}

// isComparable checks the dynamic value, so a struct whose interface field
// holds a slice is rejected even though its type is comparable.
func isComparable(v any) bool {
	if v == nil {
		return false
	}
	return reflect.ValueOf(v).Comparable()
}
