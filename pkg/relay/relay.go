package relay

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sony/gobreaker"

	"github.com/shuldan/dispatch/pkg/contracts"
	"github.com/shuldan/dispatch/pkg/dispatcher"
	"github.com/shuldan/dispatch/pkg/errors"
	"github.com/shuldan/dispatch/pkg/logger"
	"github.com/shuldan/dispatch/pkg/queue"
)

type Option func(*Relay)

// WithOrigin sets the node id stamped on outgoing envelopes. Defaults to a
// random uuid.
func WithOrigin(origin string) Option {
	return func(r *Relay) {
		if origin != "" {
			r.origin = origin
		}
	}
}

// WithPrefix is prepended to the kind to form the broker topic.
func WithPrefix(prefix string) Option {
	return func(r *Relay) {
		r.prefix = prefix
	}
}

func WithLogger(l contracts.Logger) Option {
	return func(r *Relay) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithQueueOptions tunes the per-kind queues (retries, backoff, DLQ).
func WithQueueOptions(opts ...queue.Option) Option {
	return func(r *Relay) {
		r.queueOpts = append(r.queueOpts, opts...)
	}
}

// WithDedupe remembers the ids of the last size inbound envelopes and drops
// repeats, which redis delivers again after claiming a stalled message.
// Zero disables it.
func WithDedupe(size int) Option {
	return func(r *Relay) {
		r.dedupeSize = size
	}
}

// WithBreaker stops producing after failures consecutive broker errors and
// rejects outgoing events for cooldown before trying again. Zero failures
// disables it.
func WithBreaker(failures int, cooldown time.Duration) Option {
	return func(r *Relay) {
		r.breakerFailures = failures
		r.breakerCooldown = cooldown
	}
}

// Relay bridges dispatcher kinds over a broker so several processes share
// events. Outgoing events are produced from the Background context; incoming
// ones are re-posted with their envelope on the context.
type Relay struct {
	d         *dispatcher.Dispatcher
	broker    contracts.Broker
	codecs    *Codecs
	origin    string
	prefix    string
	logger    contracts.Logger
	queueOpts []queue.Option
	stats     Stats

	dedupeSize      int
	seen            *lru.Cache[string, struct{}]
	breakerFailures int
	breakerCooldown time.Duration
	breaker         *gobreaker.CircuitBreaker

	mu        sync.Mutex
	closed    bool
	queues    map[dispatcher.Kind]queue.Queue[*Envelope]
	forwarded map[dispatcher.Kind]bool
	received  map[dispatcher.Kind]context.CancelFunc
	wg        sync.WaitGroup
}

func New(d *dispatcher.Dispatcher, broker contracts.Broker, codecs *Codecs, opts ...Option) *Relay {
	if codecs == nil {
		codecs = NewCodecs()
	}
	r := &Relay{
		d:         d,
		broker:    broker,
		codecs:    codecs,
		origin:    uuid.NewString(),
		logger:    logger.NewNop(),
		queues:    make(map[dispatcher.Kind]queue.Queue[*Envelope]),
		forwarded: make(map[dispatcher.Kind]bool),
		received:  make(map[dispatcher.Kind]context.CancelFunc),

		dedupeSize:      1024,
		breakerFailures: 5,
		breakerCooldown: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.dedupeSize > 0 {
		r.seen, _ = lru.New[string, struct{}](r.dedupeSize)
	}
	if r.breakerFailures > 0 {
		failures := uint32(r.breakerFailures)
		r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "relay.produce",
			MaxRequests: 1,
			Timeout:     r.breakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				r.logger.Warn("relay breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		})
	}
	return r
}

func (r *Relay) Origin() string { return r.origin }

func (r *Relay) Codecs() *Codecs { return r.codecs }

func (r *Relay) Stats() StatsSnapshot { return r.stats.Snapshot() }

// Forward publishes every local post of the given kinds. Events that
// themselves arrived through a relay are not sent back out.
func (r *Relay) Forward(kinds ...dispatcher.Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRelayClosed
	}

	for _, kind := range kinds {
		if r.forwarded[kind] {
			return ErrAlreadyForwarded.WithDetail("kind", string(kind))
		}
		q, err := r.queueLocked(kind)
		if err != nil {
			return err
		}

		_, err = r.d.Register(r, kind, r.forwardHandler(q),
			dispatcher.OnContext(dispatcher.Background),
			dispatcher.WithName("relay.forward"),
		)
		if err != nil {
			return err
		}
		r.forwarded[kind] = true
		r.logger.Info("forwarding kind", "kind", string(kind), "topic", q.Topic(), "origin", r.origin)
	}
	return nil
}

func (r *Relay) forwardHandler(q queue.Queue[*Envelope]) dispatcher.Handler {
	return func(ctx context.Context, e dispatcher.Event) error {
		if _, relayed := FromRelay(ctx); relayed {
			return nil
		}
		env, err := newEnvelope(ctx, r.origin, e)
		if err != nil {
			return err
		}
		if err := r.produce(ctx, q, env); err != nil {
			return err
		}
		r.stats.forwarded.Add(1)
		r.logger.Trace("event forwarded", "kind", string(env.Kind), "envelope", env.ID, "post_id", env.PostID)
		return nil
	}
}

func (r *Relay) produce(ctx context.Context, q queue.Queue[*Envelope], env *Envelope) error {
	if r.breaker == nil {
		return q.Produce(ctx, env)
	}
	_, err := r.breaker.Execute(func() (any, error) {
		return nil, q.Produce(ctx, env)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		r.stats.rejected.Add(1)
		return ErrBreakerOpen.WithDetail("kind", string(env.Kind)).WithCause(err)
	}
	return err
}

// Receive consumes the given kinds from the broker and posts them locally
// until ctx is done or the relay is closed. Every kind needs a codec.
// Envelopes stamped with this relay's own origin are skipped.
func (r *Relay) Receive(ctx context.Context, kinds ...dispatcher.Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRelayClosed
	}

	for _, kind := range kinds {
		if !r.codecs.Has(kind) {
			return ErrNoCodec.WithDetail("kind", string(kind))
		}
		if _, exists := r.received[kind]; exists {
			return ErrAlreadyReceived.WithDetail("kind", string(kind))
		}
	}

	for _, kind := range kinds {
		q, err := r.queueLocked(kind)
		if err != nil {
			return err
		}

		consumeCtx, cancel := context.WithCancel(ctx)
		done, err := q.Start(consumeCtx, r.receive)
		if err != nil {
			cancel()
			return err
		}
		r.received[kind] = cancel
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			<-done
		}()
		r.logger.Info("receiving kind", "kind", string(kind), "topic", q.Topic(), "origin", r.origin)
	}
	return nil
}

func (r *Relay) receive(ctx context.Context, env *Envelope) error {
	if env.Origin == r.origin {
		r.stats.skipped.Add(1)
		return nil
	}

	e, err := r.codecs.Decode(env)
	if err != nil {
		return err
	}

	if r.seen != nil {
		if dup, _ := r.seen.ContainsOrAdd(env.ID, struct{}{}); dup {
			r.stats.duplicates.Add(1)
			return nil
		}
	}
	if err := r.d.Post(withEnvelope(ctx, env), e); err != nil {
		if r.seen != nil {
			r.seen.Remove(env.ID)
		}
		return err
	}
	r.stats.received.Add(1)
	r.logger.Trace("event received", "kind", string(env.Kind), "envelope", env.ID, "origin", env.Origin)
	return nil
}

func (r *Relay) queueLocked(kind dispatcher.Kind) (queue.Queue[*Envelope], error) {
	if q, ok := r.queues[kind]; ok {
		return q, nil
	}
	opts := append([]queue.Option{
		queue.WithPrefix(r.prefix),
		queue.WithLogger(r.logger),
		queue.WithCounter(&r.stats),
	}, r.queueOpts...)

	q, err := queue.New[*Envelope](r.broker, string(kind), opts...)
	if err != nil {
		return nil, err
	}
	r.queues[kind] = q
	return q, nil
}

// Close stops forwarding and receiving. The broker and dispatcher stay open.
func (r *Relay) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	for _, cancel := range r.received {
		cancel()
	}
	queues := r.queues
	r.mu.Unlock()

	r.d.Unregister(r)
	r.wg.Wait()

	for _, q := range queues {
		_ = q.Close()
	}
	return nil
}
