package memory

import (
	"context"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"

	"github.com/shuldan/dispatch/pkg/contracts"
	"github.com/shuldan/dispatch/pkg/errors"
)

var newMemoryBrokerCode = errors.WithPrefix("MEMORY_BROKER")

var ErrBrokerClosed = newMemoryBrokerCode().New("memory broker is closed")

type Option func(*broker)

// WithBuffer sets how many messages each consumer may have pending before
// Produce waits.
func WithBuffer(n int) Option {
	return func(b *broker) {
		if n > 0 {
			b.buffer = n
		}
	}
}

type consumer struct {
	ch     chan []byte
	ctx    context.Context
	cancel context.CancelFunc
}

// broker fans every message out to the consumers of its topic that exist
// when it is produced. Nothing is stored for consumers that come later.
type broker struct {
	mu        sync.RWMutex
	consumers map[string][]*consumer
	closed    bool
	done      chan struct{}
	wg        sync.WaitGroup
	logger    contracts.Logger
	buffer    int
}

func New(logger contracts.Logger, opts ...Option) contracts.Broker {
	b := &broker{
		consumers: make(map[string][]*consumer),
		done:      make(chan struct{}),
		logger:    logger,
		buffer:    256,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *broker) Produce(ctx context.Context, topic string, data []byte) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBrokerClosed
	}
	targets := b.consumers[topic]
	b.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.ch <- data:
		case <-c.ctx.Done():
		case <-ctx.Done():
			return ctx.Err()
		case <-b.done:
			return ErrBrokerClosed
		}
	}
	return nil
}

// Consume starts delivering topic to handler in the background until ctx is
// done or the broker is closed. Messages are handled one at a time.
func (b *broker) Consume(ctx context.Context, topic string, handler func([]byte) error) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBrokerClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	c := &consumer{ch: make(chan []byte, b.buffer), ctx: ctx, cancel: cancel}
	b.consumers[topic] = append(slices.Clip(b.consumers[topic]), c)
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		defer b.unregister(topic, c)
		b.consumeMessages(c, topic, handler)
	}()
	return nil
}

func (b *broker) unregister(topic string, c *consumer) {
	c.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()
	kept := slices.DeleteFunc(slices.Clone(b.consumers[topic]), func(x *consumer) bool { return x == c })
	if len(kept) == 0 {
		delete(b.consumers, topic)
		return
	}
	b.consumers[topic] = kept
}

func (b *broker) consumeMessages(c *consumer, topic string, handler func([]byte) error) {
	for {
		select {
		case data := <-c.ch:
			b.handleMessage(data, topic, handler)
		case <-c.ctx.Done():
			return
		case <-b.done:
			return
		}
	}
}

func (b *broker) handleMessage(data []byte, topic string, handler func([]byte) error) {
	defer func() {
		if r := recover(); r != nil {
			b.handlePanic(topic, r)
		}
	}()
	if err := handler(data); err != nil {
		if b.logger != nil {
			b.logger.Warn("message handler failed", "topic", topic, "error", err)
			return
		}
		slog.Warn("message handler failed", "topic", topic, "error", err)
	}
}

func (b *broker) handlePanic(topic string, r any) {
	if b.logger != nil {
		b.logger.Critical("panic in message handler",
			"topic", topic,
			"panic", r,
			"stack", string(debug.Stack()))
		return
	}
	slog.Error("panic in message handler",
		"topic", topic,
		"panic", r,
		"stack", string(debug.Stack()))
}

// Close stops every consumer and waits for in-flight handlers.
func (b *broker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}
