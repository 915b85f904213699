package queue

import (
	"context"
	"encoding/json"
	"reflect"
	"runtime/debug"
	"sync"
	"time"

	"github.com/shuldan/dispatch/pkg/contracts"
)

// Queue moves JSON-encoded jobs of type T over one broker topic.
type Queue[T any] interface {
	Topic() string
	Produce(ctx context.Context, job T) error
	// Consume runs handler for every job until ctx is done.
	Consume(ctx context.Context, handler func(context.Context, T) error) error
	// Start subscribes like Consume but returns once the broker subscription
	// is in place. The returned channel closes when the workers have exited.
	Start(ctx context.Context, handler func(context.Context, T) error) (<-chan struct{}, error)
	Close() error
}

type typedQueue[T any] struct {
	topic        string
	broker       contracts.Broker
	concurrency  int
	maxRetries   int
	backoff      BackoffStrategy
	errorHandler ErrorHandler
	panicHandler PanicHandler
	mu           sync.RWMutex
	closed       bool
	prefix       string
	dlqEnabled   bool
	counter      Counter
}

// New builds a queue for topic. T must be a pointer to a struct so jobs
// decode into fresh values.
func New[T any](broker contracts.Broker, topic string, opts ...Option) (Queue[T], error) {
	typ := reflect.TypeFor[T]()
	if typ.Kind() != reflect.Ptr || typ.Elem().Kind() != reflect.Struct {
		return nil, ErrInvalidJobType.WithDetail("type", typ.String())
	}
	if broker == nil {
		return nil, ErrNilBroker
	}
	if topic == "" {
		return nil, ErrEmptyTopic
	}

	cfg := &queueConfig{
		concurrency: 1,
		backoff:     NoBackoff{},
		counter:     NoOpCounter{},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.errorHandler == nil {
		cfg.errorHandler = NewDefaultErrorHandler(cfg.logger)
	}
	if cfg.panicHandler == nil {
		cfg.panicHandler = NewDefaultPanicHandler(cfg.logger)
	}

	return &typedQueue[T]{
		topic:        topic,
		broker:       broker,
		backoff:      cfg.backoff,
		concurrency:  cfg.concurrency,
		maxRetries:   cfg.maxRetries,
		panicHandler: cfg.panicHandler,
		errorHandler: cfg.errorHandler,
		prefix:       cfg.prefix,
		dlqEnabled:   cfg.dlqEnabled,
		counter:      cfg.counter,
	}, nil
}

func (q *typedQueue[T]) Topic() string {
	return q.prefixedTopic()
}

func (q *typedQueue[T]) Produce(ctx context.Context, job T) error {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		return ErrQueueClosed
	}

	data, err := json.Marshal(job)
	if err != nil {
		return ErrMarshal.WithCause(err)
	}
	return q.broker.Produce(ctx, q.prefixedTopic(), data)
}

func (q *typedQueue[T]) Consume(ctx context.Context, handler func(context.Context, T) error) error {
	done, err := q.Start(ctx, handler)
	if err != nil {
		return err
	}
	<-done
	return ctx.Err()
}

func (q *typedQueue[T]) Start(ctx context.Context, handler func(context.Context, T) error) (<-chan struct{}, error) {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		return nil, ErrQueueClosed
	}

	jobs := make(chan []byte, q.concurrency*10)
	workerCtx, workerCancel := context.WithCancel(ctx)

	var workerWg sync.WaitGroup
	for i := 0; i < q.concurrency; i++ {
		workerWg.Add(1)
		go func() {
			defer workerWg.Done()
			for {
				select {
				case data := <-jobs:
					q.processJob(workerCtx, data, handler)
				case <-workerCtx.Done():
					return
				}
			}
		}()
	}

	done := make(chan struct{})
	stop := func() {
		workerCancel()
		workerWg.Wait()
		close(done)
	}

	// jobs is never closed: the broker may still be inside the callback when
	// ctx ends, and the callback gives up on ctx instead.
	if err := q.broker.Consume(ctx, q.prefixedTopic(), func(data []byte) error {
		select {
		case jobs <- data:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}); err != nil {
		stop()
		return nil, err
	}

	go func() {
		<-workerCtx.Done()
		stop()
	}()
	return done, nil
}

// Close stops Produce and Consume on this queue. The broker is shared and
// stays open.
func (q *typedQueue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

func (q *typedQueue[T]) processJob(ctx context.Context, data []byte, handler func(context.Context, T) error) {
	topic := q.prefixedTopic()
	startTime := time.Now()
	defer func() {
		if r := recover(); r != nil {
			q.panicHandler.Handle(topic, r, debug.Stack())
			q.counter.IncProcessed(topic, StatusError)
		}
	}()

	var job T
	if err := json.Unmarshal(data, &job); err != nil {
		q.errorHandler.Handle(topic, ErrUnmarshal.WithCause(err))
		q.counter.IncError(topic)
		q.counter.IncProcessed(topic, StatusError)
		return
	}

	for retry := 0; ; {
		err := handler(ctx, job)
		if err == nil {
			q.counter.ObserveProcessingTime(topic, time.Since(startTime))
			q.counter.IncProcessed(topic, StatusSuccess)
			return
		}

		q.errorHandler.Handle(topic, err)
		q.counter.IncError(topic)

		retry++
		if retry > q.maxRetries {
			status := StatusError
			if q.dlqEnabled {
				q.sendToDLQ(ctx, topic, data)
				q.counter.IncDLQ(topic)
				status = StatusDLQ
			}
			q.counter.IncProcessed(topic, status)
			return
		}

		q.counter.IncRetry(topic)
		if delay := q.backoff.Delay(retry); delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}
	}
}

func (q *typedQueue[T]) sendToDLQ(ctx context.Context, topic string, data []byte) {
	dlqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := q.broker.Produce(dlqCtx, q.dlqTopic(), data); err != nil {
		q.errorHandler.Handle(topic, ErrSendToDLQ.WithCause(err))
	}
}

func (q *typedQueue[T]) prefixedTopic() string {
	return q.prefix + q.topic
}

func (q *typedQueue[T]) dlqTopic() string {
	return q.prefix + "dlq:" + q.topic
}
