package queue

import "github.com/shuldan/dispatch/pkg/contracts"

type Option func(*queueConfig)

type queueConfig struct {
	logger       contracts.Logger
	errorHandler ErrorHandler
	panicHandler PanicHandler
	concurrency  int
	maxRetries   int
	backoff      BackoffStrategy
	prefix       string
	dlqEnabled   bool
	counter      Counter
}

// WithLogger is used by the default error and panic handlers.
func WithLogger(logger contracts.Logger) Option {
	return func(q *queueConfig) {
		q.logger = logger
	}
}

func WithPrefix(prefix string) Option {
	return func(q *queueConfig) {
		q.prefix = prefix
	}
}

// WithDLQ sends jobs that exhausted their retries to "dlq:<topic>".
func WithDLQ(enabled bool) Option {
	return func(q *queueConfig) {
		q.dlqEnabled = enabled
	}
}

// WithConcurrency sets the number of workers. One worker keeps broker order.
func WithConcurrency(n int) Option {
	return func(q *queueConfig) {
		if n < 1 {
			n = 1
		}
		q.concurrency = n
	}
}

func WithMaxRetries(n int) Option {
	return func(q *queueConfig) {
		if n < 0 {
			n = 0
		}
		q.maxRetries = n
	}
}

func WithBackoff(b BackoffStrategy) Option {
	return func(q *queueConfig) {
		if b != nil {
			q.backoff = b
		}
	}
}

func WithErrorHandler(h ErrorHandler) Option {
	return func(q *queueConfig) {
		q.errorHandler = h
	}
}

func WithPanicHandler(h PanicHandler) Option {
	return func(q *queueConfig) {
		q.panicHandler = h
	}
}

func WithCounter(counter Counter) Option {
	return func(q *queueConfig) {
		if counter != nil {
			q.counter = counter
		}
	}
}
