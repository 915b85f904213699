package dispatcher

import "github.com/shuldan/dispatch/pkg/contracts"

type Option func(*config)

type config struct {
	logger       contracts.Logger
	faultHandler FaultHandler
	observers    []Observer
	asyncWorkers int
	faultEvents  bool
	executors    map[ContextName]Executor
}

func WithLogger(logger contracts.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithFaultHandler replaces the default logging fault handler.
func WithFaultHandler(h FaultHandler) Option {
	return func(c *config) {
		c.faultHandler = h
	}
}

func WithObserver(o Observer) Option {
	return func(c *config) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

func WithAsyncWorkers(n int) Option {
	return func(c *config) {
		if n < 1 {
			n = 1
		}
		c.asyncWorkers = n
	}
}

// WithFaultEvents makes the dispatcher post FaultEvent and NoSubscriberEvent.
func WithFaultEvents() Option {
	return func(c *config) {
		c.faultEvents = true
	}
}

// WithExecutor installs exec under name instead of the built-in one, or
// adds a custom context.
func WithExecutor(name ContextName, exec Executor) Option {
	return func(c *config) {
		c.executors[name] = exec
	}
}
