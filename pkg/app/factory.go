package app

import (
	"context"
	"time"

	"github.com/shuldan/dispatch/pkg/contracts"
)

func NewContainer() contracts.DIContainer {
	return &container{
		factories: make(map[string]factoryFunc),
		instances: make(map[string]any),
	}
}

func NewRegistry() contracts.AppRegistry {
	return &registry{names: make(map[string]bool)}
}

type Option func(*app)

func WithGracefulTimeout(timeout time.Duration) Option {
	return func(a *app) {
		a.shutdownTimeout = timeout
	}
}

// WithParentContext lets the caller (or a test) stop the app by cancelling ctx.
func WithParentContext(ctx context.Context) Option {
	return func(a *app) {
		a.parent = ctx
	}
}

func WithSignals(enabled bool) Option {
	return func(a *app) {
		a.handleSignals = enabled
	}
}

func New(info Info, container contracts.DIContainer, registry contracts.AppRegistry, opts ...Option) contracts.App {
	if container == nil {
		container = NewContainer()
	}
	if registry == nil {
		registry = NewRegistry()
	}

	a := &app{
		container:       container,
		registry:        registry,
		info:            info,
		parent:          context.Background(),
		handleSignals:   true,
		shutdownTimeout: 10 * time.Second,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}
