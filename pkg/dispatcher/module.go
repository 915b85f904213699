package dispatcher

import (
	"github.com/shuldan/dispatch/pkg/contracts"
)

type module struct {
	opts []Option
}

// NewModule registers a Dispatcher built from the "dispatcher" config
// section. A registered journal is attached as an observer. Options passed
// here are applied last.
func NewModule(opts ...Option) contracts.AppModule {
	return &module{opts: opts}
}

func (m *module) Name() string {
	return contracts.DispatcherModuleName
}

func (m *module) Register(container contracts.DIContainer) error {
	return container.Factory(
		contracts.DispatcherModuleName,
		func(c contracts.DIContainer) (any, error) {
			var opts []Option
			if c.Has(contracts.LoggerModuleName) {
				raw, err := c.Resolve(contracts.LoggerModuleName)
				if err != nil {
					return nil, err
				}
				if l, ok := raw.(contracts.Logger); ok {
					opts = append(opts, WithLogger(l.With("module", contracts.DispatcherModuleName)))
				}
			}
			opts = append(opts, configOptions(c)...)
			if c.Has(contracts.JournalModuleName) {
				raw, err := c.Resolve(contracts.JournalModuleName)
				if err != nil {
					return nil, err
				}
				if o, ok := raw.(Observer); ok {
					opts = append(opts, WithObserver(o))
				}
			}
			opts = append(opts, m.opts...)
			return New(opts...), nil
		},
	)
}

func configOptions(c contracts.DIContainer) []Option {
	if !c.Has(contracts.ConfigModuleName) {
		return nil
	}
	raw, err := c.Resolve(contracts.ConfigModuleName)
	if err != nil {
		return nil
	}
	cfg, ok := raw.(contracts.Config)
	if !ok {
		return nil
	}
	sub, ok := cfg.GetSub("dispatcher")
	if !ok {
		return nil
	}

	var opts []Option
	if n := sub.GetInt("async_workers"); n > 0 {
		opts = append(opts, WithAsyncWorkers(n))
	}
	if sub.GetBool("fault_events") {
		opts = append(opts, WithFaultEvents())
	}
	return opts
}

func (m *module) Start(contracts.AppContext) error {
	return nil
}

func (m *module) Stop(ctx contracts.AppContext) error {
	raw, err := ctx.Container().Resolve(contracts.DispatcherModuleName)
	if err != nil {
		return ErrDispatcherNotFound.WithCause(err)
	}
	d, ok := raw.(*Dispatcher)
	if !ok {
		return ErrInvalidDispatcherInstance
	}
	return d.Close()
}
