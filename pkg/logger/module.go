package logger

import (
	"github.com/shuldan/dispatch/pkg/contracts"
)

type module struct {
	opts []Option
}

func NewModule(opts ...Option) contracts.AppModule {
	return &module{opts: opts}
}

func (m *module) Name() string {
	return contracts.LoggerModuleName
}

// Register builds the logger from the "logger" config section when a config
// module is present; explicit options passed to NewModule win.
func (m *module) Register(container contracts.DIContainer) error {
	return container.Factory(
		contracts.LoggerModuleName,
		func(c contracts.DIContainer) (any, error) {
			opts := m.configOptions(c)
			opts = append(opts, m.opts...)
			return NewLogger(opts...)
		},
	)
}

func (m *module) configOptions(c contracts.DIContainer) []Option {
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

	sub, ok := cfg.GetSub("logger")
	if !ok {
		return nil
	}

	opts := []Option{WithLevel(ParseLevel(sub.GetString("level", "info")))}
	if sub.GetBool("json") {
		opts = append(opts, WithJSON())
	}
	if sub.GetBool("color") {
		opts = append(opts, WithColor())
	}
	if sub.GetBool("source") {
		opts = append(opts, WithSource())
	}
	return opts
}

func (m *module) Start(contracts.AppContext) error {
	return nil
}

func (m *module) Stop(contracts.AppContext) error {
	return nil
}
