package bootstrap

import (
	"os"
	"time"

	"github.com/shuldan/dispatch/pkg/app"
	"github.com/shuldan/dispatch/pkg/cli"
	"github.com/shuldan/dispatch/pkg/config"
	"github.com/shuldan/dispatch/pkg/contracts"
	"github.com/shuldan/dispatch/pkg/dispatcher"
	"github.com/shuldan/dispatch/pkg/journal"
	"github.com/shuldan/dispatch/pkg/logger"
	"github.com/shuldan/dispatch/pkg/queue/broker"
	"github.com/shuldan/dispatch/pkg/relay"
)

// Bootstrap collects modules in start order. Shutdown runs in reverse, so
// register producers of services before their consumers: logger, journal,
// dispatcher, broker, relay, cli.
type Bootstrap struct {
	appName         string
	appVersion      string
	appEnvironment  string
	modules         []contracts.AppModule
	appOptions      []app.Option
	gracefulTimeout time.Duration
}

// New starts a bootstrap with the config module; values come from defaults,
// the first readable file in configPaths and envPrefix-ed variables.
func New(appName string, appVersion string, envPrefix string, configPaths ...string) *Bootstrap {
	appEnvironment := os.Getenv("APP_ENVIRONMENT")
	if appEnvironment == "" {
		appEnvironment = "development"
	}

	return &Bootstrap{
		appName:         appName,
		appVersion:      appVersion,
		appEnvironment:  appEnvironment,
		modules:         []contracts.AppModule{config.NewModule(envPrefix, configPaths...)},
		gracefulTimeout: 10 * time.Second,
	}
}

// WithConfig replaces the config module, e.g. with a static loader in tests.
func (b *Bootstrap) WithConfig(m contracts.AppModule) *Bootstrap {
	b.modules[0] = m
	return b
}

func (b *Bootstrap) WithGracefulTimeout(timeout time.Duration) *Bootstrap {
	b.gracefulTimeout = timeout
	return b
}

func (b *Bootstrap) WithAppOptions(opts ...app.Option) *Bootstrap {
	b.appOptions = append(b.appOptions, opts...)
	return b
}

func (b *Bootstrap) WithLogger(opts ...logger.Option) *Bootstrap {
	b.modules = append(b.modules, logger.NewModule(opts...))
	return b
}

func (b *Bootstrap) WithJournal() *Bootstrap {
	b.modules = append(b.modules, journal.NewModule())
	return b
}

func (b *Bootstrap) WithDispatcher(opts ...dispatcher.Option) *Bootstrap {
	b.modules = append(b.modules, dispatcher.NewModule(opts...))
	return b
}

func (b *Bootstrap) WithBroker() *Bootstrap {
	b.modules = append(b.modules, broker.NewModule())
	return b
}

func (b *Bootstrap) WithRelay(codecs *relay.Codecs) *Bootstrap {
	b.modules = append(b.modules, relay.NewModule(codecs))
	return b
}

func (b *Bootstrap) WithCli(m *cli.Module) *Bootstrap {
	b.modules = append(b.modules, m)
	return b
}

func (b *Bootstrap) CreateApp() (contracts.App, error) {
	opts := append([]app.Option{app.WithGracefulTimeout(b.gracefulTimeout)}, b.appOptions...)
	a := app.New(
		app.Info{
			AppName:     b.appName,
			Version:     b.appVersion,
			Environment: b.appEnvironment,
		},
		app.NewContainer(),
		app.NewRegistry(),
		opts...,
	)

	for _, module := range b.modules {
		if err := a.Register(module); err != nil {
			return nil, err
		}
	}

	return a, nil
}
