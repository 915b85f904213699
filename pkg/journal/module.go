package journal

import (
	"context"
	"sync"
	"time"

	"github.com/shuldan/dispatch/pkg/app"
	"github.com/shuldan/dispatch/pkg/contracts"
)

type module struct {
	mu      sync.Mutex
	journal *Journal
}

// NewModule registers a Journal built from the "journal" config section.
// Nothing is registered when journal.enabled is false, so the dispatcher
// runs without it.
func NewModule() contracts.AppModule {
	return &module{}
}

func (m *module) Name() string {
	return contracts.JournalModuleName
}

func (m *module) Register(container contracts.DIContainer) error {
	cfg, err := app.Resolve[contracts.Config](container, contracts.ConfigModuleName)
	if err != nil {
		return err
	}
	sub, ok := cfg.GetSub("journal")
	if !ok || !sub.GetBool("enabled", false) {
		return nil
	}
	return container.Factory(contracts.JournalModuleName, func(c contracts.DIContainer) (any, error) {
		return m.build(c, sub)
	})
}

func (m *module) build(c contracts.DIContainer, sub contracts.Config) (any, error) {
	var opts []Option
	if l, err := app.Resolve[contracts.Logger](c, contracts.LoggerModuleName); err == nil {
		opts = append(opts, WithLogger(l.With("module", contracts.JournalModuleName)))
	}
	opts = append(opts,
		WithBuffer(sub.GetInt("buffer", 0)),
		WithBatchSize(sub.GetInt("batch_size", 0)),
	)

	dbOpts := []DBOption{
		WithRetry(sub.GetInt("retry_attempts", 3), sub.GetDuration("retry_delay", time.Second)),
	}
	if maxOpen := sub.GetInt("max_open_conns", 0); maxOpen > 0 {
		dbOpts = append(dbOpts, WithConnectionPool(
			maxOpen,
			sub.GetInt("max_idle_conns", 1),
			sub.GetDuration("conn_max_lifetime", time.Hour),
		))
	}

	j, err := Open(context.Background(),
		sub.GetString("driver", DriverSQLite),
		sub.GetString("dsn", ""),
		dbOpts,
		opts...,
	)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.journal = j
	m.mu.Unlock()
	return j, nil
}

func (m *module) Start(contracts.AppContext) error {
	return nil
}

// Stop runs after the dispatcher module has stopped, so everything the
// dispatcher delivered is flushed before the database closes.
func (m *module) Stop(contracts.AppContext) error {
	m.mu.Lock()
	j := m.journal
	m.mu.Unlock()
	if j == nil {
		return nil
	}
	return j.Close()
}
