package relay

import (
	"sync"
	"time"

	"github.com/shuldan/dispatch/pkg/app"
	"github.com/shuldan/dispatch/pkg/contracts"
	"github.com/shuldan/dispatch/pkg/dispatcher"
	"github.com/shuldan/dispatch/pkg/queue"
)

type module struct {
	codecs *Codecs

	mu    sync.Mutex
	relay *Relay
}

// NewModule registers a Relay that knows the kinds in codecs. When
// relay.enabled is set, Start forwards and receives relay.kinds.
func NewModule(codecs *Codecs) contracts.AppModule {
	return &module{codecs: codecs}
}

func (m *module) Name() string {
	return contracts.RelayModuleName
}

func (m *module) Register(container contracts.DIContainer) error {
	return container.Factory(contracts.RelayModuleName, m.build)
}

func (m *module) build(c contracts.DIContainer) (any, error) {
	d, err := app.Resolve[*dispatcher.Dispatcher](c, contracts.DispatcherModuleName)
	if err != nil {
		return nil, err
	}
	b, err := app.Resolve[contracts.Broker](c, contracts.BrokerModuleName)
	if err != nil {
		return nil, err
	}
	cfg, err := app.Resolve[contracts.Config](c, contracts.ConfigModuleName)
	if err != nil {
		return nil, err
	}

	opts := []Option{}
	if l, err := app.Resolve[contracts.Logger](c, contracts.LoggerModuleName); err == nil {
		opts = append(opts, WithLogger(l.With("module", contracts.RelayModuleName)))
	}

	if sub, ok := cfg.GetSub("relay"); ok {
		opts = append(opts,
			WithPrefix(sub.GetString("prefix", "")),
			WithOrigin(sub.GetString("node", "")),
			WithDedupe(sub.GetInt("dedupe_size", 1024)),
			WithBreaker(sub.GetInt("breaker_failures", 5), sub.GetDuration("breaker_cooldown", 10*time.Second)),
		)
		backoff, err := queue.ParseBackoff(
			sub.GetString("backoff", "none"),
			sub.GetDuration("backoff_base"),
			sub.GetDuration("backoff_max"),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithQueueOptions(
			queue.WithMaxRetries(sub.GetInt("max_retries", 0)),
			queue.WithBackoff(backoff),
			queue.WithDLQ(sub.GetBool("dlq", false)),
		))
	}

	r := New(d, b, m.codecs, opts...)
	m.mu.Lock()
	m.relay = r
	m.mu.Unlock()
	return r, nil
}

func (m *module) Start(ctx contracts.AppContext) error {
	cfg, err := app.Resolve[contracts.Config](ctx.Container(), contracts.ConfigModuleName)
	if err != nil {
		return err
	}
	sub, ok := cfg.GetSub("relay")
	if !ok || !sub.GetBool("enabled", false) {
		return nil
	}

	r, err := app.Resolve[*Relay](ctx.Container(), contracts.RelayModuleName)
	if err != nil {
		return ErrRelayNotFound.WithCause(err)
	}

	kinds := make([]dispatcher.Kind, 0)
	for _, k := range sub.GetStringSlice("kinds") {
		kinds = append(kinds, dispatcher.Kind(k))
	}
	if err := r.Forward(kinds...); err != nil {
		return err
	}
	return r.Receive(ctx.Ctx(), kinds...)
}

func (m *module) Stop(contracts.AppContext) error {
	m.mu.Lock()
	r := m.relay
	m.mu.Unlock()
	if r == nil {
		return nil
	}
	return r.Close()
}
