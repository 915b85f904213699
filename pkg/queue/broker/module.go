package broker

import (
	"sync"

	rdClient "github.com/redis/go-redis/v9"

	"github.com/shuldan/dispatch/pkg/config"
	"github.com/shuldan/dispatch/pkg/contracts"
	"github.com/shuldan/dispatch/pkg/errors"
	"github.com/shuldan/dispatch/pkg/queue/broker/memory"
	"github.com/shuldan/dispatch/pkg/queue/broker/redis"
)

type module struct {
	mu     sync.Mutex
	broker contracts.Broker
	client *rdClient.Client
}

func NewModule() contracts.AppModule {
	return &module{}
}

func (m *module) Name() string {
	return contracts.BrokerModuleName
}

// Register builds the broker named by relay.driver: "memory" (default) or
// "redis", which connects with the redis section.
func (m *module) Register(container contracts.DIContainer) error {
	return container.Factory(contracts.BrokerModuleName, m.build)
}

func (m *module) build(c contracts.DIContainer) (any, error) {
	b, client, err := newBroker(c)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.broker = b
	m.client = client
	m.mu.Unlock()
	return b, nil
}

func newBroker(c contracts.DIContainer) (contracts.Broker, *rdClient.Client, error) {
	raw, err := c.Resolve(contracts.ConfigModuleName)
	if err != nil {
		return nil, nil, ErrConfigNotFound.WithCause(err)
	}
	cfg, ok := raw.(contracts.Config)
	if !ok {
		return nil, nil, ErrInvalidConfigInstance
	}

	raw, err = c.Resolve(contracts.LoggerModuleName)
	if err != nil {
		return nil, nil, err
	}
	logger, ok := raw.(contracts.Logger)
	if !ok {
		return nil, nil, ErrInvalidLoggerInstance
	}
	logger = logger.With("module", contracts.BrokerModuleName)

	relayCfg, ok := cfg.GetSub("relay")
	if !ok {
		relayCfg = config.NewMapConfig(nil)
	}

	driver := relayCfg.GetString("driver", "memory")
	switch driver {
	case "memory":
		return memory.New(logger), nil, nil
	case "redis":
		redisCfg, exists := cfg.GetSub("redis")
		if !exists {
			return nil, nil, ErrRedisConfigNotFound
		}
		client := rdClient.NewClient(&rdClient.Options{
			Addr:     redisCfg.GetString("addr", "localhost:6379"),
			Username: redisCfg.GetString("username", ""),
			Password: redisCfg.GetString("password", ""),
			DB:       redisCfg.GetInt("db", 0),
		})
		return redis.New(client, redisOptions(relayCfg, logger)...), client, nil
	default:
		return nil, nil, ErrUnsupportedDriver.WithDetail("driver", driver)
	}
}

func redisOptions(cfg contracts.Config, logger contracts.Logger) []redis.Option {
	opts := []redis.Option{redis.WithLogger(logger)}

	if format := cfg.GetString("stream_format", ""); format != "" {
		opts = append(opts, redis.WithStreamKeyFormat(format))
	}
	if group := cfg.GetString("group", ""); group != "" {
		opts = append(opts, redis.WithConsumerGroup(group))
	}
	if start := cfg.GetString("start", ""); start != "" {
		opts = append(opts, redis.WithGroupStartID(start))
	}
	if timeout := cfg.GetDuration("processing_timeout"); timeout > 0 {
		opts = append(opts, redis.WithProcessingTimeout(timeout))
	}
	if interval := cfg.GetDuration("claim_interval"); interval > 0 {
		opts = append(opts, redis.WithClaimInterval(interval))
	}
	if block := cfg.GetDuration("block_timeout"); block > 0 {
		opts = append(opts, redis.WithBlockTimeout(block))
	}
	if maxLen := cfg.GetInt64("max_stream_length", 0); maxLen > 0 {
		opts = append(opts, redis.WithMaxStreamLength(maxLen))
	}
	if !cfg.GetBool("enable_claim", true) {
		opts = append(opts, redis.WithClaim(false))
	}
	return opts
}

func (m *module) Start(contracts.AppContext) error {
	return nil
}

// Stop closes the broker, if it was ever built, and then its redis client.
func (m *module) Stop(contracts.AppContext) error {
	m.mu.Lock()
	b, client := m.broker, m.client
	m.mu.Unlock()

	var errs []error
	if b != nil {
		errs = append(errs, b.Close())
	}
	if client != nil {
		errs = append(errs, client.Close())
	}
	return errors.Join(errs...)
}
