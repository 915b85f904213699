package redis

import (
	"time"

	"github.com/shuldan/dispatch/pkg/contracts"
)

type Option func(*config)

type config struct {
	streamKeyFormat   string
	consumerGroup     string
	groupStartID      string
	processingTimeout time.Duration
	claimInterval     time.Duration
	maxClaimBatch     int
	blockTimeout      time.Duration
	retryDelay        time.Duration
	maxStreamLength   int64
	approximateTrim   bool
	enableClaim       bool
	consumerPrefix    string
	logger            contracts.Logger
}

func defaultConfig() *config {
	return &config{
		streamKeyFormat:   "stream:%s",
		consumerGroup:     "consumers",
		groupStartID:      "0",
		processingTimeout: 30 * time.Second,
		claimInterval:     1 * time.Second,
		maxClaimBatch:     10,
		blockTimeout:      500 * time.Millisecond,
		retryDelay:        10 * time.Millisecond,
		approximateTrim:   true,
		enableClaim:       true,
	}
}

// WithStreamKeyFormat sets the fmt pattern that turns a topic into a key.
func WithStreamKeyFormat(format string) Option {
	return func(c *config) {
		c.streamKeyFormat = format
	}
}

// WithConsumerGroup names the group. Processes sharing a group split the
// messages; give each process its own group to have all of them see every
// message.
func WithConsumerGroup(group string) Option {
	return func(c *config) {
		c.consumerGroup = group
	}
}

// WithGroupStartID is where a newly created group starts reading: "0" for
// the whole stream, "$" for new messages only.
func WithGroupStartID(id string) Option {
	return func(c *config) {
		if id != "" {
			c.groupStartID = id
		}
	}
}

func WithProcessingTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.processingTimeout = timeout
	}
}

func WithClaimInterval(interval time.Duration) Option {
	return func(c *config) {
		if interval > 0 {
			c.claimInterval = interval
		}
	}
}

func WithMaxClaimBatch(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxClaimBatch = n
		}
	}
}

func WithBlockTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.blockTimeout = timeout
	}
}

func WithMaxStreamLength(maxLen int64) Option {
	return func(c *config) {
		c.maxStreamLength = maxLen
	}
}

func WithApproximateTrimming(enabled bool) Option {
	return func(c *config) {
		c.approximateTrim = enabled
	}
}

func WithClaim(enabled bool) Option {
	return func(c *config) {
		c.enableClaim = enabled
	}
}

func WithConsumerPrefix(prefix string) Option {
	return func(c *config) {
		c.consumerPrefix = prefix
	}
}

func WithLogger(logger contracts.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}
