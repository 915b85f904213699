package redis

import "github.com/shuldan/dispatch/pkg/errors"

var newRedisBrokerCode = errors.WithPrefix("REDIS_BROKER")

var (
	ErrInvalidPayload     = newRedisBrokerCode().New("missing or invalid 'payload' field")
	ErrProduceFailed      = newRedisBrokerCode().New("failed to produce message to stream {{.stream}}")
	ErrEncodeFailed       = newRedisBrokerCode().New("failed to encode message for topic {{.topic}}")
	ErrConsumeSetupFailed = newRedisBrokerCode().New("failed to create consumer group {{.group}}")
	ErrBrokerClosed       = newRedisBrokerCode().New("redis broker is closed")
)
