package contracts

import "context"

// Broker moves opaque payloads between processes by topic.
type Broker interface {
	Produce(ctx context.Context, topic string, data []byte) error
	Consume(ctx context.Context, topic string, handler func([]byte) error) error
	Close() error
}
