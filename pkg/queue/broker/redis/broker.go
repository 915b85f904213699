package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/shuldan/dispatch/pkg/contracts"
	"github.com/shuldan/dispatch/pkg/logger"
)

// broker maps topics onto redis streams read through consumer groups.
// Messages whose handler fails stay pending and are claimed again once they
// have been idle for the processing timeout.
type broker struct {
	client      redis.UniversalClient
	consumers   map[string][]context.CancelFunc
	consumersMu sync.Mutex
	closed      bool
	config      *config
	wg          sync.WaitGroup
}

func New(client redis.UniversalClient, opts ...Option) contracts.Broker {
	c := defaultConfig()
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger, _ = logger.NewLogger(logger.WithWriter(os.Stderr), logger.WithLevel(slog.LevelWarn))
	}

	return &broker{
		client:    client,
		consumers: make(map[string][]context.CancelFunc),
		config:    c,
	}
}

func (b *broker) Produce(ctx context.Context, topic string, data []byte) error {
	msg := redisStreamMessage{
		Data:       data,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}

	values, err := encodeMessage(msg)
	if err != nil {
		return ErrEncodeFailed.
			WithDetail("topic", topic).
			WithCause(err)
	}

	stream := b.streamKey(topic)
	args := &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}
	if b.config.maxStreamLength > 0 {
		args.MaxLen = b.config.maxStreamLength
		args.Approx = b.config.approximateTrim
	}

	if err := b.client.XAdd(ctx, args).Err(); err != nil {
		return ErrProduceFailed.
			WithDetail("topic", topic).
			WithDetail("stream", stream).
			WithCause(err)
	}
	return nil
}

// Consume makes sure the consumer group exists and starts reading it in the
// background until ctx is done or the broker is closed.
func (b *broker) Consume(ctx context.Context, topic string, handler func([]byte) error) error {
	stream := b.streamKey(topic)
	group := fmt.Sprintf("%s:%s", b.config.consumerGroup, topic)
	consumer := b.newConsumerID(topic)

	err := b.client.XGroupCreateMkStream(ctx, stream, group, b.config.groupStartID).Err()
	if err != nil && !isGroupExists(err) {
		return ErrConsumeSetupFailed.
			WithDetail("topic", topic).
			WithDetail("stream", stream).
			WithDetail("group", group).
			WithCause(err)
	}

	b.consumersMu.Lock()
	if b.closed {
		b.consumersMu.Unlock()
		return ErrBrokerClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	b.consumers[topic] = append(b.consumers[topic], cancel)
	b.wg.Add(1)
	b.consumersMu.Unlock()

	b.config.logger.Debug("redis consumer started",
		"topic", topic, "stream", stream, "group", group, "consumer", consumer)

	go func() {
		defer b.wg.Done()
		defer cancel()
		b.consumeLoop(ctx, stream, group, consumer, handler)
	}()

	return nil
}

func (b *broker) consumeLoop(
	ctx context.Context,
	stream, group, consumer string,
	handler func([]byte) error,
) {
	ticker := time.NewTicker(b.config.claimInterval)
	if !b.config.enableClaim {
		ticker.Stop()
	}
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.claimStalledMessages(ctx, stream, group, consumer, handler)
		default:
			b.processNewMessage(ctx, stream, group, consumer, handler)
		}
	}
}

func (b *broker) processNewMessage(
	ctx context.Context,
	stream, group, consumer string,
	handler func([]byte) error,
) {
	result, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    1,
		Block:    b.config.blockTimeout,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			b.config.logger.Warn("redis stream read failed", "stream", stream, "group", group, "error", err)
		}
		select {
		case <-time.After(b.config.retryDelay):
		case <-ctx.Done():
		}
		return
	}

	for _, s := range result {
		for _, msg := range s.Messages {
			b.handleMessage(ctx, stream, group, msg, handler)
		}
	}
}

func (b *broker) claimStalledMessages(ctx context.Context, stream, group, consumer string, handler func([]byte) error) {
	pending, err := b.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream,
		Group:  group,
		Start:  "-",
		End:    "+",
		Count:  int64(b.config.maxClaimBatch),
		Idle:   b.config.processingTimeout,
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			b.config.logger.Warn("redis pending scan failed", "stream", stream, "group", group, "error", err)
		}
		return
	}
	if len(pending) == 0 {
		return
	}

	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		ids = append(ids, p.ID)
	}

	msgs, err := b.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   stream,
		Group:    group,
		Consumer: consumer,
		MinIdle:  b.config.processingTimeout,
		Messages: ids,
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			b.config.logger.Warn("redis claim failed", "stream", stream, "group", group, "error", err)
		}
		return
	}

	for _, msg := range msgs {
		b.handleMessage(ctx, stream, group, msg, handler)
	}
}

// handleMessage acks on success and on undecodable payloads; a handler error
// leaves the message pending for a later claim.
func (b *broker) handleMessage(ctx context.Context, stream, group string, msg redis.XMessage, handler func([]byte) error) {
	var body redisStreamMessage
	if err := decodeMessage(msg.Values, &body); err != nil {
		b.config.logger.Error("dropping undecodable redis message", "stream", stream, "id", msg.ID, "error", err)
		_ = b.client.XAck(ctx, stream, group, msg.ID).Err()
		return
	}

	if err := handler(body.Data); err != nil {
		b.config.logger.Warn("redis message handler failed", "stream", stream, "id", msg.ID, "error", err)
		return
	}
	if err := b.client.XAck(ctx, stream, group, msg.ID).Err(); err != nil && ctx.Err() == nil {
		b.config.logger.Warn("redis ack failed", "stream", stream, "id", msg.ID, "error", err)
	}
}

// Close stops all consumers and waits for them. The client belongs to the
// caller and is left open.
func (b *broker) Close() error {
	b.consumersMu.Lock()
	if b.closed {
		b.consumersMu.Unlock()
		return nil
	}
	b.closed = true
	for topic, cancels := range b.consumers {
		for _, cancel := range cancels {
			cancel()
		}
		delete(b.consumers, topic)
	}
	b.consumersMu.Unlock()

	b.wg.Wait()
	return nil
}

func (b *broker) streamKey(topic string) string {
	return fmt.Sprintf(b.config.streamKeyFormat, topic)
}

func (b *broker) newConsumerID(topic string) string {
	prefix := b.config.consumerPrefix
	if prefix != "" {
		prefix = prefix + "-"
	}
	return fmt.Sprintf("consumer-%s%s-%s", prefix, topic, uuid.NewString())
}

func encodeMessage(msg redisStreamMessage) (map[string]any, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return map[string]any{"payload": string(data)}, nil
}

func decodeMessage(values map[string]any, msg *redisStreamMessage) error {
	payload, ok := values["payload"].(string)
	if !ok {
		return ErrInvalidPayload
	}
	return json.Unmarshal([]byte(payload), msg)
}

func isGroupExists(err error) bool {
	return err != nil && (strings.HasPrefix(err.Error(), "BUSYGROUP") ||
		strings.Contains(err.Error(), "already exists"))
}

type redisStreamMessage struct {
	Data       []byte `json:"data"`
	EnqueuedAt string `json:"enqueued_at"`
}
