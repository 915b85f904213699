package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestBroker(t *testing.T, opts ...Option) (*broker, *redis.Client) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	opts = append([]Option{
		WithBlockTimeout(20 * time.Millisecond),
		WithClaim(false),
	}, opts...)
	b := New(client, opts...).(*broker)
	t.Cleanup(func() { _ = b.Close() })
	return b, client
}

func TestBroker_ProduceWritesStream(t *testing.T) {
	b, client := newTestBroker(t, WithStreamKeyFormat("dispatch:%s"))

	if err := b.Produce(context.Background(), "button.first", []byte(`{"message":"BFMV"}`)); err != nil {
		t.Fatalf("Produce failed: %v", err)
	}

	msgs, err := client.XRange(context.Background(), "dispatch:button.first", "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange failed: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 stream entry, got %d", len(msgs))
	}

	var body redisStreamMessage
	if err := decodeMessage(msgs[0].Values, &body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if string(body.Data) != `{"message":"BFMV"}` {
		t.Errorf("unexpected payload %q", body.Data)
	}
}

func TestBroker_ConsumeReceivesMessages(t *testing.T) {
	b, _ := newTestBroker(t)

	received := make(chan string, 2)
	if err := b.Consume(context.Background(), "topic", func(data []byte) error {
		received <- string(data)
		return nil
	}); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}

	_ = b.Produce(context.Background(), "topic", []byte("one"))
	_ = b.Produce(context.Background(), "topic", []byte("two"))

	for _, want := range []string{"one", "two"} {
		select {
		case got := <-received:
			if got != want {
				t.Errorf("expected %q, got %q", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("message %q not received", want)
		}
	}
}

func TestBroker_ConsumeTwiceReusesGroup(t *testing.T) {
	b, client := newTestBroker(t, WithConsumerGroup("node-a"))

	noop := func([]byte) error { return nil }
	if err := b.Consume(context.Background(), "topic", noop); err != nil {
		t.Fatalf("first Consume failed: %v", err)
	}
	if err := b.Consume(context.Background(), "topic", noop); err != nil {
		t.Fatalf("existing group must not fail Consume: %v", err)
	}

	if err := b.Produce(context.Background(), "topic", []byte("shared")); err != nil {
		t.Fatalf("Produce failed: %v", err)
	}

	waitPending := time.Now().Add(2 * time.Second)
	for {
		n, err := client.XLen(context.Background(), "stream:topic").Result()
		if err == nil && n == 1 {
			break
		}
		if time.Now().After(waitPending) {
			t.Fatalf("stream length = %d, err = %v", n, err)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBroker_UndecodableMessageIsSkipped(t *testing.T) {
	b, client := newTestBroker(t)

	if err := client.XAdd(context.Background(), &redis.XAddArgs{
		Stream: "stream:topic",
		Values: map[string]any{"garbage": "1"},
	}).Err(); err != nil {
		t.Fatalf("XAdd failed: %v", err)
	}
	_ = b.Produce(context.Background(), "topic", []byte("good"))

	received := make(chan string, 2)
	_ = b.Consume(context.Background(), "topic", func(data []byte) error {
		received <- string(data)
		return nil
	})

	select {
	case got := <-received:
		if got != "good" {
			t.Errorf("expected only the valid message, got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("valid message not received")
	}
}

func TestBroker_Close(t *testing.T) {
	b, _ := newTestBroker(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = b.Consume(ctx, "topic", func([]byte) error { return nil })

	done := make(chan struct{})
	go func() {
		_ = b.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not stop the consumer")
	}

	if err := b.Consume(context.Background(), "topic", func([]byte) error { return nil }); !errors.Is(err, ErrBrokerClosed) {
		t.Errorf("expected ErrBrokerClosed, got %v", err)
	}
}

func TestIsGroupExists(t *testing.T) {
	if !isGroupExists(errors.New("BUSYGROUP Consumer Group name already exists")) {
		t.Error("BUSYGROUP should be recognised")
	}
	if isGroupExists(errors.New("ERR something else")) || isGroupExists(nil) {
		t.Error("unexpected match")
	}
}
