package relay

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/shuldan/dispatch/pkg/contracts"
	"github.com/shuldan/dispatch/pkg/dispatcher"
	"github.com/shuldan/dispatch/pkg/queue/broker/memory"
	"github.com/shuldan/dispatch/pkg/queue/broker/redis"
)

type pingEvent struct {
	Message string `json:"message"`
}

func (pingEvent) Kind() dispatcher.Kind { return "test.ping" }

type pointerPing struct {
	N int `json:"n"`
}

func (*pointerPing) Kind() dispatcher.Kind { return "test.pointer_ping" }

type inbox struct {
	mu       sync.Mutex
	messages []string
	origins  []string
}

func (in *inbox) handle(ctx context.Context, e pingEvent) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.messages = append(in.messages, e.Message)
	if env, ok := FromRelay(ctx); ok {
		in.origins = append(in.origins, env.Origin)
	} else {
		in.origins = append(in.origins, "local")
	}
	return nil
}

func (in *inbox) len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.messages)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

type node struct {
	d     *dispatcher.Dispatcher
	relay *Relay
	inbox *inbox
}

func newNode(t *testing.T, b contracts.Broker, origin string) *node {
	t.Helper()
	d := dispatcher.New()
	codecs := NewCodecs()
	if err := Register[pingEvent](codecs); err != nil {
		t.Fatalf("Register codec: %v", err)
	}
	r := New(d, b, codecs, WithOrigin(origin), WithPrefix("test:"))
	in := &inbox{}
	if _, err := dispatcher.On(d, in, in.handle); err != nil {
		t.Fatalf("On failed: %v", err)
	}
	t.Cleanup(func() {
		_ = r.Close()
		_ = d.Close()
	})
	return &node{d: d, relay: r, inbox: in}
}

func roundTrip(t *testing.T, a, b *node) {
	t.Helper()
	kind := pingEvent{}.Kind()

	if err := a.relay.Forward(kind); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if err := b.relay.Receive(context.Background(), kind); err != nil {
		t.Fatalf("Receive failed: %v", err)
	}

	if err := a.d.Post(context.Background(), pingEvent{Message: "BFMV"}); err != nil {
		t.Fatalf("Post failed: %v", err)
	}

	waitFor(t, func() bool { return b.inbox.len() == 1 })

	b.inbox.mu.Lock()
	defer b.inbox.mu.Unlock()
	if b.inbox.messages[0] != "BFMV" || b.inbox.origins[0] != a.relay.Origin() {
		t.Errorf("unexpected delivery on receiver: %v from %v", b.inbox.messages, b.inbox.origins)
	}
	if a.inbox.len() != 1 {
		t.Errorf("sender should see its own post once, got %d", a.inbox.len())
	}
	if got := a.relay.Stats().Forwarded; got != 1 {
		t.Errorf("expected 1 forwarded, got %d", got)
	}
}

func TestRelay_MemoryRoundTrip(t *testing.T) {
	b := memory.New(nil)
	t.Cleanup(func() { _ = b.Close() })

	roundTrip(t, newNode(t, b, "node-a"), newNode(t, b, "node-b"))
}

func TestRelay_RedisRoundTrip(t *testing.T) {
	srv := miniredis.RunT(t)
	newBroker := func(group string) contracts.Broker {
		client := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
		b := redis.New(client,
			redis.WithConsumerGroup(group),
			redis.WithBlockTimeout(20*time.Millisecond),
			redis.WithClaim(false),
		)
		t.Cleanup(func() {
			_ = b.Close()
			_ = client.Close()
		})
		return b
	}

	roundTrip(t,
		newNode(t, newBroker("node-a"), "node-a"),
		newNode(t, newBroker("node-b"), "node-b"),
	)
}

func TestRelay_SkipsOwnOriginAndDoesNotEcho(t *testing.T) {
	b := memory.New(nil)
	t.Cleanup(func() { _ = b.Close() })
	n := newNode(t, b, "solo")
	kind := pingEvent{}.Kind()

	_ = n.relay.Forward(kind)
	_ = n.relay.Receive(context.Background(), kind)

	_ = n.d.Post(context.Background(), pingEvent{Message: "once"})

	waitFor(t, func() bool { return n.relay.Stats().Skipped == 1 })
	time.Sleep(20 * time.Millisecond)
	if n.inbox.len() != 1 {
		t.Errorf("own envelope must not be re-posted, inbox has %d", n.inbox.len())
	}
	if n.relay.Stats().Received != 0 {
		t.Errorf("nothing should count as received: %+v", n.relay.Stats())
	}
}

func TestRelay_ReceivedEventsAreNotForwardedAgain(t *testing.T) {
	b := memory.New(nil)
	t.Cleanup(func() { _ = b.Close() })
	a := newNode(t, b, "a")
	c := newNode(t, b, "c")
	kind := pingEvent{}.Kind()

	_ = a.relay.Forward(kind)
	_ = c.relay.Forward(kind)
	_ = c.relay.Receive(context.Background(), kind)
	_ = a.relay.Receive(context.Background(), kind)

	_ = a.d.Post(context.Background(), pingEvent{Message: "hop"})

	waitFor(t, func() bool { return c.inbox.len() == 1 })
	time.Sleep(30 * time.Millisecond)

	if got := c.relay.Stats().Forwarded; got != 0 {
		t.Errorf("relayed event was forwarded again %d times", got)
	}
	if a.inbox.len() != 1 {
		t.Errorf("sender received an echo: %d", a.inbox.len())
	}
}

func TestRelay_Validation(t *testing.T) {
	b := memory.New(nil)
	t.Cleanup(func() { _ = b.Close() })
	n := newNode(t, b, "v")

	if err := n.relay.Receive(context.Background(), "unknown.kind"); !errors.Is(err, ErrNoCodec) {
		t.Errorf("expected ErrNoCodec, got %v", err)
	}
	_ = n.relay.Forward("test.ping")
	if err := n.relay.Forward("test.ping"); !errors.Is(err, ErrAlreadyForwarded) {
		t.Errorf("expected ErrAlreadyForwarded, got %v", err)
	}
	_ = n.relay.Receive(context.Background(), "test.ping")
	if err := n.relay.Receive(context.Background(), "test.ping"); !errors.Is(err, ErrAlreadyReceived) {
		t.Errorf("expected ErrAlreadyReceived, got %v", err)
	}

	_ = n.relay.Close()
	if err := n.relay.Forward("test.other"); !errors.Is(err, ErrRelayClosed) {
		t.Errorf("expected ErrRelayClosed, got %v", err)
	}
	if n.d.HasSubscribers("test.ping") && len(n.d.Subscriptions("test.ping")) != 1 {
		t.Error("Close should remove the forwarding subscription")
	}
}

func TestCodecs(t *testing.T) {
	c := NewCodecs()
	if err := Register[pingEvent](c); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := Register[pingEvent](c); !errors.Is(err, ErrCodecExists) {
		t.Errorf("expected ErrCodecExists, got %v", err)
	}
	if err := Register[*pointerPing](c); err != nil {
		t.Fatalf("Register pointer type failed: %v", err)
	}

	if kinds := c.Kinds(); len(kinds) != 2 || kinds[0] != "test.ping" || kinds[1] != "test.pointer_ping" {
		t.Errorf("unexpected kinds %v", kinds)
	}

	e, err := c.Decode(&Envelope{Kind: "test.pointer_ping", Payload: []byte(`{"n":7}`)})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if p, ok := e.(*pointerPing); !ok || p.N != 7 {
		t.Errorf("unexpected decoded event %#v", e)
	}

	if _, err := c.Decode(&Envelope{Kind: "test.ping", Payload: []byte(`{`)}); !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
	if _, err := c.Decode(&Envelope{Kind: "nope"}); !errors.Is(err, ErrNoCodec) {
		t.Errorf("expected ErrNoCodec, got %v", err)
	}
}

func TestRelay_DropsDuplicateEnvelopes(t *testing.T) {
	b := memory.New(nil)
	t.Cleanup(func() { _ = b.Close() })
	n := newNode(t, b, "b")

	env, err := newEnvelope(context.Background(), "a", pingEvent{Message: "again"})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := n.relay.receive(context.Background(), env); err != nil {
			t.Fatalf("receive #%d: %v", i, err)
		}
	}

	if n.inbox.len() != 1 {
		t.Errorf("expected one delivery, got %d", n.inbox.len())
	}
	if got := n.relay.Stats(); got.Duplicates != 2 || got.Received != 1 {
		t.Errorf("unexpected stats %+v", got)
	}
}

func TestRelay_DedupeDisabled(t *testing.T) {
	b := memory.New(nil)
	t.Cleanup(func() { _ = b.Close() })
	d := dispatcher.New()
	t.Cleanup(func() { _ = d.Close() })
	codecs := NewCodecs()
	_ = Register[pingEvent](codecs)
	r := New(d, b, codecs, WithDedupe(0))
	in := &inbox{}
	_, _ = dispatcher.On(d, in, in.handle)

	env, _ := newEnvelope(context.Background(), "a", pingEvent{Message: "twice"})
	_ = r.receive(context.Background(), env)
	_ = r.receive(context.Background(), env)
	if in.len() != 2 {
		t.Errorf("expected both deliveries without dedupe, got %d", in.len())
	}
}

type downBroker struct {
	produced atomic.Int64
}

func (b *downBroker) Produce(context.Context, string, []byte) error {
	b.produced.Add(1)
	return errors.New("connection refused")
}

func (b *downBroker) Consume(ctx context.Context, _ string, _ func([]byte) error) error {
	<-ctx.Done()
	return nil
}

func (b *downBroker) Close() error { return nil }

func TestRelay_BreakerRejectsWhileBrokerIsDown(t *testing.T) {
	var (
		mu     sync.Mutex
		faults []error
	)
	d := dispatcher.New(dispatcher.WithFaultHandler(dispatcher.FaultHandlerFunc(func(f dispatcher.Fault) {
		mu.Lock()
		defer mu.Unlock()
		faults = append(faults, f.Err)
	})))
	t.Cleanup(func() { _ = d.Close() })

	broker := &downBroker{}
	r := New(d, broker, nil, WithBreaker(2, time.Hour))
	t.Cleanup(func() { _ = r.Close() })
	kind := pingEvent{}.Kind()
	if err := r.Forward(kind); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 4; i++ {
		_ = d.Post(context.Background(), pingEvent{Message: "lost"})
	}

	waitFor(t, func() bool { return r.Stats().Rejected == 2 })
	if got := broker.produced.Load(); got != 2 {
		t.Errorf("broker should only be tried until the breaker opens, tried %d times", got)
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(faults) == 4
	})
	mu.Lock()
	defer mu.Unlock()
	if !errors.Is(faults[3], ErrBreakerOpen) {
		t.Errorf("expected ErrBreakerOpen fault, got %v", faults[3])
	}
}
