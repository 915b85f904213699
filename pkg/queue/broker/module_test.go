package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/shuldan/dispatch/pkg/app"
	"github.com/shuldan/dispatch/pkg/config"
	"github.com/shuldan/dispatch/pkg/contracts"
	"github.com/shuldan/dispatch/pkg/logger"
)

func newContainer(t *testing.T, values map[string]any) contracts.DIContainer {
	t.Helper()
	c := app.NewContainer()
	if err := c.Instance(contracts.ConfigModuleName, config.NewMapConfig(values)); err != nil {
		t.Fatalf("config instance: %v", err)
	}
	if err := c.Instance(contracts.LoggerModuleName, logger.NewNop()); err != nil {
		t.Fatalf("logger instance: %v", err)
	}
	return c
}

func TestModule_MemoryDriverByDefault(t *testing.T) {
	c := newContainer(t, nil)
	m := NewModule()

	if err := m.Register(c); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	b, err := app.Resolve[contracts.Broker](c, contracts.BrokerModuleName)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	received := make(chan []byte, 1)
	_ = b.Consume(context.Background(), "t", func(data []byte) error {
		received <- data
		return nil
	})
	_ = b.Produce(context.Background(), "t", []byte("x"))

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("memory broker did not deliver")
	}

	if err := m.Stop(nil); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestModule_RedisDriver(t *testing.T) {
	srv := miniredis.RunT(t)
	c := newContainer(t, map[string]any{
		"relay": map[string]any{"driver": "redis", "group": "node-1", "enable_claim": false},
		"redis": map[string]any{"addr": srv.Addr()},
	})
	m := NewModule()
	_ = m.Register(c)

	b, err := app.Resolve[contracts.Broker](c, contracts.BrokerModuleName)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if err := b.Produce(context.Background(), "button.first", []byte("{}")); err != nil {
		t.Fatalf("Produce failed: %v", err)
	}
	if !srv.Exists("stream:button.first") {
		t.Error("expected the stream to be created in redis")
	}

	if err := m.Stop(nil); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestModule_UnsupportedDriver(t *testing.T) {
	c := newContainer(t, map[string]any{"relay": map[string]any{"driver": "kafka"}})
	_ = NewModule().Register(c)

	if _, err := c.Resolve(contracts.BrokerModuleName); !errors.Is(err, ErrUnsupportedDriver) {
		t.Errorf("expected ErrUnsupportedDriver, got %v", err)
	}
}

func TestModule_StopWithoutBroker(t *testing.T) {
	if err := NewModule().Stop(nil); err != nil {
		t.Errorf("Stop of an unused module should be a no-op, got %v", err)
	}
}
