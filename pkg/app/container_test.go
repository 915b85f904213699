package app

import (
	"errors"
	"testing"

	"github.com/shuldan/dispatch/pkg/contracts"
)

func TestContainer_FactoryResolvedOnce(t *testing.T) {
	c := NewContainer()
	calls := 0
	_ = c.Factory("dispatcher", func(contracts.DIContainer) (any, error) {
		calls++
		return &struct{ n int }{n: calls}, nil
	})

	first, err := c.Resolve("dispatcher")
	if err != nil {
		t.Fatal(err)
	}
	second, _ := c.Resolve("dispatcher")

	if first != second || calls != 1 {
		t.Errorf("factory should run once, ran %d times", calls)
	}
}

func TestContainer_Duplicates(t *testing.T) {
	c := NewContainer()

	_ = c.Instance("logger", 1)
	if err := c.Instance("logger", 2); !errors.Is(err, ErrDuplicateInstance) {
		t.Errorf("expected ErrDuplicateInstance, got %v", err)
	}

	f := func(contracts.DIContainer) (any, error) { return nil, nil }
	_ = c.Factory("config", f)
	if err := c.Factory("config", f); !errors.Is(err, ErrDuplicateFactory) {
		t.Errorf("expected ErrDuplicateFactory, got %v", err)
	}
}

func TestContainer_NotFound(t *testing.T) {
	if _, err := NewContainer().Resolve("missing"); !errors.Is(err, ErrValueNotFound) {
		t.Fatalf("expected ErrValueNotFound, got %v", err)
	}
}

func TestContainer_CircularDependency(t *testing.T) {
	c := NewContainer()
	_ = c.Factory("a", func(c contracts.DIContainer) (any, error) { return c.Resolve("b") })
	_ = c.Factory("b", func(c contracts.DIContainer) (any, error) { return c.Resolve("a") })

	if _, err := c.Resolve("a"); !errors.Is(err, ErrCircularDep) {
		t.Fatalf("expected ErrCircularDep, got %v", err)
	}
}

func TestContainer_NestedResolve(t *testing.T) {
	c := NewContainer()
	_ = c.Instance("config", "cfg")
	_ = c.Factory("logger", func(c contracts.DIContainer) (any, error) {
		cfg, err := c.Resolve("config")
		return "logger(" + cfg.(string) + ")", err
	})

	got, err := Resolve[string](c, "logger")
	if err != nil || got != "logger(cfg)" {
		t.Fatalf("unexpected %q %v", got, err)
	}
	if !c.Has("logger") || c.Has("nothing") {
		t.Error("Has reported wrong presence")
	}
}

func TestResolve_WrongType(t *testing.T) {
	c := NewContainer()
	_ = c.Instance("n", 42)

	if _, err := Resolve[string](c, "n"); !errors.Is(err, ErrInvalidInstance) {
		t.Fatalf("expected ErrInvalidInstance, got %v", err)
	}
}

func TestRegistry_DuplicateAndShutdownErrors(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")

	_ = r.Register(&mockModule{name: "a", stop: func(contracts.AppContext) error { return boom }})
	if err := r.Register(&mockModule{name: "a"}); !errors.Is(err, ErrDuplicateModule) {
		t.Fatalf("expected ErrDuplicateModule, got %v", err)
	}

	err := r.Shutdown(nil)
	if !errors.Is(err, ErrModuleStop) || !errors.Is(err, boom) {
		t.Fatalf("expected ErrModuleStop wrapping boom, got %v", err)
	}
}
