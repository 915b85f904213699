package app

import (
	"sync"

	"github.com/shuldan/dispatch/pkg/contracts"
)

type factoryFunc = func(c contracts.DIContainer) (any, error)

// container is a name-keyed service locator. Factories run once, on first
// Resolve, and their result is cached as an instance.
type container struct {
	mu        sync.RWMutex
	factories map[string]factoryFunc
	instances map[string]any
}

func (c *container) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, hasFactory := c.factories[name]
	_, hasInstance := c.instances[name]
	return hasFactory || hasInstance
}

func (c *container) Instance(name string, concrete any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.instances[name]; exists {
		return ErrDuplicateInstance.WithDetail("name", name)
	}
	c.instances[name] = concrete
	return nil
}

func (c *container) Factory(name string, factory factoryFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.factories[name]; exists {
		return ErrDuplicateFactory.WithDetail("name", name)
	}
	c.factories[name] = factory
	return nil
}

func (c *container) Resolve(name string) (any, error) {
	return c.resolveWithStack(name, make(map[string]bool))
}

func (c *container) resolveWithStack(name string, resolving map[string]bool) (any, error) {
	c.mu.RLock()
	instance, exists := c.instances[name]
	factory, hasFactory := c.factories[name]
	c.mu.RUnlock()

	if exists {
		return instance, nil
	}
	if resolving[name] {
		return nil, ErrCircularDep.WithDetail("name", name)
	}
	if !hasFactory {
		return nil, ErrValueNotFound.WithDetail("name", name)
	}

	resolving[name] = true
	defer delete(resolving, name)

	instance, err := factory(&containerProxy{container: c, resolving: resolving})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, exists := c.instances[name]; exists {
		return existing, nil
	}
	c.instances[name] = instance
	return instance, nil
}

// containerProxy carries the resolution stack into nested factory calls so
// cycles are detected.
type containerProxy struct {
	container *container
	resolving map[string]bool
}

func (cp *containerProxy) Has(name string) bool {
	return cp.container.Has(name)
}

func (cp *containerProxy) Instance(name string, concrete any) error {
	return cp.container.Instance(name, concrete)
}

func (cp *containerProxy) Factory(name string, factory factoryFunc) error {
	return cp.container.Factory(name, factory)
}

func (cp *containerProxy) Resolve(name string) (any, error) {
	return cp.container.resolveWithStack(name, cp.resolving)
}

// Resolve fetches name from c and asserts it to T.
func Resolve[T any](c contracts.DIContainer, name string) (T, error) {
	var zero T
	raw, err := c.Resolve(name)
	if err != nil {
		return zero, err
	}
	typed, ok := raw.(T)
	if !ok {
		return zero, ErrInvalidInstance.WithDetail("name", name)
	}
	return typed, nil
}
