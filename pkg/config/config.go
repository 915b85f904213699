package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shuldan/dispatch/pkg/contracts"
)

type MapConfig struct {
	values map[string]any
}

var _ contracts.Config = (*MapConfig)(nil)

func NewMapConfig(values map[string]any) contracts.Config {
	if values == nil {
		values = make(map[string]any)
	}
	return &MapConfig{values: values}
}

func (c *MapConfig) Has(key string) bool {
	_, ok := c.find(key)
	return ok
}

func (c *MapConfig) Get(key string) any {
	value, _ := c.find(key)
	return value
}

func (c *MapConfig) GetString(key string, defaultVal ...string) string {
	v, ok := c.find(key)
	if !ok {
		return getFirst(defaultVal)
	}
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (c *MapConfig) GetInt(key string, defaultVal ...int) int {
	v, ok := c.find(key)
	if !ok {
		return getFirst(defaultVal)
	}
	i, ok := toInt64(v)
	if !ok || i < math.MinInt || i > math.MaxInt {
		return getFirst(defaultVal)
	}
	return int(i)
}

func (c *MapConfig) GetInt64(key string, defaultVal ...int64) int64 {
	v, ok := c.find(key)
	if !ok {
		return getFirst(defaultVal)
	}
	if i, ok := toInt64(v); ok {
		return i
	}
	return getFirst(defaultVal)
}

func (c *MapConfig) GetBool(key string, defaultVal ...bool) bool {
	v, ok := c.find(key)
	if !ok {
		return getFirst(defaultVal)
	}
	switch val := v.(type) {
	case bool:
		return val
	case string:
		switch strings.ToLower(val) {
		case "true", "1", "on", "yes", "y":
			return true
		case "false", "0", "off", "no", "n":
			return false
		}
	case int, int64, uint64, float64:
		i, _ := toInt64(val)
		return i != 0
	}
	return getFirst(defaultVal)
}

// GetDuration accepts Go duration strings ("250ms") or a number of seconds.
func (c *MapConfig) GetDuration(key string, defaultVal ...time.Duration) time.Duration {
	v, ok := c.find(key)
	if !ok {
		return getFirst(defaultVal)
	}
	switch val := v.(type) {
	case time.Duration:
		return val
	case string:
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	case float64:
		return time.Duration(val * float64(time.Second))
	default:
		if i, ok := toInt64(val); ok {
			return time.Duration(i) * time.Second
		}
	}
	return getFirst(defaultVal)
}

func (c *MapConfig) GetStringSlice(key string, separator ...string) []string {
	v, ok := c.find(key)
	if !ok || v == nil {
		return nil
	}

	sep := ","
	if len(separator) > 0 {
		sep = separator[0]
	}

	switch val := v.(type) {
	case []string:
		return val
	case []any:
		result := make([]string, len(val))
		for i, item := range val {
			result[i] = fmt.Sprintf("%v", item)
		}
		return result
	case string:
		if val == "" {
			return nil
		}
		parts := strings.Split(val, sep)
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	default:
		return []string{fmt.Sprintf("%v", v)}
	}
}

func (c *MapConfig) GetSub(key string) (contracts.Config, bool) {
	sub, ok := c.find(key)
	if !ok {
		return nil, false
	}
	switch m := sub.(type) {
	case map[string]any:
		return NewMapConfig(m), true
	case map[any]any:
		converted := make(map[string]any, len(m))
		for k, v := range m {
			converted[fmt.Sprintf("%v", k)] = v
		}
		return NewMapConfig(converted), true
	}
	return nil, false
}

func (c *MapConfig) All() map[string]any {
	cp := make(map[string]any, len(c.values))
	for k, v := range c.values {
		cp[k] = v
	}
	return cp
}

func (c *MapConfig) find(path string) (any, bool) {
	var current any = c.values

	for _, k := range strings.Split(path, ".") {
		switch cur := current.(type) {
		case map[string]any:
			next, exists := cur[k]
			if !exists {
				return nil, false
			}
			current = next
		case map[any]any:
			next, exists := cur[k]
			if !exists {
				return nil, false
			}
			current = next
		default:
			return nil, false
		}
	}

	return current, true
}

func toInt64(v any) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int64:
		return val, true
	case uint64:
		if val > math.MaxInt64 {
			return 0, false
		}
		return int64(val), true
	case float64:
		if val < math.MinInt64 || val > math.MaxInt64 {
			return 0, false
		}
		return int64(val), true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		i, err := strconv.ParseInt(val, 10, 64)
		return i, err == nil
	}
	return 0, false
}

func getFirst[T any](values []T) T {
	var zero T
	if len(values) > 0 {
		return values[0]
	}
	return zero
}
