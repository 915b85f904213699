package contracts

import "time"

// Config is a read-only view over merged configuration addressed by dotted keys.
// Typed getters return the first default when the key is absent or not convertible.
type Config interface {
	Has(key string) bool
	Get(key string) any
	GetString(key string, defaultVal ...string) string
	GetInt(key string, defaultVal ...int) int
	GetInt64(key string, defaultVal ...int64) int64
	GetBool(key string, defaultVal ...bool) bool
	GetDuration(key string, defaultVal ...time.Duration) time.Duration
	GetStringSlice(key string, separator ...string) []string
	GetSub(key string) (Config, bool)

	// All returns a shallow copy of the top-level sections.
	All() map[string]any
}
