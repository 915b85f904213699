package config

// Defaults are the values the dispatch binary runs with when no file or
// environment override is present.
func Defaults() map[string]any {
	return map[string]any{
		"logger": map[string]any{
			"level": "info",
			"json":  false,
			"color": true,
		},
		"dispatcher": map[string]any{
			"async_workers": 4,
			"fault_events":  false,
		},
		"relay": map[string]any{
			"enabled":     false,
			"driver":      "memory",
			"prefix":      "dispatch:",
			"kinds":       []any{"button.first"},
			"backoff":     "none",
			"max_retries": 0,
			"dlq":         false,

			"dedupe_size":      1024,
			"breaker_failures": 5,
			"breaker_cooldown": "10s",
		},
		"redis": map[string]any{
			"addr":         "localhost:6379",
			"db":           0,
			"enable_claim": true,
		},
		"journal": map[string]any{
			"enabled":        false,
			"driver":         "sqlite3",
			"dsn":            "file:dispatch.db?cache=shared",
			"max_open_conns": 1,
			"retry_attempts": 3,
			"retry_delay":    "1s",
			"buffer":         1024,
			"batch_size":     64,
		},
	}
}
