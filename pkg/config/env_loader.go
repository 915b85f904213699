package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// envConfigLoader maps PREFIX_SECTION__KEY=value to section.key.
type envConfigLoader struct {
	prefix string
}

func (l *envConfigLoader) Load() (map[string]any, error) {
	vars := make(map[string]string)
	for _, env := range os.Environ() {
		if key, value, ok := strings.Cut(env, "="); ok {
			vars[key] = value
		}
	}
	return fromVars(l.prefix, vars), nil
}

// dotEnvLoader reads KEY=value files with the same naming rules as the
// process environment. Files are read in order; later files win.
type dotEnvLoader struct {
	prefix string
	paths  []string
}

func (l *dotEnvLoader) Load() (map[string]any, error) {
	var existing []string
	for _, path := range l.paths {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			existing = append(existing, path)
		}
	}
	if len(existing) == 0 {
		return nil, ErrNoConfigSource.WithDetail("loader", "dotenv")
	}

	vars, err := godotenv.Read(existing...)
	if err != nil {
		return nil, ErrParseDotEnv.
			WithDetail("path", strings.Join(existing, ", ")).
			WithDetail("reason", err.Error()).
			WithCause(err)
	}
	return fromVars(l.prefix, vars), nil
}

func fromVars(prefix string, vars map[string]string) map[string]any {
	config := make(map[string]any)
	for key, value := range vars {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		configKey := strings.ToLower(strings.TrimPrefix(key, prefix))
		configKey = strings.ReplaceAll(configKey, "__", ".")
		if configKey == "" {
			continue
		}
		setNested(config, configKey, typed(value))
	}
	return config
}

func typed(value string) any {
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}

func setNested(m map[string]any, key string, value any) {
	keys := strings.Split(key, ".")
	last := len(keys) - 1

	current := m
	for i, k := range keys {
		if i == last {
			current[k] = value
			return
		}
		next, ok := current[k].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[k] = next
		}
		current = next
	}
}
