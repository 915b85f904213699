package config

import (
	"bytes"
	"os"
	"strings"
	"text/template"
)

// templatedLoader expands "{{ env "REDIS_ADDR" | default "localhost:6379" }}"
// style values after the wrapped loader has produced its map.
type templatedLoader struct {
	loader Loader
}

func NewTemplatedLoader(loader Loader) Loader {
	return &templatedLoader{loader: loader}
}

func (t *templatedLoader) Load() (map[string]any, error) {
	raw, err := t.loader.Load()
	if err != nil {
		return nil, err
	}

	env := environ()
	processed := make(map[string]any, len(raw))
	for k, v := range raw {
		processed[k] = t.processValue(v, env)
	}
	return processed, nil
}

func (t *templatedLoader) processValue(v any, env map[string]string) any {
	switch val := v.(type) {
	case string:
		if !strings.Contains(val, "{{") || !strings.Contains(val, "}}") {
			return val
		}
		result, err := render(val, env)
		if err != nil {
			return val
		}
		return result
	case map[string]any:
		mapped := make(map[string]any, len(val))
		for k, item := range val {
			mapped[k] = t.processValue(item, env)
		}
		return mapped
	case []any:
		result := make([]any, 0, len(val))
		for _, item := range val {
			result = append(result, t.processValue(item, env))
		}
		return result
	default:
		return val
	}
}

var funcMap = template.FuncMap{
	"default": func(def, val any) string {
		if s, ok := val.(string); ok && s != "" {
			return s
		}
		if s, ok := def.(string); ok {
			return s
		}
		return ""
	},
	"env":   os.Getenv,
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
}

func render(input string, env map[string]string) (string, error) {
	tmpl, err := template.New("config").Funcs(funcMap).Parse(input)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err = tmpl.Execute(&buf, env); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func environ() map[string]string {
	data := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			data[k] = v
		}
	}
	return data
}
