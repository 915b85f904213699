package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/shuldan/dispatch/pkg/errors"
)

// fileFormat decodes one family of config files identified by extension.
type fileFormat struct {
	name       string
	extensions []string
	decode     func([]byte, *map[string]any) error
	parseErr   *errors.Error
}

var (
	yamlFormat = fileFormat{
		name:       "yaml",
		extensions: []string{".yaml", ".yml"},
		decode: func(data []byte, out *map[string]any) error {
			return yaml.UnmarshalWithOptions(data, out, yaml.UseJSONUnmarshaler())
		},
		parseErr: ErrParseYAML,
	}
	jsonFormat = fileFormat{
		name:       "json",
		extensions: []string{".json"},
		decode: func(data []byte, out *map[string]any) error {
			return json.Unmarshal(data, out)
		},
		parseErr: ErrParseJSON,
	}
)

func (f fileFormat) matches(path string) bool {
	return slices.Contains(f.extensions, strings.ToLower(filepath.Ext(path)))
}

type fileConfigLoader struct {
	format fileFormat
	paths  []string
}

// Load decodes the first existing file among paths whose extension belongs to the format.
// A file that exists but does not parse is an error; later paths are not tried.
func (l *fileConfigLoader) Load() (map[string]any, error) {
	for _, path := range l.paths {
		if !l.format.matches(path) {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var values map[string]any
		if err := l.format.decode(data, &values); err != nil {
			return nil, l.format.parseErr.
				WithDetail("path", path).
				WithDetail("reason", err.Error()).
				WithCause(err)
		}
		if values == nil {
			values = make(map[string]any)
		}
		return values, nil
	}

	return nil, ErrNoConfigSource.WithDetail("loader", l.format.name)
}
