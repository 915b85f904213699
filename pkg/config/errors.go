package config

import "github.com/shuldan/dispatch/pkg/errors"

var newConfigCode = errors.WithPrefix("CONFIG")

var (
	ErrNoConfigSource = newConfigCode().New("no valid configuration source found. Loader: {{.loader}}")
	ErrParseYAML      = newConfigCode().New("failed to parse YAML file {{.path}}: {{.reason}}")
	ErrParseJSON      = newConfigCode().New("failed to parse JSON file {{.path}}: {{.reason}}")
	ErrParseDotEnv    = newConfigCode().New("failed to parse env file {{.path}}: {{.reason}}")
)
