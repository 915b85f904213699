package config

type Loader interface {
	Load() (map[string]any, error)
}

// NewYamlConfigLoader reads the first .yaml/.yml file among paths that exists.
func NewYamlConfigLoader(paths ...string) Loader {
	return &fileConfigLoader{format: yamlFormat, paths: paths}
}

// NewJSONConfigLoader reads the first .json file among paths that exists.
func NewJSONConfigLoader(paths ...string) Loader {
	return &fileConfigLoader{format: jsonFormat, paths: paths}
}

func NewEnvConfigLoader(prefix string) Loader {
	return &envConfigLoader{prefix: prefix}
}

// NewDotEnvLoader reads prefix-ed variables from .env style files.
func NewDotEnvLoader(prefix string, paths ...string) Loader {
	return &dotEnvLoader{prefix: prefix, paths: paths}
}

// NewStaticLoader serves a fixed map; used for built-in defaults and tests.
func NewStaticLoader(values map[string]any) Loader {
	return &staticLoader{values: values}
}

// NewChainLoader merges loaders left to right; later sources override earlier ones.
func NewChainLoader(loaders ...Loader) Loader {
	return &chainLoader{loaders: loaders}
}

type staticLoader struct {
	values map[string]any
}

func (s *staticLoader) Load() (map[string]any, error) {
	return deepCopy(s.values), nil
}

func deepCopy(m map[string]any) map[string]any {
	cp := make(map[string]any, len(m))
	for k, v := range m {
		if sub, ok := v.(map[string]any); ok {
			cp[k] = deepCopy(sub)
			continue
		}
		cp[k] = v
	}
	return cp
}
