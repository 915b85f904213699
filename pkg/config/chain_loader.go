package config

import "github.com/shuldan/dispatch/pkg/errors"

type chainLoader struct {
	loaders []Loader
}

// Load skips sources that are simply absent and fails on anything else,
// so a malformed file is never silently replaced by defaults.
func (c *chainLoader) Load() (map[string]any, error) {
	final := make(map[string]any)
	found := false

	for _, loader := range c.loaders {
		values, err := loader.Load()
		if errors.Is(err, ErrNoConfigSource) {
			continue
		}
		if err != nil {
			return nil, err
		}
		found = true
		mergeMaps(final, values)
	}

	if !found {
		return nil, ErrNoConfigSource.WithDetail("loader", "chain")
	}
	return final, nil
}

func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		srcMap, ok := v.(map[string]any)
		if !ok {
			dst[k] = v
			continue
		}
		dstMap, ok := dst[k].(map[string]any)
		if !ok {
			dstMap = make(map[string]any, len(srcMap))
			dst[k] = dstMap
		}
		mergeMaps(dstMap, srcMap)
	}
}
