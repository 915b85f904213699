package config

import (
	"path/filepath"

	"github.com/shuldan/dispatch/pkg/contracts"
)

type module struct {
	loader Loader
}

// NewModule layers defaults, the first readable YAML/JSON file among
// configPaths, .env files among configPaths (plus ./.env) and envPrefix-ed
// environment variables, in that order.
func NewModule(envPrefix string, configPaths ...string) contracts.AppModule {
	loader := NewChainLoader(
		NewStaticLoader(Defaults()),
		NewYamlConfigLoader(configPaths...),
		NewJSONConfigLoader(configPaths...),
		NewDotEnvLoader(envPrefix, dotEnvPaths(configPaths)...),
		NewEnvConfigLoader(envPrefix),
	)
	return &module{loader: NewTemplatedLoader(loader)}
}

func NewModuleWithLoader(loader Loader) contracts.AppModule {
	return &module{loader: loader}
}

func (m *module) Name() string {
	return contracts.ConfigModuleName
}

func (m *module) Register(container contracts.DIContainer) error {
	return container.Factory(contracts.ConfigModuleName, func(c contracts.DIContainer) (any, error) {
		values, err := m.loader.Load()
		if err != nil {
			return nil, err
		}
		return NewMapConfig(values), nil
	})
}

func (m *module) Start(contracts.AppContext) error {
	return nil
}

func (m *module) Stop(contracts.AppContext) error {
	return nil
}

func dotEnvPaths(configPaths []string) []string {
	paths := []string{".env"}
	for _, p := range configPaths {
		if filepath.Base(p) == ".env" || filepath.Ext(p) == ".env" {
			if p != ".env" {
				paths = append(paths, p)
			}
		}
	}
	return paths
}
