package commands

import (
	"flag"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/shuldan/dispatch/pkg/app"
	"github.com/shuldan/dispatch/pkg/contracts"
)

const redacted = "******"

// ConfigCommand prints the effective configuration after defaults, files and
// environment have been merged.
type ConfigCommand struct {
	key string
}

func NewConfigCommand() *ConfigCommand {
	return &ConfigCommand{}
}

func (c *ConfigCommand) Name() string { return "config" }

func (c *ConfigCommand) Description() string {
	return "Print the effective configuration as YAML"
}

func (c *ConfigCommand) Group() string { return contracts.SystemCliGroup }

func (c *ConfigCommand) Configure(flags *flag.FlagSet) {
	flags.StringVar(&c.key, "key", "", "dotted key of a single section or value")
}

func (c *ConfigCommand) Validate(contracts.CliContext) error { return nil }

func (c *ConfigCommand) Execute(ctx contracts.CliContext) error {
	cfg, err := app.Resolve[contracts.Config](ctx.Ctx().Container(), contracts.ConfigModuleName)
	if err != nil {
		return err
	}

	var value any = cfg.All()
	if c.key != "" {
		if !cfg.Has(c.key) {
			return ErrUnknownConfigKey.WithDetail("key", c.key)
		}
		value = map[string]any{c.key: cfg.Get(c.key)}
	}

	out, err := yaml.Marshal(redact(value))
	if err != nil {
		return err
	}
	_, err = ctx.Output().Write(out)
	return err
}

// redact hides connection strings and secrets in a copy of v.
func redact(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	cp := make(map[string]any, len(m))
	for k, val := range m {
		if sensitive(k) {
			if s, ok := val.(string); ok && s != "" {
				cp[k] = redacted
				continue
			}
		}
		cp[k] = redact(val)
	}
	return cp
}

func sensitive(key string) bool {
	key = strings.ToLower(key)
	for _, marker := range []string{"dsn", "password", "secret", "token"} {
		if strings.HasSuffix(key, marker) {
			return true
		}
	}
	return false
}
