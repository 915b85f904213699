package journal

import (
	"context"
	"testing"

	"github.com/shuldan/dispatch/pkg/app"
	"github.com/shuldan/dispatch/pkg/config"
	"github.com/shuldan/dispatch/pkg/contracts"
	"github.com/shuldan/dispatch/pkg/dispatcher"
	"github.com/shuldan/dispatch/pkg/logger"
)

func newContainer(t *testing.T, values map[string]any) contracts.DIContainer {
	t.Helper()
	c := app.NewContainer()
	if err := c.Instance(contracts.ConfigModuleName, config.NewMapConfig(values)); err != nil {
		t.Fatalf("config instance: %v", err)
	}
	if err := c.Instance(contracts.LoggerModuleName, logger.NewNop()); err != nil {
		t.Fatalf("logger instance: %v", err)
	}
	return c
}

func TestModule_DisabledRegistersNothing(t *testing.T) {
	c := newContainer(t, map[string]any{"journal": map[string]any{"enabled": false}})
	m := NewModule()
	if err := m.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if c.Has(contracts.JournalModuleName) {
		t.Error("disabled journal should not be registered")
	}
	if err := m.Stop(nil); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

func TestModule_ObservesDispatcher(t *testing.T) {
	c := newContainer(t, map[string]any{
		"journal": map[string]any{
			"enabled":        true,
			"driver":         DriverSQLite,
			"dsn":            "file:journal_module?mode=memory&cache=shared",
			"max_open_conns": 1,
			"retry_attempts": 0,
		},
	})

	jm := NewModule()
	dm := dispatcher.NewModule()
	for _, m := range []contracts.AppModule{jm, dm} {
		if err := m.Register(c); err != nil {
			t.Fatalf("Register %s: %v", m.Name(), err)
		}
	}

	d, err := app.Resolve[*dispatcher.Dispatcher](c, contracts.DispatcherModuleName)
	if err != nil {
		t.Fatalf("resolve dispatcher: %v", err)
	}
	j, err := app.Resolve[*Journal](c, contracts.JournalModuleName)
	if err != nil {
		t.Fatalf("resolve journal: %v", err)
	}

	if err := d.Post(context.Background(), clickEvent{Message: "BFMV"}); err != nil {
		t.Fatal(err)
	}
	flush(t, j)

	posts, err := j.Recent(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 1 {
		t.Errorf("expected the post to be journaled, got %d rows", len(posts))
	}

	if err := d.Close(); err != nil {
		t.Errorf("dispatcher Close: %v", err)
	}
	if err := jm.Stop(nil); err != nil {
		t.Errorf("journal Stop: %v", err)
	}
}
