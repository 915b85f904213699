package cli

import (
	"context"
	"flag"
	"sync"
	"time"

	"github.com/shuldan/dispatch/pkg/app"
	"github.com/shuldan/dispatch/pkg/contracts"
)

type testAppContext struct {
	ctx       context.Context
	cancel    context.CancelFunc
	container contracts.DIContainer

	mu      sync.Mutex
	stopped bool
}

func newTestAppContext() *testAppContext {
	ctx, cancel := context.WithCancel(context.Background())
	return &testAppContext{ctx: ctx, cancel: cancel, container: app.NewContainer()}
}

func (c *testAppContext) Ctx() context.Context             { return c.ctx }
func (c *testAppContext) Container() contracts.DIContainer { return c.container }
func (c *testAppContext) AppName() string                  { return "dispatch-test" }
func (c *testAppContext) Version() string                  { return "test" }
func (c *testAppContext) Environment() string              { return "test" }
func (c *testAppContext) StartTime() time.Time             { return time.Time{} }
func (c *testAppContext) StopTime() time.Time              { return time.Time{} }

func (c *testAppContext) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.stopped
}

func (c *testAppContext) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
	c.cancel()
}

type testCommand struct {
	name        string
	description string
	group       string
	validateErr error
	executeErr  error
	panicWith   any

	count    int
	executed bool
	args     []string
}

func (t *testCommand) Name() string        { return t.name }
func (t *testCommand) Description() string { return t.description }
func (t *testCommand) Group() string       { return t.group }

func (t *testCommand) Configure(flags *flag.FlagSet) {
	flags.IntVar(&t.count, "n", 1, "count")
}

func (t *testCommand) Validate(contracts.CliContext) error {
	return t.validateErr
}

func (t *testCommand) Execute(ctx contracts.CliContext) error {
	if t.panicWith != nil {
		panic(t.panicWith)
	}
	t.executed = true
	t.args = ctx.Args()
	return t.executeErr
}

type provider []contracts.CliCommand

func (p provider) CliCommands(contracts.AppContext) ([]contracts.CliCommand, error) {
	return p, nil
}
