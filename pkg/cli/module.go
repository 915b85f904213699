package cli

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/shuldan/dispatch/pkg/app"
	"github.com/shuldan/dispatch/pkg/contracts"
	"github.com/shuldan/dispatch/pkg/errors"
)

type ModuleOption func(*Module)

// WithArgs replaces os.Args[1:].
func WithArgs(args []string) ModuleOption {
	return func(m *Module) {
		m.args = args
	}
}

// WithIO replaces stdin and stdout.
func WithIO(input io.Reader, output io.Writer) ModuleOption {
	return func(m *Module) {
		m.input = input
		m.output = output
	}
}

// WithCommands adds commands that are built once the app is running.
func WithCommands(providers ...contracts.CliCommandProvider) ModuleOption {
	return func(m *Module) {
		m.providers = append(m.providers, providers...)
	}
}

// Module runs one command per process. Start launches it in the background
// and stops the app when it returns, so long-running commands still see
// signals and the app's shutdown.
type Module struct {
	args      []string
	input     io.Reader
	output    io.Writer
	providers []contracts.CliCommandProvider

	mu   sync.Mutex
	err  error
	done chan struct{}
}

func NewModule(opts ...ModuleOption) *Module {
	m := &Module{
		args:   os.Args[1:],
		input:  os.Stdin,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Module) Name() string {
	return contracts.CliModuleName
}

func (m *Module) Register(container contracts.DIContainer) error {
	return container.Factory(contracts.CliModuleName, func(contracts.DIContainer) (any, error) {
		r := NewRegistry()
		c := New(r)
		if err := c.Register(NewHelpCommand(r)); err != nil {
			return nil, err
		}
		return c, nil
	})
}

func (m *Module) Start(ctx contracts.AppContext) error {
	c, err := app.Resolve[contracts.Cli](ctx.Container(), contracts.CliModuleName)
	if err != nil {
		return ErrInvalidCliInstance.WithCause(err)
	}
	for _, p := range m.providers {
		commands, err := p.CliCommands(ctx)
		if err != nil {
			return err
		}
		for _, cmd := range commands {
			if err := c.Register(cmd); err != nil {
				return err
			}
		}
	}

	args := m.args
	if len(args) == 0 {
		args = []string{helpCommandName}
	}

	done := make(chan struct{})
	m.mu.Lock()
	m.done = done
	m.mu.Unlock()

	go func() {
		defer close(done)
		err := c.Run(NewContext(ctx, m.input, m.output, args))
		m.mu.Lock()
		m.err = err
		m.mu.Unlock()
		ctx.Stop()
	}()
	return nil
}

// Stop waits for the running command to return.
func (m *Module) Stop(contracts.AppContext) error {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done != nil {
		<-done
	}
	return nil
}

// Err is the command's result once the app has stopped. A command cut short
// by shutdown is not an error.
func (m *Module) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if errors.Is(m.err, context.Canceled) {
		return nil
	}
	return m.err
}
