// Package commands holds the dispatch binary's CLI commands.
package commands

import (
	"github.com/shuldan/dispatch/pkg/app"
	"github.com/shuldan/dispatch/pkg/contracts"
	"github.com/shuldan/dispatch/pkg/dispatcher"
	"github.com/shuldan/dispatch/pkg/logger"
)

type provider struct{}

// NewProvider returns the click, watch, journal and config commands.
func NewProvider() contracts.CliCommandProvider {
	return provider{}
}

func (provider) CliCommands(contracts.AppContext) ([]contracts.CliCommand, error) {
	return []contracts.CliCommand{
		NewClickCommand(),
		NewWatchCommand(),
		NewJournalCommand(),
		NewConfigCommand(),
	}, nil
}

func resolveDispatcher(ctx contracts.AppContext) (*dispatcher.Dispatcher, error) {
	return app.Resolve[*dispatcher.Dispatcher](ctx.Container(), contracts.DispatcherModuleName)
}

func resolveLogger(ctx contracts.AppContext, command string) contracts.Logger {
	l, err := app.Resolve[contracts.Logger](ctx.Container(), contracts.LoggerModuleName)
	if err != nil {
		return logger.NewNop()
	}
	return l.With("command", command)
}
