package contracts

import (
	"flag"
	"io"
)

// Help output groups commands under these names.
const (
	SystemCliGroup  = "system"
	EventsCliGroup  = "events"
	JournalCliGroup = "journal"
)

type CliContext interface {
	Ctx() AppContext
	Input() io.Reader
	Output() io.Writer
	Args() []string
}

// CliCommand is one subcommand of the binary. The executor calls Configure
// with a fresh FlagSet, parses the arguments, then Validate and Execute.
type CliCommand interface {
	Name() string
	Description() string
	Group() string
	Configure(flags *flag.FlagSet)
	Validate(ctx CliContext) error
	Execute(ctx CliContext) error
}

type CliRegistry interface {
	Register(command CliCommand) error
	Get(name string) (CliCommand, bool)
	Groups() map[string][]CliCommand
}

type Cli interface {
	Register(cmd CliCommand) error
	Run(ctx CliContext) error
}

// CliCommandProvider lets the cli module collect commands once the container is ready.
type CliCommandProvider interface {
	CliCommands(ctx AppContext) ([]CliCommand, error)
}
