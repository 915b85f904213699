package cli

import (
	"flag"
	"io"

	"github.com/shuldan/dispatch/pkg/contracts"
)

type parsedCommand struct {
	Name    string
	Args    []string
	Flags   *flag.FlagSet
	Command contracts.CliCommand
}

type cmdParser struct {
	registry contracts.CliRegistry
}

func newParser(registry contracts.CliRegistry) *cmdParser {
	return &cmdParser{registry: registry}
}

// Parse resolves args[0] to a command and parses the rest against the
// command's flags. -h and --help alone select the help command.
func (p *cmdParser) Parse(args []string, output io.Writer) (*parsedCommand, error) {
	if len(args) == 0 {
		return nil, ErrNoCommandSpecified
	}

	commandName := args[0]
	if commandName == "-h" || commandName == "--help" {
		commandName = helpCommandName
	}

	command, exists := p.registry.Get(commandName)
	if !exists {
		return nil, ErrUnknownCommand.WithDetail("command", commandName)
	}

	flagSet := flag.NewFlagSet(commandName, flag.ContinueOnError)
	flagSet.SetOutput(output)
	command.Configure(flagSet)

	if err := flagSet.Parse(args[1:]); err != nil {
		return nil, ErrFlagParse.WithDetail("command", commandName).WithCause(err)
	}

	return &parsedCommand{
		Name:    commandName,
		Args:    flagSet.Args(),
		Flags:   flagSet,
		Command: command,
	}, nil
}
