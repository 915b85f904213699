package main

import (
	"fmt"
	"os"

	"github.com/shuldan/dispatch/internal/commands"
	"github.com/shuldan/dispatch/internal/demo"
	"github.com/shuldan/dispatch/pkg/bootstrap"
	"github.com/shuldan/dispatch/pkg/cli"
	"github.com/shuldan/dispatch/pkg/relay"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	codecs := relay.NewCodecs()
	if err := relay.Register[demo.ButtonFirstEvent](codecs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	cliModule := cli.NewModule(cli.WithCommands(commands.NewProvider()))

	a, err := bootstrap.New("dispatch", version, "DISPATCH_", "dispatch.yaml", "dispatch.json", "config/dispatch.yaml").
		WithLogger().
		WithJournal().
		WithDispatcher().
		WithBroker().
		WithRelay(codecs).
		WithCli(cliModule).
		CreateApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := a.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := cliModule.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	return 0
}
