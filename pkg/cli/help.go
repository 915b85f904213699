package cli

import (
	"flag"
	"fmt"
	"sort"
	"strconv"
	"text/template"

	"github.com/shuldan/dispatch/pkg/contracts"
)

const helpCommandName = "help"

var helpTemplate = template.Must(template.New("help").Parse(`Usage: {{ .App }} command [options] [arguments]
{{ range .Groups }}
{{ .Name }}:{{ range .Commands }}
  {{ .PaddedName }}  {{ .Description }}{{ end }}
{{ end }}`))

type HelpCommand struct {
	registry contracts.CliRegistry
	command  string
}

func NewHelpCommand(registry contracts.CliRegistry) contracts.CliCommand {
	return &HelpCommand{registry: registry}
}

func (h *HelpCommand) Name() string { return helpCommandName }

func (h *HelpCommand) Description() string { return "Display help for commands" }

func (h *HelpCommand) Group() string { return contracts.SystemCliGroup }

func (h *HelpCommand) Configure(flags *flag.FlagSet) {
	h.command = ""
	flags.StringVar(&h.command, "command", "", "Show help for specific command")
}

func (h *HelpCommand) Validate(contracts.CliContext) error {
	return nil
}

// Execute prints every group, or one command's flags with -command. A bare
// positional argument works like -command.
func (h *HelpCommand) Execute(ctx contracts.CliContext) error {
	name := h.command
	if name == "" && len(ctx.Args()) > 0 {
		name = ctx.Args()[0]
	}
	if name != "" {
		return h.showCommandHelp(ctx, name)
	}
	return h.showGeneralHelp(ctx)
}

type printableCommand struct {
	PaddedName  string
	Description string
}

type printableGroup struct {
	Name     string
	Commands []printableCommand
}

func (h *HelpCommand) showGeneralHelp(ctx contracts.CliContext) error {
	groups := h.registry.Groups()
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	longest := 0
	for _, commands := range groups {
		for _, cmd := range commands {
			longest = max(longest, len(cmd.Name()))
		}
	}
	formatter := "%-" + strconv.Itoa(longest) + "s"

	data := struct {
		App    string
		Groups []printableGroup
	}{App: "dispatch"}
	if ctx.Ctx() != nil && ctx.Ctx().AppName() != "" {
		data.App = ctx.Ctx().AppName()
	}

	for _, name := range names {
		group := printableGroup{Name: name}
		for _, cmd := range groups[name] {
			group.Commands = append(group.Commands, printableCommand{
				PaddedName:  fmt.Sprintf(formatter, cmd.Name()),
				Description: cmd.Description(),
			})
		}
		data.Groups = append(data.Groups, group)
	}

	return helpTemplate.Execute(ctx.Output(), data)
}

func (h *HelpCommand) showCommandHelp(ctx contracts.CliContext, commandName string) error {
	command, exists := h.registry.Get(commandName)
	if !exists || command == nil {
		return ErrHelpCommandNotFound.WithDetail("command", commandName)
	}

	output := ctx.Output()
	if _, err := fmt.Fprintf(output, "%s - %s\n\nOptions:\n", command.Name(), command.Description()); err != nil {
		return err
	}

	flags := flag.NewFlagSet(command.Name(), flag.ContinueOnError)
	flags.SetOutput(output)
	command.Configure(flags)
	flags.PrintDefaults()
	return nil
}
