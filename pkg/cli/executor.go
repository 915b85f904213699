package cli

import (
	"fmt"

	"github.com/shuldan/dispatch/pkg/contracts"
)

type cmdExecutor struct {
	parser *cmdParser
}

func newExecutor(parser *cmdParser) *cmdExecutor {
	return &cmdExecutor{parser: parser}
}

// Execute stops early when the app context is already done. A panicking
// command is turned into ErrCommandPanic.
func (e *cmdExecutor) Execute(commandCtx contracts.CliContext) (err error) {
	if err := canceled(commandCtx); err != nil {
		return err
	}
	if len(commandCtx.Args()) == 0 {
		return ErrNoCommandSpecified
	}

	parsed, err := e.parser.Parse(commandCtx.Args(), commandCtx.Output())
	if err != nil {
		return err
	}

	parsedCtx := NewContext(commandCtx.Ctx(), commandCtx.Input(), commandCtx.Output(), parsed.Args)

	defer func() {
		if r := recover(); r != nil {
			err = ErrCommandPanic.
				WithDetail("command", parsed.Name).
				WithDetail("panic", fmt.Sprint(r))
		}
	}()

	if err := parsed.Command.Validate(parsedCtx); err != nil {
		return ErrCommandValidation.WithDetail("command", parsed.Name).WithCause(err)
	}
	if err := canceled(parsedCtx); err != nil {
		return err
	}
	if err := parsed.Command.Execute(parsedCtx); err != nil {
		return ErrCommandExecution.WithDetail("command", parsed.Name).WithCause(err)
	}
	return nil
}

func canceled(ctx contracts.CliContext) error {
	if ctx.Ctx() == nil {
		return nil
	}
	select {
	case <-ctx.Ctx().Ctx().Done():
		return ctx.Ctx().Ctx().Err()
	default:
		return nil
	}
}
