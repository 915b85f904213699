package cli

import (
	"io"
	"slices"

	"github.com/shuldan/dispatch/pkg/contracts"
)

type cmdContext struct {
	appCtx contracts.AppContext
	input  io.Reader
	output io.Writer
	args   []string
}

func NewContext(appCtx contracts.AppContext, input io.Reader, output io.Writer, args []string) contracts.CliContext {
	return &cmdContext{
		appCtx: appCtx,
		input:  input,
		output: output,
		args:   slices.Clone(args),
	}
}

func (c *cmdContext) Ctx() contracts.AppContext { return c.appCtx }

func (c *cmdContext) Input() io.Reader { return c.input }

func (c *cmdContext) Output() io.Writer { return c.output }

func (c *cmdContext) Args() []string { return slices.Clone(c.args) }
