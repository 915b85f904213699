package commands

import (
	"context"
	"flag"
	"time"

	"github.com/shuldan/dispatch/internal/demo"
	"github.com/shuldan/dispatch/pkg/contracts"
)

type ClickCommand struct {
	n       int
	timeout time.Duration
}

func NewClickCommand() *ClickCommand {
	return &ClickCommand{}
}

func (c *ClickCommand) Name() string { return "click" }

func (c *ClickCommand) Description() string {
	return "Click the button and print what both panels received"
}

func (c *ClickCommand) Group() string { return contracts.EventsCliGroup }

func (c *ClickCommand) Configure(flags *flag.FlagSet) {
	flags.IntVar(&c.n, "n", 1, "number of clicks")
	flags.DurationVar(&c.timeout, "timeout", 2*time.Second, "how long to wait for the panels")
}

func (c *ClickCommand) Validate(contracts.CliContext) error {
	if c.n < 1 {
		return ErrInvalidCount.WithDetail("n", c.n)
	}
	return nil
}

func (c *ClickCommand) Execute(ctx contracts.CliContext) error {
	d, err := resolveDispatcher(ctx.Ctx())
	if err != nil {
		return err
	}
	log := resolveLogger(ctx.Ctx(), c.Name())

	activity := demo.NewActivity(d, log)
	if err := activity.Create(); err != nil {
		return err
	}
	defer func() { _ = activity.Stop() }()

	for i := 0; i < c.n; i++ {
		if err := activity.Click(ctx.Ctx().Ctx()); err != nil {
			return err
		}
	}
	log.Debug("clicked", "count", c.n)

	waitCtx, cancel := context.WithTimeout(ctx.Ctx().Ctx(), c.timeout)
	defer cancel()
	if err := activity.WaitFor(waitCtx, c.n); err != nil {
		return err
	}
	return activity.Render(ctx.Output())
}
