package commands

import (
	"flag"
	"fmt"
	"time"

	"github.com/shuldan/dispatch/internal/demo"
	"github.com/shuldan/dispatch/pkg/contracts"
)

// WatchCommand keeps both panels attached and prints each message as it
// arrives, including events relayed from other processes, until the app
// stops.
type WatchCommand struct {
	every time.Duration
}

func NewWatchCommand() *WatchCommand {
	return &WatchCommand{}
}

func (c *WatchCommand) Name() string { return "watch" }

func (c *WatchCommand) Description() string {
	return "Print panel messages as they arrive until interrupted"
}

func (c *WatchCommand) Group() string { return contracts.EventsCliGroup }

func (c *WatchCommand) Configure(flags *flag.FlagSet) {
	flags.DurationVar(&c.every, "every", 0, "also click the button at this interval (0 disables)")
}

func (c *WatchCommand) Validate(contracts.CliContext) error {
	if c.every < 0 {
		return ErrInvalidInterval.WithDetail("every", c.every.String())
	}
	return nil
}

func (c *WatchCommand) Execute(ctx contracts.CliContext) error {
	d, err := resolveDispatcher(ctx.Ctx())
	if err != nil {
		return err
	}
	log := resolveLogger(ctx.Ctx(), c.Name())

	activity := demo.NewActivity(d, log, demo.WithEcho(ctx.Output()))
	if err := activity.Create(); err != nil {
		return err
	}
	defer func() { _ = activity.Stop() }()

	if _, err := fmt.Fprintln(ctx.Output(), "watching for button events, press Ctrl+C to stop"); err != nil {
		return err
	}

	done := ctx.Ctx().Ctx().Done()
	var tick <-chan time.Time
	if c.every > 0 {
		ticker := time.NewTicker(c.every)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-done:
			return nil
		case <-tick:
			if err := activity.Click(ctx.Ctx().Ctx()); err != nil {
				log.Warn("click failed", "error", err)
			}
		}
	}
}
