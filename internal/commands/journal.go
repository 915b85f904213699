package commands

import (
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/shuldan/dispatch/pkg/app"
	"github.com/shuldan/dispatch/pkg/contracts"
	"github.com/shuldan/dispatch/pkg/journal"
)

type JournalCommand struct {
	limit      int
	faults     bool
	migrations bool
	reset      bool
}

func NewJournalCommand() *JournalCommand {
	return &JournalCommand{}
}

func (c *JournalCommand) Name() string { return "journal" }

func (c *JournalCommand) Description() string {
	return "Print recent posts or faults from the journal"
}

func (c *JournalCommand) Group() string { return contracts.JournalCliGroup }

func (c *JournalCommand) Configure(flags *flag.FlagSet) {
	flags.IntVar(&c.limit, "limit", 20, "number of rows")
	flags.BoolVar(&c.faults, "faults", false, "show faults instead of posts")
	flags.BoolVar(&c.migrations, "migrations", false, "show applied schema migrations")
	flags.BoolVar(&c.reset, "reset", false, "drop all journal rows and recreate the schema")
}

func (c *JournalCommand) Validate(ctx contracts.CliContext) error {
	if c.limit < 1 {
		return ErrInvalidLimit.WithDetail("limit", c.limit)
	}
	if !ctx.Ctx().Container().Has(contracts.JournalModuleName) {
		return ErrJournalDisabled
	}
	return nil
}

func (c *JournalCommand) Execute(ctx contracts.CliContext) error {
	j, err := app.Resolve[*journal.Journal](ctx.Ctx().Container(), contracts.JournalModuleName)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(ctx.Output(), 0, 4, 2, ' ', 0)
	switch {
	case c.reset:
		if err := j.Reset(ctx.Ctx().Ctx()); err != nil {
			return err
		}
		_, err = fmt.Fprintln(ctx.Output(), "journal reset")
		return err
	case c.migrations:
		status, err := j.Migrations(ctx.Ctx().Ctx())
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, "ID\tBATCH\tAPPLIED\tDESCRIPTION")
		for _, m := range status {
			_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
				m.ID, m.Batch, m.AppliedAt.Format(time.RFC3339), m.Description)
		}
		return w.Flush()
	case c.faults:
		rows, err := j.Faults(ctx.Ctx().Ctx(), c.limit)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, "TIME\tPOST\tKIND\tREASON\tSUBSCRIBER\tCONTEXT\tERROR")
		for _, f := range rows {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				f.FaultedAt.Format(time.RFC3339), short(f.PostID), f.Kind, f.Reason,
				f.Subscriber, f.Context, f.Error)
		}
		return w.Flush()
	}

	rows, err := j.Recent(ctx.Ctx().Ctx(), c.limit)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w, "TIME\tPOST\tKIND\tMATCHED\tDELIVERED\tORIGIN\tPAYLOAD")
	for _, p := range rows {
		origin := p.Origin
		if origin == "" {
			origin = "local"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			p.PostedAt.Format(time.RFC3339), short(p.PostID), p.Kind, p.Matched,
			p.Delivered, short(origin), p.Payload)
	}
	return w.Flush()
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
