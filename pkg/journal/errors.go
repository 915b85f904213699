package journal

import "github.com/shuldan/dispatch/pkg/errors"

var newJournalCode = errors.WithPrefix("JOURNAL")

var (
	ErrUnsupportedDriver    = newJournalCode().New("unsupported journal driver {{.driver}}")
	ErrFailedToOpenDatabase = newJournalCode().New("failed to open {{.driver}} database")
	ErrNilDatabase          = newJournalCode().New("journal needs a database handle")
	ErrMigrationTable       = newJournalCode().New("failed to create schema_migrations table")
	ErrAppliedMigrations    = newJournalCode().New("failed to read applied migrations")
	ErrBeginTransaction     = newJournalCode().New("failed to begin transaction")
	ErrMigrationFailed      = newJournalCode().New("migration {{.id}} failed: {{.reason}}")
	ErrNoMigrations         = newJournalCode().New("no migrations to roll back")
	ErrJournalClosed        = newJournalCode().New("journal is closed")
	ErrWrite                = newJournalCode().New("failed to write {{.count}} journal records")
	ErrQuery                = newJournalCode().New("failed to query {{.table}}")
	ErrInvalidLimit         = newJournalCode().New("limit must be positive, got {{.limit}}")
	ErrJournalNotFound      = newJournalCode().New("journal not found in container")
)
