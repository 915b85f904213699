package journal

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"
)

// MigrationStatus is one row of schema_migrations.
type MigrationStatus struct {
	ID          string
	Description string
	AppliedAt   time.Time
	Batch       int
}

type migrationRunner struct {
	db      *sql.DB
	dialect dialect
}

func newMigrationRunner(db *sql.DB, d dialect) *migrationRunner {
	return &migrationRunner{db: db, dialect: d}
}

func (r *migrationRunner) createMigrationTable(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS schema_migrations (
    id VARCHAR(255) PRIMARY KEY,
    description TEXT NOT NULL,
    applied_at BIGINT NOT NULL,
    batch INTEGER NOT NULL
)`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return ErrMigrationTable.WithCause(err)
	}
	return nil
}

// Migrate applies every migration not yet recorded, in id order, as one
// batch inside one transaction.
func (r *migrationRunner) Migrate(ctx context.Context, migrations []Migration) error {
	if err := r.createMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := r.Status(ctx)
	if err != nil {
		return ErrAppliedMigrations.WithCause(err)
	}
	appliedMap := make(map[string]bool, len(applied))
	nextBatch := 1
	for _, a := range applied {
		appliedMap[a.ID] = true
		if a.Batch >= nextBatch {
			nextBatch = a.Batch + 1
		}
	}

	sorted := append([]Migration(nil), migrations...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})

	var pending []Migration
	for _, m := range sorted {
		if !appliedMap[m.ID] {
			pending = append(pending, m)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	return r.inTx(ctx, func(tx *sql.Tx) error {
		for _, m := range pending {
			if err := r.up(ctx, tx, m, nextBatch); err != nil {
				return ErrMigrationFailed.
					WithDetail("id", m.ID).
					WithDetail("reason", err.Error()).
					WithCause(err)
			}
		}
		return nil
	})
}

// Rollback undoes the last steps applied migrations, newest first. steps <= 0
// rolls back everything.
func (r *migrationRunner) Rollback(ctx context.Context, steps int, migrations []Migration) error {
	applied, err := r.Status(ctx)
	if err != nil {
		return ErrAppliedMigrations.WithCause(err)
	}
	if len(applied) == 0 {
		return ErrNoMigrations
	}

	byID := make(map[string]Migration, len(migrations))
	for _, m := range migrations {
		byID[m.ID] = m
	}

	sort.Slice(applied, func(i, j int) bool {
		return applied[i].Batch > applied[j].Batch ||
			(applied[i].Batch == applied[j].Batch && applied[i].ID > applied[j].ID)
	})
	if steps <= 0 || steps > len(applied) {
		steps = len(applied)
	}

	return r.inTx(ctx, func(tx *sql.Tx) error {
		for _, status := range applied[:steps] {
			if m, ok := byID[status.ID]; ok {
				for _, query := range m.Down {
					if _, err := tx.ExecContext(ctx, query); err != nil {
						return ErrMigrationFailed.
							WithDetail("id", status.ID).
							WithDetail("reason", "rollback query failed: "+err.Error()).
							WithCause(err)
					}
				}
			}
			if _, err := tx.ExecContext(ctx, r.dialect.rebind("DELETE FROM schema_migrations WHERE id = ?"), status.ID); err != nil {
				return ErrMigrationFailed.
					WithDetail("id", status.ID).
					WithDetail("reason", "failed to delete migration record").
					WithCause(err)
			}
		}
		return nil
	})
}

func (r *migrationRunner) Status(ctx context.Context) ([]MigrationStatus, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, description, applied_at, batch FROM schema_migrations ORDER BY batch, id")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []MigrationStatus
	for rows.Next() {
		var (
			s         MigrationStatus
			appliedAt int64
		)
		if err := rows.Scan(&s.ID, &s.Description, &appliedAt, &s.Batch); err != nil {
			return nil, err
		}
		s.AppliedAt = time.UnixMicro(appliedAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *migrationRunner) up(ctx context.Context, tx *sql.Tx, m Migration, batch int) error {
	for _, query := range m.Up {
		if strings.TrimSpace(query) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	_, err := tx.ExecContext(ctx,
		r.dialect.rebind("INSERT INTO schema_migrations (id, description, applied_at, batch) VALUES (?, ?, ?, ?)"),
		m.ID, m.Description, time.Now().UnixMicro(), batch)
	return err
}

func (r *migrationRunner) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ErrBeginTransaction.WithCause(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
