package journal

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/shuldan/dispatch/pkg/dispatcher"
)

type clickEvent struct {
	Message string `json:"message"`
}

func (clickEvent) Kind() dispatcher.Kind { return "test.click" }

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := OpenDB(context.Background(), DriverSQLite,
		"file:"+name+"?mode=memory&cache=shared",
		WithConnectionPool(1, 1, time.Hour),
		WithRetry(0, 0),
	)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestJournal(t *testing.T, opts ...Option) *Journal {
	t.Helper()
	j, err := New(context.Background(), openTestDB(t), DriverSQLite, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func flush(t *testing.T, j *Journal) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := j.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&count)
	if err != nil {
		t.Fatalf("sqlite_master: %v", err)
	}
	return count == 1
}
