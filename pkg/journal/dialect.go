package journal

import (
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// dialect holds the few statements that differ between the supported drivers.
type dialect struct {
	driver string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite, DriverPostgres, DriverMySQL:
		return dialect{driver: driver}, nil
	default:
		return dialect{}, ErrUnsupportedDriver.WithDetail("driver", driver)
	}
}

func (d dialect) autoID() string {
	switch d.driver {
	case DriverPostgres:
		return "id BIGSERIAL PRIMARY KEY"
	case DriverMySQL:
		return "id BIGINT AUTO_INCREMENT PRIMARY KEY"
	default:
		return "id INTEGER PRIMARY KEY AUTOINCREMENT"
	}
}

// createIndex returns the index statement. MySQL has no IF NOT EXISTS for
// indexes, so the runner relies on schema_migrations there instead.
func (d dialect) createIndex(name, table string, columns ...string) string {
	ifNotExists := "IF NOT EXISTS "
	if d.driver == DriverMySQL {
		ifNotExists = ""
	}
	return "CREATE INDEX " + ifNotExists + name + " ON " + table + " (" + strings.Join(columns, ", ") + ")"
}

func (d dialect) dropIndex(name, table string) string {
	if d.driver == DriverMySQL {
		return "DROP INDEX " + name + " ON " + table
	}
	return "DROP INDEX IF EXISTS " + name
}

// rebind rewrites ? placeholders into $n for postgres.
func (d dialect) rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
