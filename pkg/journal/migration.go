package journal

import (
	"fmt"
	"strings"
)

// Migration is an ordered set of schema statements with their inverse.
type Migration struct {
	ID          string
	Description string
	Up          []string
	Down        []string
}

type MigrationBuilder struct {
	dialect   dialect
	migration *Migration
}

func createMigration(d dialect, id, description string) *MigrationBuilder {
	return &MigrationBuilder{
		dialect:   d,
		migration: &Migration{ID: id, Description: description},
	}
}

func (b *MigrationBuilder) addUp(query string) {
	b.migration.Up = append(b.migration.Up, query)
}

// addDown prepends so that Down undoes Up in reverse order.
func (b *MigrationBuilder) addDown(query string) {
	b.migration.Down = append([]string{query}, b.migration.Down...)
}

// CreateTable adds an auto-increment id column ahead of columns.
func (b *MigrationBuilder) CreateTable(tableName string, columns ...string) *MigrationBuilder {
	columns = append([]string{b.dialect.autoID()}, columns...)
	b.addUp(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)",
		tableName, strings.Join(columns, ",\n    ")))
	b.addDown(fmt.Sprintf("DROP TABLE IF EXISTS %s", tableName))
	return b
}

func (b *MigrationBuilder) CreateIndex(indexName, tableName string, columns ...string) *MigrationBuilder {
	b.addUp(b.dialect.createIndex(indexName, tableName, columns...))
	b.addDown(b.dialect.dropIndex(indexName, tableName))
	return b
}

func (b *MigrationBuilder) Raw(upQuery, downQuery string) *MigrationBuilder {
	b.addUp(upQuery)
	b.addDown(downQuery)
	return b
}

func (b *MigrationBuilder) Build() Migration {
	return *b.migration
}

// schema is the journal's table layout. Timestamps are unix microseconds so
// every driver scans them the same way.
func schema(d dialect) []Migration {
	return []Migration{
		createMigration(d, "0001_journal_posts", "create journal_posts").
			CreateTable("journal_posts",
				"post_id VARCHAR(64) NOT NULL",
				"kind VARCHAR(255) NOT NULL",
				"matched INTEGER NOT NULL",
				"payload TEXT NOT NULL",
				"origin VARCHAR(64) NOT NULL",
				"posted_at BIGINT NOT NULL",
			).
			CreateIndex("idx_journal_posts_post_id", "journal_posts", "post_id").
			Build(),
		createMigration(d, "0002_journal_deliveries", "create journal_deliveries").
			CreateTable("journal_deliveries",
				"post_id VARCHAR(64) NOT NULL",
				"kind VARCHAR(255) NOT NULL",
				"subscription VARCHAR(64) NOT NULL",
				"subscriber VARCHAR(255) NOT NULL",
				"context VARCHAR(64) NOT NULL",
				"elapsed_us BIGINT NOT NULL",
				"delivered_at BIGINT NOT NULL",
			).
			CreateIndex("idx_journal_deliveries_post_id", "journal_deliveries", "post_id").
			Build(),
		createMigration(d, "0003_journal_faults", "create journal_faults").
			CreateTable("journal_faults",
				"post_id VARCHAR(64) NOT NULL",
				"kind VARCHAR(255) NOT NULL",
				"reason VARCHAR(64) NOT NULL",
				"subscription VARCHAR(64) NOT NULL",
				"subscriber VARCHAR(255) NOT NULL",
				"context VARCHAR(64) NOT NULL",
				"error TEXT NOT NULL",
				"faulted_at BIGINT NOT NULL",
			).
			CreateIndex("idx_journal_faults_reason", "journal_faults", "reason").
			Build(),
	}
}
