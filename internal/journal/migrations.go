package journal

import (
	"context"
	"database/sql"
)

// schema contains the DDL for the journal tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		id         TEXT NOT NULL UNIQUE,
		pass       INTEGER NOT NULL DEFAULT 0,
		tick       INTEGER NOT NULL DEFAULT 0,
		kind       TEXT NOT NULL,
		agent      TEXT NOT NULL DEFAULT '',
		entry_id   TEXT NOT NULL DEFAULT '',
		action     TEXT NOT NULL DEFAULT '',
		resources  TEXT NOT NULL DEFAULT '[]',
		detail     TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind)`,
	`CREATE INDEX IF NOT EXISTS idx_events_agent ON events(agent)`,
	`CREATE INDEX IF NOT EXISTS idx_events_entry_id ON events(entry_id)`,
}

// migrate executes all schema DDL statements.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
