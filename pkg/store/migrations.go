package store

import (
	"context"
	"database/sql"
	"strings"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id             TEXT PRIMARY KEY,
		dfg            TEXT NOT NULL,
		variant        TEXT NOT NULL DEFAULT '',
		scale_factor   REAL NOT NULL DEFAULT 1,
		target_latency INTEGER NOT NULL DEFAULT 0,
		actual_latency INTEGER NOT NULL,
		delta          INTEGER NOT NULL DEFAULT 0,
		status         TEXT NOT NULL,
		fus_used       INTEGER NOT NULL DEFAULT 0,
		runtime_ms     REAL NOT NULL DEFAULT 0,
		created_at     TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_dfg_variant ON runs(dfg, variant)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
}

// alterStatements add columns introduced after the first schema; SQLite
// has no ADD COLUMN IF NOT EXISTS.
var alterStatements = []struct {
	table    string
	column   string
	alterSQL string
	indexSQL string
}{
	{
		table:    "runs",
		column:   "error",
		alterSQL: "ALTER TABLE runs ADD COLUMN error TEXT NOT NULL DEFAULT ''",
		indexSQL: "CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status)",
	},
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	for _, alter := range alterStatements {
		if err := addColumnIfNotExists(ctx, db, alter.table, alter.column, alter.alterSQL); err != nil {
			return err
		}
		if alter.indexSQL != "" {
			if _, err := db.ExecContext(ctx, alter.indexSQL); err != nil {
				return err
			}
		}
	}
	return nil
}

func addColumnIfNotExists(ctx context.Context, db *sql.DB, table, column, alterSQL string) error {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt *string
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		if strings.EqualFold(name, column) {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, alterSQL)
	return err
}
