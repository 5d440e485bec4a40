package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"

	"github.com/matzehuels/hlsched/pkg/errors"
)

// SQLiteStore implements [Store] on a SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger *log.Logger
}

// NewSQLiteStore opens (or creates) the database at path and migrates it.
// Use ":memory:" for a throwaway store.
func NewSQLiteStore(ctx context.Context, path string, logger *log.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = log.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "open sqlite %s", path)
	}
	// A memory database lives per connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "%s", pragma)
		}
	}
	s := &SQLiteStore{db: db, logger: logger.With("component", "store")}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "migrate %s", path)
	}
	return s, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts r, assigning an ID and timestamp when missing.
func (s *SQLiteStore) SaveRun(ctx context.Context, r *Run) error {
	if err := prepare(r); err != nil {
		return err
	}
	s.logger.Debug("sql", "op", "insert", "table", "runs", "id", r.ID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, dfg, variant, scale_factor, target_latency, actual_latency, delta, status, fus_used, runtime_ms, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.DFG, r.Variant, r.ScaleFactor, r.TargetLatency, r.ActualLatency, r.Delta,
		string(r.Status), r.FUsUsed, r.RuntimeMS, r.Error, r.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "insert run %s", r.ID)
	}
	return nil
}

// ListRuns returns runs matching f, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, f Filter) ([]*Run, error) {
	f.Clamp()
	s.logger.Debug("sql", "op", "list", "table", "runs", "dfg", f.DFG, "variant", f.Variant, "limit", f.Limit)

	var where []string
	var args []any
	if f.DFG != "" {
		where = append(where, "dfg = ?")
		args = append(args, f.DFG)
	}
	if f.Variant != "" {
		where = append(where, "variant = ?")
		args = append(args, f.Variant)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	query := `SELECT id, dfg, variant, scale_factor, target_latency, actual_latency, delta, status, fus_used, runtime_ms, error, created_at FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, f.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list runs")
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var r Run
		var status, createdAt string
		if err := rows.Scan(&r.ID, &r.DFG, &r.Variant, &r.ScaleFactor, &r.TargetLatency, &r.ActualLatency,
			&r.Delta, &status, &r.FUsUsed, &r.RuntimeMS, &r.Error, &createdAt); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "scan run")
		}
		r.Status = Status(status)
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list runs")
	}
	return runs, nil
}

var _ Store = (*SQLiteStore)(nil)
