package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/me/workmaster/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// Every :memory: connection is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "journal"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// Append inserts events in a single transaction.
func (s *SQLiteStore) Append(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	s.logger.Debug("sql", "op", "insert", "table", "events", "count", len(events))

	for i := range events {
		if events[i].ID == "" {
			events[i].ID = "ev_" + uuid.New().String()
		}
		if events[i].CreatedAt.IsZero() {
			events[i].CreatedAt = time.Now().UTC()
		}
	}

	return retryOp(defaultRetryConfig, func() error {
		return s.appendTx(ctx, events)
	})
}

func (s *SQLiteStore) appendTx(ctx context.Context, events []model.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO events (id, pass, tick, kind, agent, entry_id, action, resources, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		resources := ev.Resources
		if resources == nil {
			resources = []string{}
		}
		resourcesJSON, err := json.Marshal(resources)
		if err != nil {
			return fmt.Errorf("marshal resources: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			ev.ID, int64(ev.Pass), int64(ev.Tick), string(ev.Kind), ev.Agent, ev.EntryID,
			ev.Action, string(resourcesJSON), ev.Detail, ev.CreatedAt.Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("insert event %s: %w", ev.ID, err)
		}
	}
	return tx.Commit()
}

// List returns events matching opts, oldest first.
func (s *SQLiteStore) List(ctx context.Context, opts model.ListOptions) ([]model.Event, int, error) {
	opts = opts.Clamp()
	s.logger.Debug("sql", "op", "list", "table", "events", "limit", opts.Limit, "offset", opts.Offset)

	var whereClauses []string
	var args []any
	if opts.Kind != "" {
		whereClauses = append(whereClauses, "kind = ?")
		args = append(args, opts.Kind)
	}
	if opts.Agent != "" {
		whereClauses = append(whereClauses, "agent = ?")
		args = append(args, opts.Agent)
	}
	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := `SELECT id, pass, tick, kind, agent, entry_id, action, resources, detail, created_at
		FROM events` + whereSQL + ` ORDER BY seq ASC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, listQuery, append(args, opts.Limit, opts.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		var ev model.Event
		var pass, tick int64
		var kind, resourcesJSON, createdAt string
		if err := rows.Scan(&ev.ID, &pass, &tick, &kind, &ev.Agent, &ev.EntryID,
			&ev.Action, &resourcesJSON, &ev.Detail, &createdAt); err != nil {
			return nil, 0, err
		}
		ev.Pass = uint64(pass)
		ev.Tick = uint64(tick)
		ev.Kind = model.EventKind(kind)
		if err := json.Unmarshal([]byte(resourcesJSON), &ev.Resources); err != nil {
			return nil, 0, fmt.Errorf("unmarshal resources: %w", err)
		}
		if len(ev.Resources) == 0 {
			ev.Resources = nil
		}
		ev.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		events = append(events, ev)
	}
	return events, total, rows.Err()
}
