package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vegarwe/skistart-lockedup/internal/shared"
)

const DefaultLimit = 50

// Journal implements broadcast.Recorder.
type Journal struct {
	db *sql.DB
}

func Open(path string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := runMigrations(db, logger); err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) Record(ctx context.Context, entry string, at time.Time) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO log_entries (id, at, entry) VALUES (?, ?, ?)`,
		uuid.NewString(), at.UnixMilli(), entry,
	)
	if err != nil {
		return fmt.Errorf("failed to record log entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]shared.JournalEntry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, at, entry FROM log_entries ORDER BY at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query log entries: %w", err)
	}
	defer rows.Close()

	out := []shared.JournalEntry{}
	for rows.Next() {
		var e shared.JournalEntry
		var ms int64
		if err := rows.Scan(&e.ID, &ms, &e.Entry); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		e.At = time.UnixMilli(ms).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM log_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count log entries: %w", err)
	}
	return n, nil
}

// Tables lists the schema's tables by name.
func (j *Journal) Tables(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
