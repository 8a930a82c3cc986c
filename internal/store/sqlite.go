package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"

	"github.com/i474232898/weather-bot/internal/conversation"
)

// fixed width so updated_at compares correctly as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore keeps sessions in a SQLite file so conversations survive restarts.
type SQLiteStore struct {
	db    *sql.DB
	clock clockwork.Clock
}

// NewSQLiteStore opens (or creates) the database at path and applies the schema.
func NewSQLiteStore(path string, clock clockwork.Clock, logger *slog.Logger) (*SQLiteStore, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite allows one writer; pooled connections fail with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		logger.Warn("could not set WAL mode", "path", path, "error", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
        id TEXT PRIMARY KEY,
        state TEXT NOT NULL,
        updated_at TEXT NOT NULL
    );`,
		`CREATE INDEX IF NOT EXISTS sessions_updated_at ON sessions(updated_at);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	return &SQLiteStore{db: db, clock: clock}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (conversation.Session, error) {
	var (
		sess  conversation.Session
		state string
		ts    string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, state, updated_at FROM sessions WHERE id = ?`, id).
		Scan(&sess.ID, &state, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return conversation.Session{}, ErrNotFound
	}
	if err != nil {
		return conversation.Session{}, fmt.Errorf("get session %s: %w", id, err)
	}

	sess.State = conversation.State(state)
	if !sess.State.Valid() {
		return conversation.Session{}, fmt.Errorf("get session %s: unknown state %q", id, state)
	}
	if t, err := time.Parse(timeLayout, ts); err == nil {
		sess.UpdatedAt = t
	}
	return sess, nil
}

// Put upserts sess and stamps its UpdatedAt with the store clock.
func (s *SQLiteStore) Put(ctx context.Context, sess conversation.Session) error {
	now := s.clock.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions(id, state, updated_at) VALUES(?,?,?)`,
		sess.ID, string(sess.State), now)
	if err != nil {
		return fmt.Errorf("put session %s: %w", sess.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) EvictIdle(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.clock.Now().UTC().Add(-olderThan).Format(timeLayout)
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("evict idle sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("evict idle sessions: %w", err)
	}
	return int(n), nil
}

// Ping reports whether the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
