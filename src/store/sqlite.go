package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps json values in a single key/value table. Change
// notifications are local to the process that performed the write.
type SQLiteStore struct {
	db  *sql.DB
	hub *changeHub
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = "leaguecalc.db"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed opening sqlite")
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "failed to set %s", p)
		}
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed creating kv table")
	}
	return &SQLiteStore{db: db, hub: newChangeHub()}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string, out any) error {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&raw)
	if err == sql.ErrNoRows {
		return errors.Wrap(ErrNotFound, key)
	}
	if err != nil {
		return errors.Wrapf(err, "failed reading %s", key)
	}
	return errors.Wrapf(json.Unmarshal([]byte(raw), out), "failed decoding %s", key)
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "failed encoding %s", key)
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, string(raw), time.Now().UnixMilli(),
	); err != nil {
		return errors.Wrapf(err, "failed writing %s", key)
	}
	s.hub.publish(key, raw)
	return nil
}

func (s *SQLiteStore) OnChange(key string, fn func([]byte)) func() {
	return s.hub.subscribe(key, fn)
}

// Ping is used by the readiness probe.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
