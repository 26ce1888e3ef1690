package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
	q  queries
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dsn); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrap(err, "sqlite: create directory")
		}
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, q: queries{ph: sq.Question}}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS cache_entries (
	dataset    TEXT NOT NULL,
	mode       TEXT NOT NULL DEFAULT '',
	value      BLOB NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (dataset, mode)
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, key Key) ([]byte, bool, error) {
	query, args, err := s.q.get(key)
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: build get")
	}
	var value []byte
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "sqlite: get %s", key)
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key Key, value []byte) error {
	query, args, err := s.q.upsert(key, value, time.Now().UTC())
	if err != nil {
		return eris.Wrap(err, "sqlite: build set")
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return eris.Wrapf(err, "sqlite: set %s", key)
}

func (s *SQLiteStore) Delete(ctx context.Context, key Key) error {
	query, args, err := s.q.remove(key)
	if err != nil {
		return eris.Wrap(err, "sqlite: build delete")
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return eris.Wrapf(err, "sqlite: delete %s", key)
}

func (s *SQLiteStore) Keys(ctx context.Context) ([]Key, error) {
	query, args, err := s.q.keys()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: build keys")
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list keys")
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.Dataset, &k.Mode); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan key")
		}
		keys = append(keys, k)
	}
	return keys, eris.Wrap(rows.Err(), "sqlite: list keys iterate")
}
