package store

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool, for deployments where several
// servers share one cache.
type PostgresStore struct {
	pool    Pool
	q       queries
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return newPostgresWithPool(pool, pool.Close), nil
}

func newPostgresWithPool(pool Pool, closeFn func()) *PostgresStore {
	return &PostgresStore{pool: pool, q: queries{ph: sq.Dollar}, closeFn: closeFn}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS cache_entries (
	dataset    TEXT NOT NULL,
	mode       TEXT NOT NULL DEFAULT '',
	value      BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (dataset, mode)
)`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key Key) ([]byte, bool, error) {
	query, args, err := s.q.get(key)
	if err != nil {
		return nil, false, eris.Wrap(err, "postgres: build get")
	}
	var value []byte
	err = s.pool.QueryRow(ctx, query, args...).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "postgres: get %s", key)
	}
	return value, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, key Key, value []byte) error {
	query, args, err := s.q.upsert(key, value, time.Now().UTC())
	if err != nil {
		return eris.Wrap(err, "postgres: build set")
	}
	_, err = s.pool.Exec(ctx, query, args...)
	return eris.Wrapf(err, "postgres: set %s", key)
}

func (s *PostgresStore) Delete(ctx context.Context, key Key) error {
	query, args, err := s.q.remove(key)
	if err != nil {
		return eris.Wrap(err, "postgres: build delete")
	}
	_, err = s.pool.Exec(ctx, query, args...)
	return eris.Wrapf(err, "postgres: delete %s", key)
}

func (s *PostgresStore) Keys(ctx context.Context) ([]Key, error) {
	query, args, err := s.q.keys()
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build keys")
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list keys")
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.Dataset, &k.Mode); err != nil {
			return nil, eris.Wrap(err, "postgres: scan key")
		}
		keys = append(keys, k)
	}
	return keys, eris.Wrap(rows.Err(), "postgres: list keys iterate")
}
