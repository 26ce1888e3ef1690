// Package store persists cache entries in a small key-value store.
package store

import (
	"context"

	"github.com/rotisserie/eris"
)

// Key identifies one stored entry: a dataset, optionally partitioned by
// travel mode. Mode is empty for whole-dataset entries.
type Key struct {
	Dataset string `json:"dataset"`
	Mode    string `json:"mode,omitempty"`
}

// String renders the key in its flat "<dataset>-<mode>" form for logs.
func (k Key) String() string {
	if k.Mode == "" {
		return k.Dataset
	}
	return k.Dataset + "-" + k.Mode
}

// Store is a key-value store with opaque byte values and no native expiry.
type Store interface {
	// Get returns the value for key. The second result is false on a miss.
	Get(ctx context.Context, key Key) ([]byte, bool, error)
	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key Key, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key Key) error
	// Keys lists every stored key.
	Keys(ctx context.Context) ([]Key, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Drivers supported by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open creates and migrates a store for the given driver. dsn is a file path
// for sqlite and a connection string for postgres; memory ignores it.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case DriverMemory:
		s = NewMemory()
	case DriverSQLite:
		s, err = NewSQLite(dsn)
	case DriverPostgres:
		s, err = NewPostgres(ctx, dsn)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
