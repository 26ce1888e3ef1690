package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return newPostgresWithPool(mock, nil), mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS cache_entries`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT value FROM cache_entries WHERE dataset = \$1 AND mode = \$2`).
		WithArgs("transport-stops", "METRO TRAM").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow([]byte(`{"data":[]}`)))

	v, ok, err := s.Get(context.Background(), Key{Dataset: "transport-stops", Mode: "METRO TRAM"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"data":[]}`, string(v))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT value FROM cache_entries`).
		WithArgs("parkrun-events", "").
		WillReturnError(pgx.ErrNoRows)

	v, ok, err := s.Get(context.Background(), Key{Dataset: "parkrun-events"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT value FROM cache_entries`).
		WithArgs("parkrun-events", "").
		WillReturnError(errors.New("connection reset"))

	_, _, err := s.Get(context.Background(), Key{Dataset: "parkrun-events"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: get parkrun-events")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Set(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO cache_entries \(dataset,mode,value,updated_at\) VALUES \(\$1,\$2,\$3,\$4\) ON CONFLICT \(dataset, mode\) DO UPDATE`).
		WithArgs("parkrun-events", "", []byte("payload"), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.Set(context.Background(), Key{Dataset: "parkrun-events"}, []byte("payload")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Delete(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM cache_entries WHERE dataset = \$1 AND mode = \$2`).
		WithArgs("transport-stops", "").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.Delete(context.Background(), Key{Dataset: "transport-stops"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Keys(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT dataset, mode FROM cache_entries ORDER BY dataset, mode`).
		WillReturnRows(pgxmock.NewRows([]string{"dataset", "mode"}).
			AddRow("parkrun-events", "").
			AddRow("transport-stops", "METRO BUS"))

	keys, err := s.Keys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Key{
		{Dataset: "parkrun-events"},
		{Dataset: "transport-stops", Mode: "METRO BUS"},
	}, keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}
