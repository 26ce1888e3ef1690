package store

import (
	"time"

	sq "github.com/Masterminds/squirrel"
)

const entriesTable = "cache_entries"

// queries builds the SQL shared by the sqlite and postgres stores; only the
// placeholder format differs.
type queries struct {
	ph sq.PlaceholderFormat
}

func (q queries) get(k Key) (string, []any, error) {
	return sq.Select("value").
		From(entriesTable).
		Where(sq.Eq{"dataset": k.Dataset, "mode": k.Mode}).
		PlaceholderFormat(q.ph).
		ToSql()
}

func (q queries) upsert(k Key, value []byte, now time.Time) (string, []any, error) {
	return sq.Insert(entriesTable).
		Columns("dataset", "mode", "value", "updated_at").
		Values(k.Dataset, k.Mode, value, now).
		Suffix("ON CONFLICT (dataset, mode) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		PlaceholderFormat(q.ph).
		ToSql()
}

func (q queries) remove(k Key) (string, []any, error) {
	return sq.Delete(entriesTable).
		Where(sq.Eq{"dataset": k.Dataset, "mode": k.Mode}).
		PlaceholderFormat(q.ph).
		ToSql()
}

func (q queries) keys() (string, []any, error) {
	return sq.Select("dataset", "mode").
		From(entriesTable).
		OrderBy("dataset", "mode").
		PlaceholderFormat(q.ph).
		ToSql()
}
