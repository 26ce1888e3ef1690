// Package datacache serves the parkrun events and transport stop datasets
// from a persistent cache, fetching them again once an entry is a week old.
package datacache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/parkrun-transit/internal/fetcher"
	"github.com/sells-group/parkrun-transit/internal/store"
)

// Dataset names. They double as the cache key datasets. Per-mode stop groups
// live under their own dataset so no mode, not even an empty one, can collide
// with the full stops entry.
const (
	DatasetEvents      = "parkrun-events"
	DatasetStops       = "transport-stops"
	DatasetStopsByMode = "transport-stops-by-mode"
)

const (
	// DefaultTTL is how long an entry stays fresh.
	DefaultTTL = 7 * 24 * time.Hour
	// DefaultMaxEntryBytes caps whole-dataset entries; larger ones are not stored.
	DefaultMaxEntryBytes = 5 * 1024 * 1024
)

// EventsKey is the cache key of the events document.
func EventsKey() store.Key { return store.Key{Dataset: DatasetEvents} }

// StopsKey is the cache key of the full stops document.
func StopsKey() store.Key { return store.Key{Dataset: DatasetStops} }

// ModeKey is the cache key of the stops of one travel mode. Stops without a
// MODE property are grouped under the empty mode.
func ModeKey(mode string) store.Key { return store.Key{Dataset: DatasetStopsByMode, Mode: mode} }

// Entry is the stored form of one cached payload.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"` // ms since epoch
}

// FetchedAt returns the entry timestamp as a UTC time.
func (e Entry) FetchedAt() time.Time {
	return time.UnixMilli(e.Timestamp).UTC()
}

// FetchError reports a failed download of a dataset.
type FetchError struct {
	Dataset    string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch %s: %d %s", e.Dataset, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("failed to fetch %s: %v", e.Dataset, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func newFetchError(dataset string, err error) *FetchError {
	fe := &FetchError{Dataset: dataset, Err: err}
	var se *fetcher.StatusError
	if errors.As(err, &se) {
		fe.StatusCode = se.StatusCode
	}
	return fe
}

// URLs locates the two upstream datasets.
type URLs struct {
	Events string
	Stops  string
}

// Option configures a Source.
type Option func(*Source)

// WithTTL overrides the freshness window.
func WithTTL(ttl time.Duration) Option {
	return func(s *Source) { s.ttl = ttl }
}

// WithMaxEntryBytes overrides the size guard for whole-dataset entries.
func WithMaxEntryBytes(n int) Option {
	return func(s *Source) { s.maxEntryBytes = n }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Source) { s.now = now }
}

// Source fetches datasets through a persistent cache.
type Source struct {
	fetcher       fetcher.Fetcher
	store         store.Store
	urls          URLs
	ttl           time.Duration
	maxEntryBytes int
	now           func() time.Time
}

// New creates a Source.
func New(f fetcher.Fetcher, st store.Store, urls URLs, opts ...Option) *Source {
	s := &Source{
		fetcher:       f,
		store:         st,
		urls:          urls,
		ttl:           DefaultTTL,
		maxEntryBytes: DefaultMaxEntryBytes,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// readEntry loads and parses the entry for key. Store failures and corrupt
// entries are logged and reported as a miss.
func (s *Source) readEntry(ctx context.Context, key store.Key) (*Entry, bool) {
	raw, ok, err := s.store.Get(ctx, key)
	if err != nil {
		zap.L().Warn("datacache: cache read failed", zap.String("key", key.String()), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		zap.L().Warn("datacache: failed to parse cached entry", zap.String("key", key.String()), zap.Error(err))
		return nil, false
	}
	return &e, true
}

// freshEntry returns the entry for key only if it is younger than the TTL.
func (s *Source) freshEntry(ctx context.Context, key store.Key) (*Entry, bool) {
	e, ok := s.readEntry(ctx, key)
	if !ok {
		return nil, false
	}
	age := s.now().Sub(e.FetchedAt())
	if age >= s.ttl {
		zap.L().Info("datacache: cache expired, fetching fresh data", zap.String("key", key.String()))
		return nil, false
	}
	zap.L().Info("datacache: using cached data",
		zap.String("key", key.String()),
		zap.Int("age_days", int(age/(24*time.Hour))),
	)
	return e, true
}

func (s *Source) download(ctx context.Context, dataset, url string) (json.RawMessage, error) {
	zap.L().Info("datacache: downloading", zap.String("dataset", dataset), zap.String("url", url))

	body, err := s.fetcher.Download(ctx, url)
	if err != nil {
		return nil, newFetchError(dataset, err)
	}
	defer body.Close() //nolint:errcheck

	raw, err := fetcher.ReadJSON(body)
	if err != nil {
		return nil, newFetchError(dataset, err)
	}
	return raw, nil
}

// encodeEntry serializes data with the current timestamp. HTML escaping is
// off so payload bytes survive the round trip unchanged.
func (s *Source) encodeEntry(data json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(Entry{Data: data, Timestamp: s.now().UnixMilli()}); err != nil {
		return nil, eris.Wrap(err, "datacache: encode entry")
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// writeGuarded stores a whole-dataset entry unless it exceeds the size guard.
// Failures are logged; the caller keeps the fetched data either way.
func (s *Source) writeGuarded(ctx context.Context, key store.Key, data json.RawMessage) {
	serialized, err := s.encodeEntry(data)
	if err != nil {
		zap.L().Warn("datacache: failed to cache", zap.String("key", key.String()), zap.Error(err))
		return
	}
	sizeMB := float64(len(serialized)) / (1024 * 1024)
	if len(serialized) > s.maxEntryBytes {
		zap.L().Info("datacache: skipping cache, entry too large",
			zap.String("key", key.String()),
			zap.Float64("size_mb", sizeMB),
		)
		return
	}
	if err := s.store.Set(ctx, key, serialized); err != nil {
		zap.L().Warn("datacache: failed to cache", zap.String("key", key.String()), zap.Error(err))
		return
	}
	zap.L().Info("datacache: cached for one week", zap.String("key", key.String()), zap.Float64("size_mb", sizeMB))
}

// fetchWithCache serves key from the cache when fresh, otherwise downloads
// url, stores it under key and returns it.
func fetchWithCache[T any](ctx context.Context, s *Source, key store.Key, url string) (*T, error) {
	if e, ok := s.freshEntry(ctx, key); ok {
		var v T
		err := json.Unmarshal(e.Data, &v)
		if err == nil {
			return &v, nil
		}
		zap.L().Warn("datacache: failed to decode cached payload", zap.String("key", key.String()), zap.Error(err))
	}

	raw, err := s.download(ctx, key.Dataset, url)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, newFetchError(key.Dataset, eris.Wrap(err, "decode response"))
	}
	s.writeGuarded(ctx, key, raw)
	return &v, nil
}
