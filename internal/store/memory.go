package store

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
)

// Memory is a concurrent-safe in-process Store. Values are copied on the way
// in and out.
type Memory struct {
	mu      sync.RWMutex
	entries map[Key][]byte
	hits    atomic.Int64
	misses  atomic.Int64
}

// MemoryStats contains hit/miss counters for a Memory store.
type MemoryStats struct {
	Entries int     `json:"entries"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[Key][]byte)}
}

func (m *Memory) Get(_ context.Context, key Key) ([]byte, bool, error) {
	m.mu.RLock()
	v, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		m.misses.Add(1)
		return nil, false, nil
	}
	m.hits.Add(1)
	return append([]byte(nil), v...), true, nil
}

func (m *Memory) Set(_ context.Context, key Key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *Memory) Keys(_ context.Context) ([]Key, error) {
	m.mu.RLock()
	keys := make([]Key, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	m.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Dataset != keys[j].Dataset {
			return keys[i].Dataset < keys[j].Dataset
		}
		return keys[i].Mode < keys[j].Mode
	})
	return keys, nil
}

func (m *Memory) Migrate(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

// Stats returns hit/miss statistics.
func (m *Memory) Stats() MemoryStats {
	m.mu.RLock()
	entries := len(m.entries)
	m.mu.RUnlock()

	hits := m.hits.Load()
	misses := m.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return MemoryStats{Entries: entries, Hits: hits, Misses: misses, HitRate: hitRate}
}
