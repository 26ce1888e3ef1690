package datacache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/parkrun-transit/internal/model"
	"github.com/sells-group/parkrun-transit/internal/store"
)

// ParkrunEvents returns the events document.
func (s *Source) ParkrunEvents(ctx context.Context) (*model.ParkrunEventsData, error) {
	return fetchWithCache[model.ParkrunEventsData](ctx, s, EventsKey(), s.urls.Events)
}

// TransportStops returns the full stops document.
func (s *Source) TransportStops(ctx context.Context) (*model.TransportStopsData, error) {
	return fetchWithCache[model.TransportStopsData](ctx, s, StopsKey(), s.urls.Stops)
}

// TransportStopsByMode returns the stops of the requested modes, in the
// order the modes are given. When any requested mode lacks a fresh entry the
// full dataset is downloaded once, split by mode, and every observed mode is
// cached, requested or not.
func (s *Source) TransportStopsByMode(ctx context.Context, modes []string) ([]model.TransportStop, error) {
	result := make([]model.TransportStop, 0)
	var missing []string
	for _, mode := range modes {
		if e, ok := s.freshEntry(ctx, ModeKey(mode)); ok {
			var features []model.TransportStop
			err := json.Unmarshal(e.Data, &features)
			if err == nil {
				result = append(result, features...)
				continue
			}
			zap.L().Warn("datacache: failed to decode cached mode", zap.String("mode", mode), zap.Error(err))
		}
		missing = append(missing, mode)
	}
	if len(missing) == 0 {
		return result, nil
	}

	zap.L().Info("datacache: fetching transport stops, will cache all modes", zap.Strings("missing", missing))
	raw, err := s.download(ctx, DatasetStops, s.urls.Stops)
	if err != nil {
		return nil, err
	}
	var data model.TransportStopsData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, newFetchError(DatasetStops, eris.Wrap(err, "decode response"))
	}

	groups, observed := PartitionByMode(data.Features)
	for _, mode := range observed {
		s.writeMode(ctx, mode, groups[mode])
	}

	out := make([]model.TransportStop, 0)
	for _, mode := range modes {
		out = append(out, groups[mode]...)
	}
	return out, nil
}

// PartitionByMode groups stops by their MODE property. The second result
// lists modes in the order they were first seen.
func PartitionByMode(stops []model.TransportStop) (map[string][]model.TransportStop, []string) {
	groups := make(map[string][]model.TransportStop)
	var order []string
	for _, st := range stops {
		mode := st.Properties.Mode
		if _, ok := groups[mode]; !ok {
			order = append(order, mode)
		}
		groups[mode] = append(groups[mode], st)
	}
	return groups, order
}

// writeMode stores one mode's stops. Per-mode entries bypass the size guard.
func (s *Source) writeMode(ctx context.Context, mode string, features []model.TransportStop) {
	key := ModeKey(mode)
	data, err := json.Marshal(features)
	if err != nil {
		zap.L().Warn("datacache: failed to cache mode", zap.String("mode", mode), zap.Error(err))
		return
	}
	serialized, err := s.encodeEntry(data)
	if err != nil {
		zap.L().Warn("datacache: failed to cache mode", zap.String("mode", mode), zap.Error(err))
		return
	}
	if err := s.store.Set(ctx, key, serialized); err != nil {
		zap.L().Warn("datacache: failed to cache mode", zap.String("mode", mode), zap.Error(err))
		return
	}
	zap.L().Info("datacache: cached mode stops for one week",
		zap.String("mode", mode),
		zap.Int("stops", len(features)),
		zap.Int("size_kb", len(serialized)/1024),
	)
}

// CachedModes lists the modes that have a per-mode entry, fresh or not. The
// group of stops without a MODE is listed as the empty string.
func (s *Source) CachedModes(ctx context.Context) ([]string, error) {
	keys, err := s.store.Keys(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "datacache: list cached modes")
	}
	modes := make([]string, 0)
	for _, k := range keys {
		if k.Dataset == DatasetStopsByMode {
			modes = append(modes, k.Mode)
		}
	}
	return modes, nil
}

// Clear removes the events entry and the full stops entry. Per-mode entries
// are left in place; use ClearModes for those.
func (s *Source) Clear(ctx context.Context) error {
	for _, key := range []store.Key{EventsKey(), StopsKey()} {
		if err := s.store.Delete(ctx, key); err != nil {
			return eris.Wrapf(err, "datacache: clear %s", key)
		}
	}
	zap.L().Info("datacache: cache cleared")
	return nil
}

// ClearModes removes every per-mode stops entry.
func (s *Source) ClearModes(ctx context.Context) error {
	modes, err := s.CachedModes(ctx)
	if err != nil {
		return err
	}
	for _, mode := range modes {
		if err := s.store.Delete(ctx, ModeKey(mode)); err != nil {
			return eris.Wrapf(err, "datacache: clear mode %s", mode)
		}
	}
	zap.L().Info("datacache: mode cache cleared", zap.Int("modes", len(modes)))
	return nil
}

// EntryInfo describes one stored entry.
type EntryInfo struct {
	Key       store.Key     `json:"key"`
	FetchedAt time.Time     `json:"fetched_at"`
	Age       time.Duration `json:"age"`
	Size      int           `json:"size"`
	Fresh     bool          `json:"fresh"`
	Corrupt   bool          `json:"corrupt,omitempty"`
}

// Info reports age and serialized size of every stored entry.
func (s *Source) Info(ctx context.Context) ([]EntryInfo, error) {
	keys, err := s.store.Keys(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "datacache: list entries")
	}
	infos := make([]EntryInfo, 0, len(keys))
	for _, k := range keys {
		raw, ok, err := s.store.Get(ctx, k)
		if err != nil {
			return nil, eris.Wrapf(err, "datacache: read %s", k)
		}
		if !ok {
			continue
		}
		info := EntryInfo{Key: k, Size: len(raw)}
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			info.Corrupt = true
		} else {
			info.FetchedAt = e.FetchedAt()
			info.Age = s.now().Sub(info.FetchedAt)
			info.Fresh = info.Age < s.ttl
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Warm loads the events and the stops of the given modes concurrently,
// fetching only what is missing or stale.
func (s *Source) Warm(ctx context.Context, modes []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.ParkrunEvents(gctx)
		return err
	})
	g.Go(func() error {
		_, err := s.TransportStopsByMode(gctx, modes)
		return err
	})
	return g.Wait()
}
