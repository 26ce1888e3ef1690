package explorer

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/parkrun-transit/internal/geo"
	"github.com/sells-group/parkrun-transit/internal/model"
)

// Option configures an Explorer.
type Option func(*Explorer)

// WithLocateTimeout overrides how long UseMyLocation waits for a position.
func WithLocateTimeout(d time.Duration) Option {
	return func(e *Explorer) { e.locateTimeout = d }
}

// WithLocateMaxAge overrides the accepted age of a cached position.
func WithLocateMaxAge(d time.Duration) Option {
	return func(e *Explorer) { e.locateMaxAge = d }
}

// Explorer holds the loaded datasets and the current view settings. The
// joined event set is recomputed in full whenever the radius or the stop set
// changes.
type Explorer struct {
	src           DataSource
	locateTimeout time.Duration
	locateMaxAge  time.Duration

	mu     sync.RWMutex
	q      Query
	events []model.ParkrunEvent
	stops  []model.TransportStop
	joined []model.EventWithNearestStop
}

// New creates an Explorer with the initial settings q.
func New(src DataSource, q Query, opts ...Option) (*Explorer, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	e := &Explorer{
		src:           src,
		q:             q,
		locateTimeout: DefaultLocateTimeout,
		locateMaxAge:  DefaultLocateMaxAge,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Load fetches both datasets and computes the join.
func (e *Explorer) Load(ctx context.Context) error {
	e.mu.RLock()
	modes := slices.Clone(e.q.Modes)
	e.mu.RUnlock()

	events, stops, err := Load(ctx, e.src, modes)
	if err != nil {
		return eris.Wrap(err, "explorer: load data")
	}
	zap.L().Info("explorer: data loaded", zap.Int("events", len(events)), zap.Int("stops", len(stops)))

	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = events
	e.stops = stops
	e.rejoin()
	return nil
}

// rejoin must be called with mu held.
func (e *Explorer) rejoin() {
	e.joined = geo.AttachNearestStops(e.events, e.stops, e.q.RadiusKM*1000)
}

// SetRadiusKM changes the search radius and recomputes the join.
func (e *Explorer) SetRadiusKM(km float64) error {
	if km < 0 {
		return eris.Errorf("explorer: radius must not be negative, got %g", km)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.q.RadiusKM = km
	e.rejoin()
	return nil
}

// SetModes reloads the stops for modes. An empty selection is rejected and a
// failed reload leaves the previous selection and stops in place.
func (e *Explorer) SetModes(ctx context.Context, modes []string) error {
	if len(modes) == 0 {
		return ErrNoModes
	}
	stops, err := e.src.TransportStopsByMode(ctx, modes)
	if err != nil {
		return eris.Wrap(err, "explorer: load transport stops")
	}
	zap.L().Info("explorer: transport stops loaded", zap.Int("stops", len(stops)), zap.Strings("modes", modes))

	e.mu.Lock()
	defer e.mu.Unlock()
	e.q.Modes = slices.Clone(modes)
	e.stops = stops
	e.rejoin()
	return nil
}

// SetSort changes the sort key and direction.
func (e *Explorer) SetSort(by geo.SortBy, order geo.SortOrder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.q.SortBy = by
	e.q.Order = order
}

// SetShowAll toggles whether events without a stop in range are listed.
func (e *Explorer) SetShowAll(all bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.q.All = all
}

// SetUserLocation sets or, with nil, clears the user's position.
func (e *Explorer) SetUserLocation(loc *model.Location) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.q.Location = loc
}

// UseMyLocation asks l for a position and switches to my-location sorting.
// On failure the location is cleared, the sort reverts to nearest-stop and
// false is returned.
func (e *Explorer) UseMyLocation(ctx context.Context, l Locator) bool {
	ctx, cancel := context.WithTimeout(ctx, e.locateTimeout)
	defer cancel()

	loc, err := l.Locate(ctx, e.locateMaxAge)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		zap.L().Warn("explorer: could not get location, sorting by nearest stop", zap.Error(err))
		e.q.Location = nil
		e.q.SortBy = geo.SortByNearestStop
		return false
	}
	e.q.Location = &loc
	e.q.SortBy = geo.SortByMyLocation
	return true
}

// Query returns a copy of the current settings.
func (e *Explorer) Query() Query {
	e.mu.RLock()
	defer e.mu.RUnlock()
	q := e.q
	q.Modes = slices.Clone(e.q.Modes)
	return q
}

// View renders the current settings.
func (e *Explorer) View() View {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return render(e.joined, e.q)
}

// Stats returns the summary for the current join.
func (e *Explorer) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return NewStats(e.joined, e.q.RadiusKM)
}

// Event looks up a joined event by id, whether or not it is visible.
func (e *Explorer) Event(id int) (model.EventWithNearestStop, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return FindEvent(e.joined, id)
}
