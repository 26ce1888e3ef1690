// Package explorer joins events with nearby stops and produces the sorted,
// filtered view the CLI and HTTP surfaces render.
package explorer

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/parkrun-transit/internal/geo"
	"github.com/sells-group/parkrun-transit/internal/model"
)

// DefaultModes is the initial transport mode selection.
var DefaultModes = []string{"METRO TRAIN", "REGIONAL TRAIN", "METRO TRAM", "METRO BUS"}

// DefaultRadiusKM is the initial search radius.
const DefaultRadiusKM = 1.0

// ErrNoModes is returned when a mode selection is empty.
var ErrNoModes = eris.New("select at least one transport mode")

// SplitModes parses a comma separated mode list, dropping blanks.
func SplitModes(s string) []string {
	modes := make([]string, 0)
	for _, m := range strings.Split(s, ",") {
		if m = strings.TrimSpace(m); m != "" {
			modes = append(modes, strings.ToUpper(m))
		}
	}
	return modes
}

// DataSource supplies the two datasets. datacache.Source implements it.
type DataSource interface {
	ParkrunEvents(ctx context.Context) (*model.ParkrunEventsData, error)
	TransportStopsByMode(ctx context.Context, modes []string) ([]model.TransportStop, error)
}

// Query describes one rendering of the event list.
type Query struct {
	RadiusKM float64
	Modes    []string
	SortBy   geo.SortBy
	Order    geo.SortOrder
	Location *model.Location
	// All includes events without a stop in range.
	All bool
}

// DefaultQuery returns the initial view settings.
func DefaultQuery() Query {
	return Query{
		RadiusKM: DefaultRadiusKM,
		Modes:    append([]string(nil), DefaultModes...),
		SortBy:   geo.SortByNearestStop,
		Order:    geo.SortAsc,
	}
}

// Validate checks the query's settings.
func (q Query) Validate() error {
	if q.RadiusKM < 0 {
		return eris.Errorf("explorer: radius must not be negative, got %g", q.RadiusKM)
	}
	if len(q.Modes) == 0 {
		return ErrNoModes
	}
	if _, err := geo.ParseSortBy(string(q.SortBy)); err != nil {
		return err
	}
	if _, err := geo.ParseSortOrder(string(q.Order)); err != nil {
		return err
	}
	if q.Location != nil {
		return ValidateLocation(*q.Location)
	}
	return nil
}

// effectiveSort falls back to nearest-stop when no location is known.
func (q Query) effectiveSort() geo.SortBy {
	if q.SortBy == geo.SortByMyLocation && q.Location == nil {
		return geo.SortByNearestStop
	}
	return q.SortBy
}

// Stats summarises how many events have a stop in range.
type Stats struct {
	NearTransport int     `json:"near_transport" yaml:"near_transport"`
	Total         int     `json:"total" yaml:"total"`
	Percent       float64 `json:"percent" yaml:"percent"`
	RadiusKM      float64 `json:"radius_km" yaml:"radius_km"`
	Text          string  `json:"text" yaml:"text"`
}

var printer = message.NewPrinter(language.English)

// NewStats computes the summary for a joined event set.
func NewStats(events []model.EventWithNearestStop, radiusKM float64) Stats {
	s := Stats{
		NearTransport: geo.CountEventsNearTransport(events),
		Total:         len(events),
		RadiusKM:      radiusKM,
	}
	if s.Total > 0 {
		s.Percent = float64(s.NearTransport) / float64(s.Total) * 100
	}
	s.Text = printer.Sprintf("%d of %d events (%.1f%%) are within %.1fkm of public transport",
		s.NearTransport, s.Total, s.Percent, s.RadiusKM)
	return s
}

// View is a rendered event list.
type View struct {
	Events []model.EventWithNearestStop `json:"events" yaml:"events"`
	Stats  Stats                        `json:"stats" yaml:"stats"`
	Bounds *geo.Bounds                  `json:"bounds,omitempty" yaml:"bounds,omitempty"`
	SortBy geo.SortBy                   `json:"sort_by" yaml:"sort_by"`
}

// BuildView joins events with stops under q and returns the sorted view.
func BuildView(events []model.ParkrunEvent, stops []model.TransportStop, q Query) View {
	joined := geo.AttachNearestStops(events, stops, q.RadiusKM*1000)
	return render(joined, q)
}

func render(joined []model.EventWithNearestStop, q Query) View {
	visible := joined
	if !q.All {
		visible = geo.FilterNearTransport(joined)
	}
	by := q.effectiveSort()
	v := View{
		Events: geo.SortEvents(visible, by, q.Order, q.Location),
		Stats:  NewStats(joined, q.RadiusKM),
		SortBy: by,
	}
	if b, ok := geo.BoundsOf(v.Events); ok {
		v.Bounds = &b
	}
	return v
}

// Load fetches events and the stops of modes concurrently.
func Load(ctx context.Context, src DataSource, modes []string) ([]model.ParkrunEvent, []model.TransportStop, error) {
	var (
		events []model.ParkrunEvent
		stops  []model.TransportStop
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := src.ParkrunEvents(gctx)
		if err != nil {
			return err
		}
		events = data.Events.Features
		return nil
	})
	g.Go(func() error {
		var err error
		stops, err = src.TransportStopsByMode(gctx, modes)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return events, stops, nil
}

// Build loads the datasets for q and renders them.
func Build(ctx context.Context, src DataSource, q Query) (View, error) {
	if err := q.Validate(); err != nil {
		return View{}, err
	}
	events, stops, err := Load(ctx, src, q.Modes)
	if err != nil {
		return View{}, err
	}
	return BuildView(events, stops, q), nil
}

// FindEvent returns the event with the given id.
func FindEvent(events []model.EventWithNearestStop, id int) (model.EventWithNearestStop, bool) {
	for _, e := range events {
		if e.ID == id {
			return e, true
		}
	}
	return model.EventWithNearestStop{}, false
}

var modeIcons = map[string]string{
	"REGIONAL TRAIN":   "🚆",
	"METRO TRAIN":      "🚇",
	"INTERSTATE TRAIN": "🚆",
	"METRO TRAM":       "🚊",
	"METRO BUS":        "🚌",
	"REGIONAL BUS":     "🚌",
	"REGIONAL COACH":   "🚌",
	"SKYBUS":           "🚌",
}

// ModeIcon returns the symbol shown next to a stop of the given mode.
func ModeIcon(mode string) string {
	if icon, ok := modeIcons[strings.ToUpper(mode)]; ok {
		return icon
	}
	return "🚏"
}
