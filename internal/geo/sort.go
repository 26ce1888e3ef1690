package geo

import (
	"cmp"
	"math"
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/parkrun-transit/internal/model"
)

// SortBy selects the key events are ordered by.
type SortBy string

const (
	SortByNearestStop SortBy = "nearest-stop"
	SortByMyLocation  SortBy = "my-location"
)

// SortOrder selects ascending or descending order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortBy validates a sort key name.
func ParseSortBy(s string) (SortBy, error) {
	switch SortBy(s) {
	case SortByNearestStop, SortByMyLocation:
		return SortBy(s), nil
	}
	return "", eris.Errorf("geo: unknown sort key %q", s)
}

// ParseSortOrder validates a sort order name.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(s) {
	case SortAsc, SortDesc:
		return SortOrder(s), nil
	}
	return "", eris.Errorf("geo: unknown sort order %q", s)
}

// UserDistance returns the distance in meters from loc to the event. The
// second result is false when loc is nil.
func UserDistance(event model.ParkrunEvent, loc *model.Location) (float64, bool) {
	if loc == nil {
		return 0, false
	}
	return Distance(loc.Lat, loc.Lon, event.Geometry.Lat(), event.Geometry.Lon()), true
}

// SortKey returns the value an event is ordered by. Missing values
// (no attachment, no user location) are +Inf.
func SortKey(event model.EventWithNearestStop, by SortBy, loc *model.Location) float64 {
	if by == SortByMyLocation {
		if d, ok := UserDistance(event.ParkrunEvent, loc); ok {
			return d
		}
		return math.Inf(1)
	}
	if event.NearestStop == nil {
		return math.Inf(1)
	}
	return event.NearestStop.Distance
}

// SortEvents returns a stably sorted copy of events. Descending order negates
// the comparison rather than reversing the ascending result, so equal keys
// keep their input order in both directions.
func SortEvents(events []model.EventWithNearestStop, by SortBy, order SortOrder, loc *model.Location) []model.EventWithNearestStop {
	keys := make([]float64, len(events))
	indexed := make([]int, len(events))
	for i := range events {
		indexed[i] = i
		keys[i] = SortKey(events[i], by, loc)
	}

	slices.SortStableFunc(indexed, func(a, b int) int {
		c := cmp.Compare(keys[a], keys[b])
		if order == SortDesc {
			return -c
		}
		return c
	})

	out := make([]model.EventWithNearestStop, len(events))
	for i, idx := range indexed {
		out[i] = events[idx]
	}
	return out
}

// FilterNearTransport returns the events that carry an attachment.
func FilterNearTransport(events []model.EventWithNearestStop) []model.EventWithNearestStop {
	out := make([]model.EventWithNearestStop, 0, len(events))
	for _, e := range events {
		if e.NearestStop != nil {
			out = append(out, e)
		}
	}
	return out
}

// CountEventsNearTransport counts the events that carry an attachment.
func CountEventsNearTransport(events []model.EventWithNearestStop) int {
	n := 0
	for _, e := range events {
		if e.NearestStop != nil {
			n++
		}
	}
	return n
}
