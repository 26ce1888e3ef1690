package geo

import (
	"github.com/twpayne/go-geom"

	"github.com/sells-group/parkrun-transit/internal/model"
)

// Bounds is the map extent covering a set of events and their stops.
type Bounds struct {
	MinLat float64 `json:"min_lat" yaml:"min_lat"`
	MinLon float64 `json:"min_lon" yaml:"min_lon"`
	MaxLat float64 `json:"max_lat" yaml:"max_lat"`
	MaxLon float64 `json:"max_lon" yaml:"max_lon"`
}

// BoundsOf returns the extent of the events and their attached stops. The
// second result is false when events is empty.
func BoundsOf(events []model.EventWithNearestStop) (Bounds, bool) {
	b := geom.NewBounds(geom.XY)
	for _, e := range events {
		b.Extend(pointOf(e.Geometry))
		if e.NearestStop != nil && e.NearestStop.Stop != nil {
			b.Extend(pointOf(e.NearestStop.Stop.Geometry))
		}
	}
	if b.IsEmpty() {
		return Bounds{}, false
	}
	return Bounds{
		MinLon: b.Min(0),
		MinLat: b.Min(1),
		MaxLon: b.Max(0),
		MaxLat: b.Max(1),
	}, true
}

func pointOf(p model.Point) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{p.Lon(), p.Lat()})
}
