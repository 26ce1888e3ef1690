package geo

import (
	"math"

	"github.com/sells-group/parkrun-transit/internal/model"
)

// AttachNearestStops joins every event with its closest stop. The stop is
// attached only when it lies within maxDistanceMeters. Ties go to the stop
// that appears first in stops. Neither input is modified; attachments point
// into the stops slice.
func AttachNearestStops(events []model.ParkrunEvent, stops []model.TransportStop, maxDistanceMeters float64) []model.EventWithNearestStop {
	out := make([]model.EventWithNearestStop, len(events))
	for i, event := range events {
		out[i] = model.EventWithNearestStop{ParkrunEvent: event}

		nearest, minDistance := nearestStop(event.Geometry, stops)
		if nearest >= 0 && minDistance <= maxDistanceMeters {
			out[i].NearestStop = &model.NearestStop{
				Stop:     &stops[nearest],
				Distance: minDistance,
			}
		}
	}
	return out
}

// nearestStop scans stops linearly and returns the index of the closest one,
// or -1 when stops is empty.
func nearestStop(p model.Point, stops []model.TransportStop) (int, float64) {
	idx := -1
	minDistance := math.Inf(1)
	for j := range stops {
		d := Distance(p.Lat(), p.Lon(), stops[j].Geometry.Lat(), stops[j].Geometry.Lon())
		if d < minDistance {
			minDistance = d
			idx = j
		}
	}
	return idx, minDistance
}
