package geo

import (
	"fmt"

	"github.com/sells-group/parkrun-transit/internal/model"
)

func testEvent(id int, lat, lon float64) model.ParkrunEvent {
	return model.ParkrunEvent{
		ID:       id,
		Type:     "Feature",
		Geometry: model.NewPoint(lat, lon),
		Properties: model.EventProperties{
			EventName:      fmt.Sprintf("event-%d", id),
			EventLongName:  fmt.Sprintf("Event %d", id),
			EventShortName: fmt.Sprintf("E%d", id),
			CountryCode:    36,
			SeriesID:       1,
			EventLocation:  "Somewhere",
		},
	}
}

func testStop(id string, lat, lon float64) model.TransportStop {
	return model.TransportStop{
		Type:     "Feature",
		Geometry: model.NewPoint(lat, lon),
		Properties: model.StopProperties{
			StopID:   id,
			StopName: "Stop " + id,
			Mode:     "METRO TRAIN",
		},
	}
}

func ids(events []model.EventWithNearestStop) []int {
	out := make([]int, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}
