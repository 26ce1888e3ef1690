package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parkrun-transit/internal/model"
)

func TestAttachNearestStops_WithinRadius(t *testing.T) {
	t.Parallel()

	events := []model.ParkrunEvent{testEvent(1, -37.81, 144.96)}
	stops := []model.TransportStop{testStop("1", -37.81, 144.96)}

	result := AttachNearestStops(events, stops, 1000)

	require.Len(t, result, 1)
	require.NotNil(t, result[0].NearestStop)
	assert.Zero(t, result[0].NearestStop.Distance)
	assert.Equal(t, "1", result[0].NearestStop.Stop.Properties.StopID)
}

func TestAttachNearestStops_BeyondRadius(t *testing.T) {
	t.Parallel()

	events := []model.ParkrunEvent{testEvent(1, -37.81, 144.96)}
	stops := []model.TransportStop{testStop("1", -38.5, 145.5)}

	result := AttachNearestStops(events, stops, 1000)

	require.Len(t, result, 1)
	assert.Nil(t, result[0].NearestStop)
}

func TestAttachNearestStops_ZeroRadiusExactMatch(t *testing.T) {
	t.Parallel()

	events := []model.ParkrunEvent{testEvent(1, 10, 10)}
	stops := []model.TransportStop{testStop("far", 10.5, 10), testStop("here", 10, 10)}

	result := AttachNearestStops(events, stops, 0)

	require.NotNil(t, result[0].NearestStop)
	assert.Zero(t, result[0].NearestStop.Distance)
	assert.Equal(t, "here", result[0].NearestStop.Stop.Properties.StopID)
}

func TestAttachNearestStops_GlobalMinimumNotFirstWithinRadius(t *testing.T) {
	t.Parallel()

	events := []model.ParkrunEvent{testEvent(1, 0, 0)}
	stops := []model.TransportStop{
		testStop("within-but-farther", 0.005, 0),
		testStop("closest", 0.001, 0),
	}

	result := AttachNearestStops(events, stops, 5000)

	require.NotNil(t, result[0].NearestStop)
	assert.Equal(t, "closest", result[0].NearestStop.Stop.Properties.StopID)
}

func TestAttachNearestStops_TieGoesToFirstStop(t *testing.T) {
	t.Parallel()

	events := []model.ParkrunEvent{testEvent(1, 0, 0)}
	stops := []model.TransportStop{
		testStop("north", 0.01, 0),
		testStop("south", -0.01, 0),
	}

	result := AttachNearestStops(events, stops, 5000)

	require.NotNil(t, result[0].NearestStop)
	assert.Equal(t, "north", result[0].NearestStop.Stop.Properties.StopID)
}

func TestAttachNearestStops_ClosestBeyondRadiusDropsAttachment(t *testing.T) {
	t.Parallel()

	events := []model.ParkrunEvent{testEvent(1, 0, 0)}
	stops := []model.TransportStop{testStop("a", 0.02, 0), testStop("b", 0.03, 0)}

	result := AttachNearestStops(events, stops, 1000)
	assert.Nil(t, result[0].NearestStop)
}

func TestAttachNearestStops_EmptyInputs(t *testing.T) {
	t.Parallel()

	events := []model.ParkrunEvent{testEvent(1, 0, 0), testEvent(2, 1, 1)}

	noStops := AttachNearestStops(events, nil, 1e9)
	require.Len(t, noStops, 2)
	for _, e := range noStops {
		assert.Nil(t, e.NearestStop)
	}

	noEvents := AttachNearestStops(nil, []model.TransportStop{testStop("1", 0, 0)}, 1000)
	assert.Empty(t, noEvents)
}

func TestAttachNearestStops_DoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	events := []model.ParkrunEvent{testEvent(1, 0, 0)}
	stops := []model.TransportStop{testStop("1", 0, 0)}
	eventsBefore := append([]model.ParkrunEvent(nil), events...)
	stopsBefore := append([]model.TransportStop(nil), stops...)

	result := AttachNearestStops(events, stops, 1000)
	result[0].Properties.EventLongName = "changed"

	assert.Equal(t, eventsBefore, events)
	assert.Equal(t, stopsBefore, stops)
}

func TestAttachNearestStops_RecomputeWithSmallerRadius(t *testing.T) {
	t.Parallel()

	events := []model.ParkrunEvent{testEvent(1, 0, 0)}
	stops := []model.TransportStop{testStop("1", 0.005, 0)}

	wide := AttachNearestStops(events, stops, 1000)
	narrow := AttachNearestStops(events, stops, 100)

	assert.NotNil(t, wide[0].NearestStop)
	assert.Nil(t, narrow[0].NearestStop)
}
