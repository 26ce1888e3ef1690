package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance_IdenticalPoints(t *testing.T) {
	t.Parallel()

	points := [][2]float64{{-37.81, 144.96}, {0, 0}, {89.9, -179.9}, {-90, 180}}
	for _, p := range points {
		assert.Zero(t, Distance(p[0], p[1], p[0], p[1]))
	}
}

func TestDistance_Symmetric(t *testing.T) {
	t.Parallel()

	pairs := [][4]float64{
		{-37.81, 144.96, -38.5, 145.5},
		{51.5074, -0.1278, 48.8566, 2.3522},
		{0, 179.5, 0, -179.5},
	}
	for _, p := range pairs {
		assert.InDelta(t, Distance(p[0], p[1], p[2], p[3]), Distance(p[2], p[3], p[0], p[1]), 1e-6)
	}
}

func TestDistance_OneDegreeLatitude(t *testing.T) {
	t.Parallel()

	km := Distance(0, 0, 1, 0) / 1000
	assert.Greater(t, km, 110.0)
	assert.Less(t, km, 112.0)
}

func TestDistance_NonNegative(t *testing.T) {
	t.Parallel()

	assert.GreaterOrEqual(t, Distance(-10, -10, 10, 10), 0.0)
	assert.Greater(t, Distance(-37.81, 144.96, -37.8101, 144.96), 0.0)
}
