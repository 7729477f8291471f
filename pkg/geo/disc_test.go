package geo

import (
	"math"
	"testing"

	"github.com/jens-ox/fog-of-war/pkg/datastructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscRingIsClosed(t *testing.T) {
	ring := DiscRing(datastructure.NewCoordinate(52.0, 13.0), 100, 48)
	require.Len(t, ring, 49)
	assert.Equal(t, ring[0], ring[len(ring)-1])
}

func TestDiscRingAreaApproximatesCircle(t *testing.T) {
	// a 48-vertex ring is inscribed, so its area is slightly below pi*r^2
	// but must stay within 1%
	for _, tc := range []struct {
		lat, lon float64
		radius   float64
	}{
		{0, 0, 100},
		{0, 0, 1000},
		{60, 25, 100},
		{-45, 170, 1000},
	} {
		ring := DiscRing(datastructure.NewCoordinate(tc.lat, tc.lon), tc.radius, 48)
		area := RingArea(ring)
		expected := math.Pi * tc.radius * tc.radius
		assert.InEpsilon(t, expected, area, 0.01, "disc at (%.0f, %.0f) r=%.0f", tc.lat, tc.lon, tc.radius)
	}
}

func TestDiscRingRadiusHoldsAtHighLatitude(t *testing.T) {
	center := datastructure.NewCoordinate(68.0, 18.0)
	ring := DiscRing(center, 500, 48)

	for _, v := range ring {
		dist := datastructure.HaversineDistance(center.Lat(), center.Lon(), v[1], v[0])
		assert.InDelta(t, 500, dist, 1.0)
	}
}

func TestRingAreaDegenerate(t *testing.T) {
	assert.Zero(t, RingArea(nil))
	assert.Zero(t, RingArea([][]float64{{0, 0}, {1, 1}, {0, 0}}))
}
