package geo

import (
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/jens-ox/fog-of-war/pkg/datastructure"
)

// DiscRing builds a closed ring of `vertices` [lon, lat] pairs approximating
// all points within radiusM meter of the center. The ring is generated on the
// unit sphere, so the metric radius holds at any latitude (a naive
// degree-radius circle distorts badly away from the equator).
func DiscRing(center datastructure.Coordinate, radiusM float64, vertices int) [][]float64 {
	centerPoint := s2.PointFromLatLng(s2.LatLngFromDegrees(center.Lat(), center.Lon()))
	radius := s1.Angle(radiusM / earthRadiusM)

	loop := s2.RegularLoop(centerPoint, radius, vertices)

	ring := make([][]float64, 0, vertices+1)
	for _, v := range loop.Vertices() {
		ll := s2.LatLngFromPoint(v)
		ring = append(ring, []float64{ll.Lng.Degrees(), ll.Lat.Degrees()})
	}
	// close the ring
	ring = append(ring, []float64{ring[0][0], ring[0][1]})
	return ring
}
