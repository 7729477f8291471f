package buffer

import (
	"github.com/jens-ox/fog-of-war/pkg/datastructure"
	"github.com/jens-ox/fog-of-war/pkg/geo"
)

// BuildDiscs constructs one disc polygon of the given radius around every
// point of the frozen unique point set. No overlap handling happens here,
// dissolving is a separate step.
func BuildDiscs(points []datastructure.Coordinate, radiusM float64, vertices int) []datastructure.Polygon {
	discs := make([]datastructure.Polygon, len(points))
	for i, point := range points {
		discs[i] = datastructure.NewPolygon(geo.DiscRing(point, radiusM, vertices))
	}
	return discs
}
