package geo

import (
	"math"

	"github.com/jens-ox/fog-of-war/pkg/datastructure"
)

const (
	earthRadiusM = 6371007

	// length of one degree of latitude in meter
	metersPerDegree = earthRadiusM * math.Pi / 180.0

	// keeps the longitude step finite near the poles
	minCosLat = 1e-6
)

func degreeToRadians(angle float64) float64 {
	return angle * (math.Pi / 180.0)
}

// CellKey addresses one cell of the dedup grid. Longitude indices are only
// comparable within the same latitude band, which is all the grid needs.
type CellKey struct {
	LatIdx int32
	LonIdx int32
}

// latStep returns the grid step along the latitude axis in degrees.
func latStep(cellMeters float64) float64 {
	return cellMeters / metersPerDegree
}

// lonStep returns the grid step along the longitude axis in degrees for the
// given latitude band. A degree of longitude shrinks with cos(lat), so the
// step is widened by 1/cos(lat) to keep cells approximately square in meter.
func lonStep(cellMeters, bandLat float64) float64 {
	cosLat := math.Cos(degreeToRadians(bandLat))
	if cosLat < minCosLat {
		cosLat = minCosLat
	}
	return cellMeters / (metersPerDegree * cosLat)
}

// CellOf quantizes a position into its grid cell.
func CellOf(lat, lon, cellMeters float64) CellKey {
	latIdx := int32(math.Round(lat / latStep(cellMeters)))
	bandLat := float64(latIdx) * latStep(cellMeters)
	lonIdx := int32(math.Round(lon / lonStep(cellMeters, bandLat)))
	return CellKey{LatIdx: latIdx, LonIdx: lonIdx}
}

// CellCenter returns the canonical representative of a cell. Using the cell
// center (instead of e.g. first-seen) makes merging partial grids from
// concurrent workers commutative: the representative only depends on the key.
func CellCenter(key CellKey, cellMeters float64) datastructure.Coordinate {
	lat := float64(key.LatIdx) * latStep(cellMeters)
	lon := float64(key.LonIdx) * lonStep(cellMeters, lat)
	return datastructure.NewCoordinate(lat, lon)
}
