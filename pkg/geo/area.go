package geo

import "math"

// RingArea returns the unsigned area of a closed [lon, lat] ring in square
// meter, using an equirectangular projection around the ring's mean latitude.
// https://www.movable-type.co.uk/scripts/latlong.html (Equirectangular approximation)
func RingArea(ring [][]float64) float64 {
	if len(ring) < 4 {
		return 0
	}

	meanLat := 0.0
	for _, v := range ring {
		meanLat += v[1]
	}
	meanLat /= float64(len(ring))
	cosLat := math.Cos(degreeToRadians(meanLat))

	// shoelace over locally projected coordinates
	area := 0.0
	for i := 0; i < len(ring)-1; i++ {
		x1 := ring[i][0] * cosLat * metersPerDegree
		y1 := ring[i][1] * metersPerDegree
		x2 := ring[i+1][0] * cosLat * metersPerDegree
		y2 := ring[i+1][1] * metersPerDegree
		area += x1*y2 - x2*y1
	}
	return math.Abs(area) / 2.0
}
