package datastructure

type Coordinate struct {
	lat float64
	lon float64
}

func (c Coordinate) Lat() float64 {
	return c.lat
}

func (c Coordinate) Lon() float64 {
	return c.lon
}

func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{
		lat: lat,
		lon: lon,
	}
}

func NewCoordinates(lat, lon []float64) []Coordinate {
	coords := make([]Coordinate, len(lat))
	for i := range lat {
		coords[i] = NewCoordinate(lat[i], lon[i])
	}
	return coords
}

// GeoPoint is one decoded track point. The timestamp is only used for
// adapter-internal ordering, never for dedup or geometry.
type GeoPoint struct {
	coord  Coordinate
	unixMs int64 // 0 = source carried no timestamp
}

func NewGeoPoint(lat, lon float64, unixMs int64) GeoPoint {
	return GeoPoint{
		coord:  NewCoordinate(lat, lon),
		unixMs: unixMs,
	}
}

func (g GeoPoint) Coord() Coordinate {
	return g.coord
}

func (g GeoPoint) Lat() float64 {
	return g.coord.lat
}

func (g GeoPoint) Lon() float64 {
	return g.coord.lon
}

func (g GeoPoint) UnixMs() int64 {
	return g.unixMs
}
