package datastructure

// Polygon is a flat ring array: rings[0] is the exterior, the rest are
// interior holes. Every vertex is a [lon, lat] pair in WGS84 degrees and
// every ring is closed (first vertex == last vertex). No pointer-linked or
// cyclic structures, rings are addressed by index.
type Polygon [][][]float64

func NewPolygon(exterior [][]float64, holes ...[][]float64) Polygon {
	p := make(Polygon, 0, 1+len(holes))
	p = append(p, exterior)
	p = append(p, holes...)
	return p
}

func (p Polygon) Exterior() [][]float64 {
	if len(p) == 0 {
		return nil
	}
	return p[0]
}

func (p Polygon) Holes() [][][]float64 {
	if len(p) <= 1 {
		return nil
	}
	return p[1:]
}

func (p Polygon) NumHoles() int {
	if len(p) <= 1 {
		return 0
	}
	return len(p) - 1
}
