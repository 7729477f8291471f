package buffer

import (
	"math"

	"github.com/engelsjk/polygol"
	"github.com/jens-ox/fog-of-war/pkg"
	"github.com/jens-ox/fog-of-war/pkg/concurrent"
	"github.com/jens-ox/fog-of-war/pkg/datastructure"
	"github.com/jens-ox/fog-of-war/pkg/geo"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Dissolve unions one radius's disc set into a minimal polygon collection and
// fills interior gaps smaller than one disc area. A naive pairwise union over
// hundreds of thousands of discs is quadratic, so the discs are partitioned
// into square spatial tiles first: union within each tile, then merge tile
// results pairwise until one geometry remains.
func Dissolve(discs []datastructure.Polygon, radiusM float64, workers int, log *zap.Logger) ([]datastructure.Polygon, error) {
	if len(discs) == 0 {
		return nil, nil
	}
	if workers < 1 {
		workers = 1
	}

	tiles := partitionIntoTiles(discs, pkg.DISSOLVE_TILE_FACTOR*radiusM)
	log.Debug("dissolving disc set",
		zap.Float64("radiusM", radiusM),
		zap.Int("discs", len(discs)),
		zap.Int("tiles", len(tiles)),
	)

	merged, err := unionTiles(tiles, workers)
	if err != nil {
		return nil, err
	}

	minHoleArea := math.Pi * radiusM * radiusM
	return explode(merged, minHoleArea), nil
}

// partitionIntoTiles groups discs by the spatial tile of their center.
func partitionIntoTiles(discs []datastructure.Polygon, tileMeters float64) []polygol.Geom {
	groups := make(map[geo.CellKey][]datastructure.Polygon)
	for _, disc := range discs {
		lat, lon := ringCenter(disc.Exterior())
		key := geo.CellOf(lat, lon, tileMeters)
		groups[key] = append(groups[key], disc)
	}

	tiles := make([]polygol.Geom, 0, len(groups))
	for _, group := range groups {
		tile := make(polygol.Geom, len(group))
		for i, disc := range group {
			tile[i] = [][][]float64(disc)
		}
		tiles = append(tiles, tile)
	}
	return tiles
}

func ringCenter(ring [][]float64) (float64, float64) {
	var lat, lon float64
	// last vertex duplicates the first
	n := len(ring) - 1
	if n < 1 {
		return 0, 0
	}
	for _, v := range ring[:n] {
		lon += v[0]
		lat += v[1]
	}
	return lat / float64(n), lon / float64(n)
}

type unionResult struct {
	geom polygol.Geom
	err  error
}

// unionTiles unions every tile's discs concurrently, then reduces the tile
// results in parallel pairwise rounds. Each round halves the number of parts,
// so the merge stays near-linear in total vertex count.
func unionTiles(tiles []polygol.Geom, workers int) (polygol.Geom, error) {
	parts, err := unionRound(tiles, workers, unionWithin)
	if err != nil {
		return nil, err
	}

	for len(parts) > 1 {
		pairs := make([]polygol.Geom, 0, (len(parts)+1)/2)
		for i := 0; i < len(parts); i += 2 {
			if i+1 < len(parts) {
				merged := make(polygol.Geom, 0, len(parts[i])+len(parts[i+1]))
				merged = append(merged, parts[i]...)
				merged = append(merged, parts[i+1]...)
				pairs = append(pairs, merged)
			} else {
				pairs = append(pairs, parts[i])
			}
		}
		parts, err = unionRound(pairs, workers, unionWithin)
		if err != nil {
			return nil, err
		}
	}
	return parts[0], nil
}

// unionWithin unions the (possibly overlapping) polygons of one geometry.
func unionWithin(g polygol.Geom) unionResult {
	if len(g) <= 1 {
		return unionResult{geom: g}
	}
	more := make([]polygol.Geom, len(g)-1)
	for i, poly := range g[1:] {
		more[i] = polygol.Geom{poly}
	}
	out, err := polygol.Union(polygol.Geom{g[0]}, more...)
	if err != nil {
		return unionResult{err: errors.Wrap(err, "polygon union")}
	}
	return unionResult{geom: out}
}

func unionRound(parts []polygol.Geom, workers int, job func(polygol.Geom) unionResult) ([]polygol.Geom, error) {
	if workers > len(parts) {
		workers = len(parts)
	}

	pool := concurrent.NewWorkerPool[polygol.Geom, unionResult](workers, len(parts))
	for _, part := range parts {
		pool.AddJob(part)
	}
	pool.Close()
	pool.Start(job)
	pool.Wait()

	out := make([]polygol.Geom, 0, len(parts))
	for res := range pool.CollectResults() {
		if res.err != nil {
			return nil, res.err
		}
		if len(res.geom) > 0 {
			out = append(out, res.geom)
		}
	}
	return out, nil
}

// explode flattens the dissolved multipolygon into individual polygons,
// dropping degenerate rings and filling holes below the area threshold.
func explode(g polygol.Geom, minHoleArea float64) []datastructure.Polygon {
	polygons := make([]datastructure.Polygon, 0, len(g))
	for _, poly := range g {
		if len(poly) == 0 {
			continue
		}
		exterior := poly[0]
		if len(exterior) < 4 || geo.RingArea(exterior) == 0 {
			continue
		}

		out := datastructure.NewPolygon(exterior)
		for _, hole := range poly[1:] {
			if len(hole) < 4 {
				continue
			}
			if geo.RingArea(hole) < minHoleArea {
				// treat the gap as covered
				continue
			}
			out = append(out, hole)
		}
		polygons = append(polygons, out)
	}
	return polygons
}
