package pipeline

import (
	"sort"

	"github.com/jens-ox/fog-of-war/pkg/datastructure"
	"github.com/jens-ox/fog-of-war/pkg/geo"
	"golang.org/x/exp/maps"
)

// dedupGrid collapses points into a latitude-corrected ~10m grid, keeping at
// most one representative per occupied cell. Only cell keys are stored: the
// representative is the cell center, so merging two grids is a plain set
// union and therefore commutative and order-independent. Very close points
// straddling a cell boundary may both survive in adjacent cells, which is an
// accepted approximation.
type dedupGrid struct {
	cellMeters float64
	cells      map[geo.CellKey]struct{}
}

func newDedupGrid(cellMeters float64) *dedupGrid {
	return &dedupGrid{
		cellMeters: cellMeters,
		cells:      make(map[geo.CellKey]struct{}),
	}
}

func (g *dedupGrid) add(lat, lon float64) {
	g.cells[geo.CellOf(lat, lon, g.cellMeters)] = struct{}{}
}

func (g *dedupGrid) merge(other *dedupGrid) {
	for key := range other.cells {
		g.cells[key] = struct{}{}
	}
}

func (g *dedupGrid) size() int {
	return len(g.cells)
}

// freeze yields the unique point set in deterministic order.
func (g *dedupGrid) freeze() []datastructure.Coordinate {
	keys := maps.Keys(g.cells)
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].LatIdx != keys[j].LatIdx {
			return keys[i].LatIdx < keys[j].LatIdx
		}
		return keys[i].LonIdx < keys[j].LonIdx
	})

	points := make([]datastructure.Coordinate, len(keys))
	for i, key := range keys {
		points[i] = geo.CellCenter(key, g.cellMeters)
	}
	return points
}
