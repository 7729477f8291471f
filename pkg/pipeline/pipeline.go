package pipeline

import (
	"runtime"
	"time"

	"github.com/jens-ox/fog-of-war/pkg"
	"github.com/jens-ox/fog-of-war/pkg/buffer"
	"github.com/jens-ox/fog-of-war/pkg/datastructure"
	"github.com/jens-ox/fog-of-war/pkg/gpkg"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Config struct {
	OutputPath   string
	SmallRadius  float64
	LargeRadius  float64
	CellMeters   float64
	DiscVertices int
	Workers      int
}

func DefaultConfig(outputPath string) Config {
	return Config{
		OutputPath:   outputPath,
		SmallRadius:  pkg.SMALL_BUFFER_RADIUS,
		LargeRadius:  pkg.LARGE_BUFFER_RADIUS,
		CellMeters:   pkg.DEDUP_CELL_METERS,
		DiscVertices: pkg.DISC_RING_VERTICES,
		Workers:      runtime.NumCPU(),
	}
}

type Summary struct {
	Ingest        IngestStats
	Points        int
	SmallPolygons int
	LargePolygons int
	Elapsed       time.Duration
}

// Run executes the whole pipeline: ingest all files into the dedup grid,
// freeze the unique point set, build and dissolve both buffer radii in
// parallel, then join everything in the output writer.
func Run(files []string, cfg Config, log *zap.Logger) (Summary, error) {
	start := time.Now()

	coordinator := NewCoordinator(cfg.CellMeters, cfg.Workers, log)
	grid, stats, err := coordinator.Run(files)
	if err != nil {
		return Summary{Ingest: stats}, err
	}

	points := grid.freeze()
	if len(points) == 0 {
		return Summary{Ingest: stats}, errors.New("no valid points in any input file")
	}
	log.Info("point layer frozen", zap.Int("points", len(points)))

	type dissolveResult struct {
		radius   float64
		polygons []datastructure.Polygon
		err      error
	}

	// the two radius pipelines share no state and only depend on the
	// already-frozen point set
	results := make(chan dissolveResult, 2)
	for _, radius := range []float64{cfg.SmallRadius, cfg.LargeRadius} {
		go func(radiusM float64) {
			discs := buffer.BuildDiscs(points, radiusM, cfg.DiscVertices)
			polygons, err := buffer.Dissolve(discs, radiusM, cfg.Workers, log)
			results <- dissolveResult{radius: radiusM, polygons: polygons, err: err}
		}(radius)
	}

	var small, large []datastructure.Polygon
	for i := 0; i < 2; i++ {
		res := <-results
		if res.err != nil {
			return Summary{Ingest: stats}, errors.Wrapf(res.err, "dissolving %.0fm buffers", res.radius)
		}
		if res.radius == cfg.SmallRadius {
			small = res.polygons
		} else {
			large = res.polygons
		}
		log.Info("buffer layer dissolved",
			zap.Float64("radiusM", res.radius),
			zap.Int("polygons", len(res.polygons)),
		)
	}

	if err := gpkg.Write(cfg.OutputPath, points, small, large, cfg.SmallRadius, cfg.LargeRadius); err != nil {
		return Summary{Ingest: stats}, errors.Wrap(err, "writing output container")
	}

	return Summary{
		Ingest:        stats,
		Points:        len(points),
		SmallPolygons: len(small),
		LargePolygons: len(large),
		Elapsed:       time.Since(start),
	}, nil
}
