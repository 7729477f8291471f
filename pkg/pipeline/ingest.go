package pipeline

import (
	"math"
	"os"

	"github.com/jens-ox/fog-of-war/pkg/concurrent"
	"github.com/jens-ox/fog-of-war/pkg/parser"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// IngestStats summarizes one ingestion run.
type IngestStats struct {
	MatchedFiles  int
	ParsedFiles   int
	SkippedFiles  int
	ParsedPoints  int
	DroppedPoints int

	// SkipErrors aggregates the per-file failures behind SkippedFiles.
	SkipErrors error
}

// Coordinator routes input files to their adapters, runs the adapters
// concurrently and folds every file's points into the dedup grid. Each worker
// fills a private partial grid, merged after all files finish, so there is no
// lock contention on a shared map.
type Coordinator struct {
	registry   *parser.Registry
	cellMeters float64
	workers    int
	log        *zap.Logger
}

func NewCoordinator(cellMeters float64, workers int, log *zap.Logger) *Coordinator {
	if workers < 1 {
		workers = 1
	}
	return &Coordinator{
		registry:   parser.NewRegistry(),
		cellMeters: cellMeters,
		workers:    workers,
		log:        log,
	}
}

type ingestJob struct {
	path   string
	parser parser.Parser
}

type ingestResult struct {
	path    string
	grid    *dedupGrid
	parsed  int
	dropped int
	err     error
}

// Run ingests all recognized files. Files matching no known pattern are
// silently skipped. A single corrupt input file never aborts the run: its
// failure is counted and surfaced through the stats. Zero usable input files
// is fatal.
func (c *Coordinator) Run(files []string) (*dedupGrid, IngestStats, error) {
	var stats IngestStats

	jobs := make([]ingestJob, 0, len(files))
	for _, path := range files {
		p, ok := c.registry.Lookup(path)
		if !ok {
			continue
		}
		jobs = append(jobs, ingestJob{path: path, parser: p})
	}
	stats.MatchedFiles = len(jobs)

	if len(jobs) == 0 {
		return nil, stats, errors.New("no usable input files")
	}

	workers := c.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	pool := concurrent.NewWorkerPool[ingestJob, ingestResult](workers, len(jobs))
	for _, job := range jobs {
		pool.AddJob(job)
	}
	pool.Close()
	pool.Start(c.ingestFile)
	pool.Wait()

	grid := newDedupGrid(c.cellMeters)
	for res := range pool.CollectResults() {
		if res.err != nil {
			stats.SkippedFiles++
			stats.SkipErrors = multierr.Append(stats.SkipErrors, errors.Wrap(res.err, res.path))
			c.log.Warn("skipping unreadable input file",
				zap.String("file", res.path),
				zap.Error(res.err),
			)
			continue
		}
		stats.ParsedFiles++
		stats.ParsedPoints += res.parsed
		stats.DroppedPoints += res.dropped
		grid.merge(res.grid)
	}

	if stats.ParsedFiles == 0 {
		return nil, stats, errors.Errorf("all %d matched input files failed", stats.MatchedFiles)
	}

	c.log.Info("ingestion finished",
		zap.Int("matchedFiles", stats.MatchedFiles),
		zap.Int("parsedFiles", stats.ParsedFiles),
		zap.Int("skippedFiles", stats.SkippedFiles),
		zap.Int("parsedPoints", stats.ParsedPoints),
		zap.Int("droppedPoints", stats.DroppedPoints),
		zap.Int("uniqueCells", grid.size()),
	)

	return grid, stats, nil
}

// ingestFile parses one file into a private partial grid.
func (c *Coordinator) ingestFile(job ingestJob) ingestResult {
	res := ingestResult{path: job.path, grid: newDedupGrid(c.cellMeters)}

	f, err := os.Open(job.path)
	if err != nil {
		res.err = err
		return res
	}
	defer f.Close()

	points, err := job.parser.Parse(f)
	if err != nil {
		res.err = err
		return res
	}

	for _, point := range points {
		if !validCoordinate(point.Lat(), point.Lon()) {
			res.dropped++
			continue
		}
		res.parsed++
		res.grid.add(point.Lat(), point.Lon())
	}
	return res
}

func validCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
