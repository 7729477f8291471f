package main

import (
	"io/fs"
	"path/filepath"

	"github.com/jens-ox/fog-of-war/pkg/logger"
	"github.com/jens-ox/fog-of-war/pkg/pipeline"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, dataDir := loadConfig()

	files, err := discoverFiles(dataDir)
	if err != nil {
		log.Fatal("reading data directory", zap.String("dataDir", dataDir), zap.Error(err))
	}

	summary, err := pipeline.Run(files, cfg, log)
	if err != nil {
		log.Fatal("pipeline failed", zap.Error(err))
	}

	if summary.Ingest.SkipErrors != nil {
		log.Warn("some input files were skipped",
			zap.Int("skippedFiles", summary.Ingest.SkippedFiles),
			zap.Error(summary.Ingest.SkipErrors),
		)
	}

	log.Info("done",
		zap.String("output", cfg.OutputPath),
		zap.Int("points", summary.Points),
		zap.Int("smallBufferPolygons", summary.SmallPolygons),
		zap.Int("largeBufferPolygons", summary.LargePolygons),
		zap.Int("droppedPoints", summary.Ingest.DroppedPoints),
		zap.Duration("elapsed", summary.Elapsed),
	)
}

func loadConfig() (pipeline.Config, string) {
	viper.SetDefault("DATA_DIR", "./data")
	viper.SetDefault("OUT_PATH", "./data/out.gpkg")

	viper.SetConfigName("fog-of-war")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	// a config file is optional, defaults cover everything
	_ = viper.ReadInConfig()

	cfg := pipeline.DefaultConfig(viper.GetString("OUT_PATH"))
	if viper.IsSet("SMALL_RADIUS") {
		cfg.SmallRadius = viper.GetFloat64("SMALL_RADIUS")
	}
	if viper.IsSet("LARGE_RADIUS") {
		cfg.LargeRadius = viper.GetFloat64("LARGE_RADIUS")
	}
	if viper.IsSet("DEDUP_CELL_METERS") {
		cfg.CellMeters = viper.GetFloat64("DEDUP_CELL_METERS")
	}
	if viper.IsSet("WORKERS") {
		cfg.Workers = viper.GetInt("WORKERS")
	}

	return cfg, viper.GetString("DATA_DIR")
}

// discoverFiles walks the data directory and returns every regular file. The
// pipeline's registry decides which of them are usable.
func discoverFiles(dataDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
