package pkg

const (
	// buffer radii in meter. the downstream viewer consumes the 100m/1000m artifacts.
	SMALL_BUFFER_RADIUS = 100.0
	LARGE_BUFFER_RADIUS = 1000.0

	// dedup grid cell size in meter
	DEDUP_CELL_METERS = 10.0

	// number of vertices per disc polygon ring
	DISC_RING_VERTICES = 48

	// dissolve tile span = DISSOLVE_TILE_FACTOR * radius
	DISSOLVE_TILE_FACTOR = 64.0

	POINTS_LAYER       = "points"
	SMALL_BUFFER_LAYER = "buffer-small"
	LARGE_BUFFER_LAYER = "buffer-large"

	// EPSG code of the output CRS
	SRS_WGS84 = 4326
)
