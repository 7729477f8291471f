package gpkg

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/jens-ox/fog-of-war/pkg"
	"github.com/jens-ox/fog-of-war/pkg/datastructure"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func squareAround(lat, lon, d float64) datastructure.Polygon {
	return datastructure.NewPolygon([][]float64{
		{lon - d, lat - d},
		{lon + d, lat - d},
		{lon + d, lat + d},
		{lon - d, lat + d},
		{lon - d, lat - d},
	})
}

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.gpkg")

	points := []datastructure.Coordinate{
		datastructure.NewCoordinate(52.52, 13.405),
		datastructure.NewCoordinate(48.8566, 2.3522),
	}
	small := []datastructure.Polygon{
		squareAround(52.52, 13.405, 0.001),
		squareAround(48.8566, 2.3522, 0.001),
	}
	large := []datastructure.Polygon{
		squareAround(50.7, 7.9, 0.01),
	}

	require.NoError(t, Write(path, points, small, large, pkg.SMALL_BUFFER_RADIUS, pkg.LARGE_BUFFER_RADIUS))
	return path
}

func TestRoundTripLayers(t *testing.T) {
	reader, err := OpenReader(writeSample(t))
	require.NoError(t, err)
	defer reader.Close()

	layers, err := reader.Layers()
	require.NoError(t, err)
	require.Len(t, layers, 3)

	// ordered by table name
	assert.Equal(t, pkg.LARGE_BUFFER_LAYER, layers[0].Name)
	assert.Equal(t, pkg.SMALL_BUFFER_LAYER, layers[1].Name)
	assert.Equal(t, pkg.POINTS_LAYER, layers[2].Name)

	assert.Equal(t, "POLYGON", layers[0].GeometryType)
	assert.Equal(t, "POLYGON", layers[1].GeometryType)
	assert.Equal(t, "POINT", layers[2].GeometryType)

	assert.Equal(t, 1, layers[0].Count)
	assert.Equal(t, 2, layers[1].Count)
	assert.Equal(t, 2, layers[2].Count)

	for _, layer := range layers {
		assert.Equal(t, pkg.SRS_WGS84, layer.SrsID, layer.Name)
	}
}

func TestRoundTripGeometries(t *testing.T) {
	reader, err := OpenReader(writeSample(t))
	require.NoError(t, err)
	defer reader.Close()

	geoms, err := reader.Geometries(pkg.POINTS_LAYER)
	require.NoError(t, err)
	require.Len(t, geoms, 2)

	first, ok := geoms[0].(orb.Point)
	require.True(t, ok)
	assert.InDelta(t, 13.405, first[0], 1e-9)
	assert.InDelta(t, 52.52, first[1], 1e-9)

	geoms, err = reader.Geometries(pkg.SMALL_BUFFER_LAYER)
	require.NoError(t, err)
	require.Len(t, geoms, 2)

	polygon, ok := geoms[0].(orb.Polygon)
	require.True(t, ok)
	require.Len(t, polygon, 1)
	assert.Len(t, polygon[0], 5)
	assert.InDelta(t, 13.404, polygon[0][0][0], 1e-9)
}

func TestRoundTripPreservesHoles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.gpkg")

	outer := squareAround(50.0, 8.0, 0.01)
	withHole := append(outer, squareAround(50.0, 8.0, 0.002).Exterior())

	require.NoError(t, Write(path, nil, nil, []datastructure.Polygon{withHole}, pkg.SMALL_BUFFER_RADIUS, pkg.LARGE_BUFFER_RADIUS))

	reader, err := OpenReader(path)
	require.NoError(t, err)
	defer reader.Close()

	geoms, err := reader.Geometries(pkg.LARGE_BUFFER_LAYER)
	require.NoError(t, err)
	require.Len(t, geoms, 1)

	polygon, ok := geoms[0].(orb.Polygon)
	require.True(t, ok)
	assert.Len(t, polygon, 2)
}

func TestRoundTripMetadata(t *testing.T) {
	path := writeSample(t)

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var appID, userVersion int
	require.NoError(t, db.QueryRow(`PRAGMA application_id`).Scan(&appID))
	require.NoError(t, db.QueryRow(`PRAGMA user_version`).Scan(&userVersion))
	assert.Equal(t, 1196444487, appID)
	assert.Equal(t, 10300, userVersion)

	var srsCount int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM gpkg_spatial_ref_sys`).Scan(&srsCount))
	assert.Equal(t, 3, srsCount)

	// polygon layers carry the radius attribute
	var radius float64
	require.NoError(t, db.QueryRow(`SELECT radius_m FROM "`+pkg.SMALL_BUFFER_LAYER+`" LIMIT 1`).Scan(&radius))
	assert.Equal(t, pkg.SMALL_BUFFER_RADIUS, radius)

	var blob []byte
	require.NoError(t, db.QueryRow(`SELECT geom FROM "`+pkg.POINTS_LAYER+`" LIMIT 1`).Scan(&blob))
	srs, err := SrsID(blob)
	require.NoError(t, err)
	assert.Equal(t, pkg.SRS_WGS84, srs)
}

func TestWriteReplacesExistingContainer(t *testing.T) {
	path := writeSample(t)

	// second write against the same path must not fail on leftover tables
	require.NoError(t, Write(path, []datastructure.Coordinate{datastructure.NewCoordinate(1, 2)}, nil, nil, pkg.SMALL_BUFFER_RADIUS, pkg.LARGE_BUFFER_RADIUS))

	reader, err := OpenReader(path)
	require.NoError(t, err)
	defer reader.Close()

	layers, err := reader.Layers()
	require.NoError(t, err)
	require.Len(t, layers, 3)
	assert.Equal(t, 0, layers[0].Count)
	assert.Equal(t, 1, layers[2].Count)
}

func TestOpenReaderRejectsNonContainer(t *testing.T) {
	_, err := OpenReader(filepath.Join(t.TempDir(), "missing.gpkg"))
	assert.Error(t, err)
}
