package parser

import (
	"bytes"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGpx = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test">
  <wpt lat="52.5200" lon="13.4050"><name>home</name></wpt>
  <trk>
    <trkseg>
      <trkpt lat="48.8566" lon="2.3522">
        <ele>35.0</ele>
        <time>2023-04-01T17:16:10Z</time>
      </trkpt>
      <trkpt lat="48.8570" lon="2.3530"></trkpt>
    </trkseg>
  </trk>
  <rte>
    <rtept lat="51.5074" lon="-0.1278"/>
  </rte>
</gpx>`

func TestGpxParse(t *testing.T) {
	points, err := NewGpxParser().Parse(strings.NewReader(sampleGpx))
	require.NoError(t, err)
	require.Len(t, points, 4)

	assert.InDelta(t, 52.5200, points[0].Lat(), 1e-9)
	assert.InDelta(t, 13.4050, points[0].Lon(), 1e-9)

	// the timed track point keeps its timestamp
	assert.NotZero(t, points[1].UnixMs())
	assert.Zero(t, points[2].UnixMs())

	assert.InDelta(t, -0.1278, points[3].Lon(), 1e-9)
}

func TestGpxParseGzipped(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(sampleGpx))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	points, err := NewGpxParser().Parse(&buf)
	require.NoError(t, err)
	assert.Len(t, points, 4)
}

func TestGpxParseMalformed(t *testing.T) {
	_, err := NewGpxParser().Parse(strings.NewReader(`<gpx><trkpt lat="48.0`))
	require.Error(t, err)

	var parseErr *ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestGpxUnparsableAttributesYieldInvalidPoint(t *testing.T) {
	doc := `<gpx><trk><trkseg><trkpt lat="oops" lon="2.35"/></trkseg></trk></gpx>`
	points, err := NewGpxParser().Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, points, 1)

	// out of range on purpose, the coordinator drops it
	assert.Greater(t, points[0].Lat(), 90.0)
}
