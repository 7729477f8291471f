package parser

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTimeline = `{
  "exportDate": "2024-01-01T00:00:00Z",
  "locations": [
    {
      "latitudeE7": 525200000,
      "longitudeE7": 134050000,
      "accuracy": 12,
      "timestamp": "2023-04-01T17:16:10Z"
    },
    {
      "latitudeE7": -338688000,
      "longitudeE7": 1512093000
    }
  ],
  "trailer": {"ignored": true}
}`

func TestTimelineParse(t *testing.T) {
	points, err := NewTimelineParser().Parse(strings.NewReader(sampleTimeline))
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.InDelta(t, 52.52, points[0].Lat(), 1e-9)
	assert.InDelta(t, 13.405, points[0].Lon(), 1e-9)
	assert.NotZero(t, points[0].UnixMs())

	assert.InDelta(t, -33.8688, points[1].Lat(), 1e-9)
	assert.InDelta(t, 151.2093, points[1].Lon(), 1e-9)
	assert.Zero(t, points[1].UnixMs())
}

func TestTimelineMissingPositionYieldsInvalidPoint(t *testing.T) {
	doc := `{"locations": [{"timestamp": "2023-04-01T17:16:10Z"}]}`
	points, err := NewTimelineParser().Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, points, 1)

	// dropped later by the coordinator's validity check
	assert.Greater(t, points[0].Lat(), 90.0)
}

func TestTimelineMalformed(t *testing.T) {
	for _, doc := range []string{
		`[1, 2, 3]`,
		`{"locations": "nope"}`,
		`{"locations": [{"latitudeE7": 1},`,
		`not json at all`,
	} {
		_, err := NewTimelineParser().Parse(strings.NewReader(doc))
		require.Error(t, err, doc)

		var parseErr *ParseError
		assert.True(t, errors.As(err, &parseErr), doc)
	}
}

func TestTimelineEmptyLocations(t *testing.T) {
	points, err := NewTimelineParser().Parse(strings.NewReader(`{"locations": []}`))
	require.NoError(t, err)
	assert.Empty(t, points)
}
