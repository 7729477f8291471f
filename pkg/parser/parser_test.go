package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryDispatch(t *testing.T) {
	registry := NewRegistry()

	tests := []struct {
		path   string
		parser string
		match  bool
	}{
		{"data/track.gpx", "gpx", true},
		{"data/track.gpx.gz", "gpx", true},
		{"data/TRACK.GPX", "gpx", true},
		{"data/activity.fit.gz", "fit", true},
		{"data/Records.json", "timeline", true},
		{"data/records.json", "", false},
		{"data/notes.txt", "", false},
		{"data/activity.fit.gz.bak", "", false},
		{"data/archive.gz", "", false},
	}

	for _, tc := range tests {
		p, ok := registry.Lookup(tc.path)
		assert.Equal(t, tc.match, ok, tc.path)
		if tc.match {
			require.NotNil(t, p, tc.path)
			assert.Equal(t, tc.parser, p.Name(), tc.path)
		}
	}
}
