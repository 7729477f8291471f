package parser

import (
	"encoding/json"
	"io"
	"time"

	"github.com/jens-ox/fog-of-war/pkg/datastructure"
	"github.com/pkg/errors"
)

// TimelineParser decodes a Google Takeout location history document
// (Records.json). Coordinates are integers scaled by 1e7. The locations
// array is decoded one record at a time so a multi-gigabyte history does not
// need a second in-memory copy.
type TimelineParser struct{}

func NewTimelineParser() *TimelineParser {
	return &TimelineParser{}
}

func (p *TimelineParser) Name() string {
	return "timeline"
}

const e7Scale = 1e7

type timelineRecord struct {
	LatitudeE7  *int64 `json:"latitudeE7"`
	LongitudeE7 *int64 `json:"longitudeE7"`
	Timestamp   string `json:"timestamp"`
}

func (p *TimelineParser) Parse(r io.Reader) ([]datastructure.GeoPoint, error) {
	rd, err := maybeGunzip(r)
	if err != nil {
		return nil, &FormatError{Parser: p.Name(), Err: errors.Wrap(err, "gunzip")}
	}

	dec := json.NewDecoder(rd)

	tkn, err := dec.Token()
	if err != nil {
		return nil, p.parseError(err)
	}
	if delim, ok := tkn.(json.Delim); !ok || delim != '{' {
		return nil, p.parseError(errors.New("document is not a JSON object"))
	}

	var points []datastructure.GeoPoint

	for dec.More() {
		keyToken, err := dec.Token()
		if err != nil {
			return nil, p.parseError(err)
		}
		key, ok := keyToken.(string)
		if !ok {
			return nil, p.parseError(errors.New("malformed object key"))
		}

		if key != "locations" {
			// skip the value of any other top-level key
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, p.parseError(err)
			}
			continue
		}

		arrToken, err := dec.Token()
		if err != nil {
			return nil, p.parseError(err)
		}
		if delim, ok := arrToken.(json.Delim); !ok || delim != '[' {
			return nil, p.parseError(errors.New("locations is not an array"))
		}

		for dec.More() {
			var rec timelineRecord
			if err := dec.Decode(&rec); err != nil {
				return nil, p.parseError(err)
			}
			points = append(points, recordToPoint(rec))
		}

		// consume the closing ]
		if _, err := dec.Token(); err != nil {
			return nil, p.parseError(err)
		}
	}

	return points, nil
}

func (p *TimelineParser) parseError(err error) error {
	return &ParseError{Parser: p.Name(), Err: errors.Wrap(err, "decoding timeline document")}
}

func recordToPoint(rec timelineRecord) datastructure.GeoPoint {
	lat, lon := invalidCoordinate, invalidCoordinate
	if rec.LatitudeE7 != nil {
		lat = float64(*rec.LatitudeE7) / e7Scale
	}
	if rec.LongitudeE7 != nil {
		lon = float64(*rec.LongitudeE7) / e7Scale
	}

	var unixMs int64
	if ts, err := time.Parse(time.RFC3339, rec.Timestamp); err == nil {
		unixMs = ts.UnixMilli()
	}

	return datastructure.NewGeoPoint(lat, lon, unixMs)
}
