package parser

import (
	"encoding/xml"
	"io"
	"strconv"
	"time"

	"github.com/jens-ox/fog-of-war/pkg/datastructure"
	"github.com/pkg/errors"
)

// GpxParser decodes GPS Exchange Format tracks
// (https://en.wikipedia.org/wiki/GPS_Exchange_Format), plain or gzipped.
// Track points, waypoints and route points all carry their position as
// lat/lon attributes; elevation and extension elements are ignored.
type GpxParser struct{}

func NewGpxParser() *GpxParser {
	return &GpxParser{}
}

func (p *GpxParser) Name() string {
	return "gpx"
}

func (p *GpxParser) Parse(r io.Reader) ([]datastructure.GeoPoint, error) {
	rd, err := maybeGunzip(r)
	if err != nil {
		return nil, &FormatError{Parser: p.Name(), Err: errors.Wrap(err, "gunzip")}
	}

	dec := xml.NewDecoder(rd)

	var points []datastructure.GeoPoint

	// state of the point element currently being decoded. unparsable
	// attributes become out-of-range values that the coordinator's
	// point-level validity check drops.
	var inPoint, inTime bool
	var pendingName string
	var pendingLat, pendingLon float64
	var pendingTime int64

	for {
		tkn, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Parser: p.Name(), Err: errors.Wrap(err, "decoding XML token")}
		}

		switch elem := tkn.(type) {
		case xml.StartElement:
			switch elem.Name.Local {
			case "trkpt", "wpt", "rtept":
				lat, lon := latLonAttrs(elem)
				pendingLat, pendingLon = lat, lon
				pendingTime = 0
				pendingName = elem.Name.Local
				inPoint = true
			case "time":
				inTime = inPoint
			}
		case xml.CharData:
			if inTime {
				if ts, err := time.Parse(time.RFC3339, string(elem)); err == nil {
					pendingTime = ts.UnixMilli()
				}
			}
		case xml.EndElement:
			if elem.Name.Local == "time" {
				inTime = false
			}
			if inPoint && elem.Name.Local == pendingName {
				points = append(points, datastructure.NewGeoPoint(pendingLat, pendingLon, pendingTime))
				inPoint = false
			}
		}
	}

	return points, nil
}

func latLonAttrs(elem xml.StartElement) (float64, float64) {
	lat, lon := invalidCoordinate, invalidCoordinate
	for _, attr := range elem.Attr {
		switch attr.Name.Local {
		case "lat":
			if v, err := strconv.ParseFloat(attr.Value, 64); err == nil {
				lat = v
			}
		case "lon":
			if v, err := strconv.ParseFloat(attr.Value, 64); err == nil {
				lon = v
			}
		}
	}
	return lat, lon
}
