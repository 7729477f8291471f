package parser

import (
	"encoding/binary"
	"io"

	"github.com/jens-ox/fog-of-war/pkg/datastructure"
	"github.com/pkg/errors"
)

// FitParser decodes the Flexible and Interoperable Data Transfer format used
// by GPS/fitness devices (https://developer.garmin.com/fit/protocol/),
// usually arriving gzip-wrapped as .fit.gz. Only position-bearing record
// messages are extracted; everything else is decoded far enough to be
// skipped correctly.
type FitParser struct{}

func NewFitParser() *FitParser {
	return &FitParser{}
}

func (p *FitParser) Name() string {
	return "fit"
}

const (
	fitMagic = ".FIT"

	// global message number of the record message, the one that carries
	// position_lat (field 0) and position_long (field 1)
	fitRecordMessage = 20

	fitFieldPositionLat  = 0
	fitFieldPositionLong = 1
	fitFieldTimestamp    = 253

	// sentinel for "no value" in a sint32 field
	fitInvalidSint32 = 0x7FFFFFFF

	// semicircles are signed 32-bit fractions of a half-turn
	semicircleToDegree = 180.0 / 2147483648.0

	// seconds between the unix epoch and the FIT epoch (1989-12-31 00:00 UTC)
	fitEpochOffset = 631065600
)

func (p *FitParser) Parse(r io.Reader) ([]datastructure.GeoPoint, error) {
	rd, err := maybeGunzip(r)
	if err != nil {
		return nil, &FormatError{Parser: p.Name(), Err: errors.Wrap(err, "gunzip")}
	}
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, &FormatError{Parser: p.Name(), Err: errors.Wrap(err, "reading stream")}
	}

	points, err := decodeFit(data)
	if err != nil {
		return nil, &FormatError{Parser: p.Name(), Err: err}
	}
	return points, nil
}

type fitFieldDef struct {
	num  byte
	size byte
}

type fitMessageDef struct {
	globalNum uint16
	bigEndian bool
	fields    []fitFieldDef
	devBytes  int // total developer-field payload to skip per data message
}

func (d *fitMessageDef) byteOrder() binary.ByteOrder {
	if d.bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func decodeFit(data []byte) ([]datastructure.GeoPoint, error) {
	if len(data) < 14 {
		return nil, errors.New("file shorter than a FIT header")
	}

	headerSize := int(data[0])
	if headerSize != 12 && headerSize != 14 {
		return nil, errors.Errorf("unsupported header size %d", headerSize)
	}
	if string(data[8:12]) != fitMagic {
		return nil, errors.New("missing .FIT magic")
	}

	dataSize := int(binary.LittleEndian.Uint32(data[4:8]))

	if headerSize == 14 {
		headerCRC := binary.LittleEndian.Uint16(data[12:14])
		// a zero header CRC means "not computed" and is allowed
		if headerCRC != 0 && fitCRC16(data[:12]) != headerCRC {
			return nil, errors.New("header checksum mismatch")
		}
	}

	end := headerSize + dataSize
	if len(data) < end+2 {
		return nil, errors.New("truncated message stream")
	}
	fileCRC := binary.LittleEndian.Uint16(data[end : end+2])
	if fitCRC16(data[:end]) != fileCRC {
		return nil, errors.New("file checksum mismatch")
	}

	defs := make(map[byte]*fitMessageDef)
	var points []datastructure.GeoPoint

	i := headerSize
	for i < end {
		hdr := data[i]
		i++

		var local byte
		switch {
		case hdr&0x80 != 0:
			// compressed timestamp header: bits 5-6 local type, 0-4 offset
			local = (hdr >> 5) & 0x03
		case hdr&0x40 != 0:
			// definition message
			local = hdr & 0x0F
			def, next, err := decodeFitDefinition(data, i, end, hdr&0x20 != 0)
			if err != nil {
				return nil, err
			}
			defs[local] = def
			i = next
			continue
		default:
			local = hdr & 0x0F
		}

		def, ok := defs[local]
		if !ok {
			return nil, errors.Errorf("data message for undefined local type %d", local)
		}

		point, hasPoint, next, err := decodeFitData(data, i, end, def)
		if err != nil {
			return nil, err
		}
		if hasPoint {
			points = append(points, point)
		}
		i = next
	}

	return points, nil
}

func decodeFitDefinition(data []byte, i, end int, hasDevFields bool) (*fitMessageDef, int, error) {
	// fixed part: reserved, architecture, global number (2), field count
	if i+5 > end {
		return nil, 0, errors.New("truncated definition message")
	}
	def := &fitMessageDef{bigEndian: data[i+1] == 1}
	if def.bigEndian {
		def.globalNum = binary.BigEndian.Uint16(data[i+2 : i+4])
	} else {
		def.globalNum = binary.LittleEndian.Uint16(data[i+2 : i+4])
	}
	numFields := int(data[i+4])
	i += 5

	if i+3*numFields > end {
		return nil, 0, errors.New("truncated field definitions")
	}
	def.fields = make([]fitFieldDef, numFields)
	for f := 0; f < numFields; f++ {
		// field definition number, size, base type
		def.fields[f] = fitFieldDef{num: data[i], size: data[i+1]}
		i += 3
	}

	if hasDevFields {
		if i >= end {
			return nil, 0, errors.New("truncated developer field definitions")
		}
		numDev := int(data[i])
		i++
		if i+3*numDev > end {
			return nil, 0, errors.New("truncated developer field definitions")
		}
		for f := 0; f < numDev; f++ {
			def.devBytes += int(data[i+1])
			i += 3
		}
	}

	return def, i, nil
}

func decodeFitData(data []byte, i, end int, def *fitMessageDef) (datastructure.GeoPoint, bool, int, error) {
	var latSemi, lonSemi int32 = fitInvalidSint32, fitInvalidSint32
	var timestamp uint32

	for _, field := range def.fields {
		size := int(field.size)
		if i+size > end {
			return datastructure.GeoPoint{}, false, 0, errors.New("truncated data message")
		}

		if def.globalNum == fitRecordMessage {
			switch field.num {
			case fitFieldPositionLat:
				if size == 4 {
					latSemi = int32(def.byteOrder().Uint32(data[i : i+4]))
				}
			case fitFieldPositionLong:
				if size == 4 {
					lonSemi = int32(def.byteOrder().Uint32(data[i : i+4]))
				}
			case fitFieldTimestamp:
				if size == 4 {
					timestamp = def.byteOrder().Uint32(data[i : i+4])
				}
			}
		}
		i += size
	}

	if def.devBytes > 0 {
		if i+def.devBytes > end {
			return datastructure.GeoPoint{}, false, 0, errors.New("truncated developer fields")
		}
		i += def.devBytes
	}

	if latSemi == fitInvalidSint32 || lonSemi == fitInvalidSint32 {
		return datastructure.GeoPoint{}, false, i, nil
	}

	var unixMs int64
	if timestamp != 0 {
		unixMs = (int64(timestamp) + fitEpochOffset) * 1000
	}

	point := datastructure.NewGeoPoint(
		float64(latSemi)*semicircleToDegree,
		float64(lonSemi)*semicircleToDegree,
		unixMs,
	)
	return point, true, i, nil
}

var fitCRCTable = [16]uint16{
	0x0000, 0xCC01, 0xD801, 0x1400, 0xF001, 0x3C00, 0x2800, 0xE401,
	0xA001, 0x6C00, 0x7800, 0xB401, 0x5000, 0x9C01, 0x8801, 0x4400,
}

// fitCRC16 implements the CRC used by FIT headers and trailers.
func fitCRC16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		tmp := fitCRCTable[crc&0x0F]
		crc = (crc >> 4) & 0x0FFF
		crc = crc ^ tmp ^ fitCRCTable[b&0x0F]

		tmp = fitCRCTable[crc&0x0F]
		crc = (crc >> 4) & 0x0FFF
		crc = crc ^ tmp ^ fitCRCTable[(b>>4)&0x0F]
	}
	return crc
}
