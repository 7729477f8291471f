package gpkg

import (
	"database/sql"
	"encoding/binary"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/pkg/errors"
)

// LayerInfo describes one feature layer of a container.
type LayerInfo struct {
	Name         string
	GeometryType string
	SrsID        int
	Count        int
}

// Reader opens a written container for inspection: layer listing, feature
// counts and geometry decoding. Used by the round-trip tests and handy for
// debugging what the tiler will see.
type Reader struct {
	db *sql.DB
}

func OpenReader(path string) (*Reader, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening container")
	}
	db.SetMaxOpenConns(1)

	// sql.Open is lazy, probe the metadata table so a missing or corrupt
	// container fails here instead of on first use
	if _, err := db.Exec(`SELECT count(*) FROM gpkg_contents`); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "not a GeoPackage container")
	}

	return &Reader{db: db}, nil
}

func (r *Reader) Close() error {
	return r.db.Close()
}

// Layers lists all feature layers with their geometry type and feature count.
func (r *Reader) Layers() ([]LayerInfo, error) {
	rows, err := r.db.Query(`
		SELECT c.table_name, g.geometry_type_name, c.srs_id
		FROM gpkg_contents c
		JOIN gpkg_geometry_columns g ON g.table_name = c.table_name
		WHERE c.data_type = 'features'
		ORDER BY c.table_name`)
	if err != nil {
		return nil, errors.Wrap(err, "querying layers")
	}
	defer rows.Close()

	var layers []LayerInfo
	for rows.Next() {
		var info LayerInfo
		if err := rows.Scan(&info.Name, &info.GeometryType, &info.SrsID); err != nil {
			return nil, errors.Wrap(err, "scanning layer row")
		}
		layers = append(layers, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range layers {
		row := r.db.QueryRow(`SELECT count(*) FROM "` + layers[i].Name + `"`)
		if err := row.Scan(&layers[i].Count); err != nil {
			return nil, errors.Wrapf(err, "counting features of %s", layers[i].Name)
		}
	}
	return layers, nil
}

// Geometries decodes all geometries of one layer.
func (r *Reader) Geometries(layer string) ([]orb.Geometry, error) {
	layers, err := r.Layers()
	if err != nil {
		return nil, err
	}
	known := false
	for _, info := range layers {
		if info.Name == layer {
			known = true
			break
		}
	}
	if !known {
		return nil, errors.Errorf("no such layer: %s", layer)
	}

	rows, err := r.db.Query(`SELECT geom FROM "` + layer + `" ORDER BY fid`)
	if err != nil {
		return nil, errors.Wrapf(err, "querying %s", layer)
	}
	defer rows.Close()

	var geoms []orb.Geometry
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, errors.Wrap(err, "scanning geometry blob")
		}
		geom, err := decodeGPB(blob)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding geometry of %s", layer)
		}
		geoms = append(geoms, geom)
	}
	return geoms, rows.Err()
}

// envelope byte sizes by envelope indicator
var envelopeSizes = [5]int{0, 32, 48, 48, 64}

func decodeGPB(blob []byte) (orb.Geometry, error) {
	if len(blob) < 8 || blob[0] != 'G' || blob[1] != 'P' {
		return nil, errors.New("missing GP magic")
	}
	flags := blob[3]
	indicator := int(flags>>1) & 0x07
	if indicator >= len(envelopeSizes) {
		return nil, errors.Errorf("invalid envelope indicator %d", indicator)
	}
	offset := 8 + envelopeSizes[indicator]
	if len(blob) < offset {
		return nil, errors.New("truncated geometry header")
	}
	return wkb.Unmarshal(blob[offset:])
}

// SrsID reads the srs out of a blob header without decoding the geometry.
func SrsID(blob []byte) (int, error) {
	if len(blob) < 8 || blob[0] != 'G' || blob[1] != 'P' {
		return 0, errors.New("missing GP magic")
	}
	return int(int32(binary.LittleEndian.Uint32(blob[4:8]))), nil
}
