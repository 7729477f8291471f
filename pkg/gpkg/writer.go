// Package gpkg writes the pipeline's output container: a GeoPackage
// (https://www.geopackage.org/spec/) holding the point layer and the two
// dissolved buffer layers, all in WGS84. SQLite is driven through
// modernc.org/sqlite, so no cgo is involved.
package gpkg

import (
	"database/sql"
	"encoding/binary"
	"math"
	"os"

	"github.com/jens-ox/fog-of-war/pkg"
	"github.com/jens-ox/fog-of-war/pkg/datastructure"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const wgs84Definition = `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG","7030"]],AUTHORITY["EPSG","6326"]],PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9122"]],AUTHORITY["EPSG","4326"]]`

// Write serializes the three output layers into one GeoPackage at path. Any
// failure here is fatal to the run: the container is the pipeline's sole
// product, so the error propagates instead of being recovered.
func Write(path string, points []datastructure.Coordinate, small, large []datastructure.Polygon, smallRadius, largeRadius float64) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing stale output")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return errors.Wrap(err, "opening output container")
	}
	defer db.Close()

	// single connection, no concurrent statements at DB layer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initContainer(db); err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "opening transaction")
	}
	defer tx.Rollback()

	if err := writePointLayer(tx, pkg.POINTS_LAYER, points); err != nil {
		return err
	}
	if err := writePolygonLayer(tx, pkg.SMALL_BUFFER_LAYER, small, smallRadius); err != nil {
		return err
	}
	if err := writePolygonLayer(tx, pkg.LARGE_BUFFER_LAYER, large, largeRadius); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "committing output container")
	}
	return nil
}

func initContainer(db *sql.DB) error {
	statements := []string{
		// magic GPKG application id and spec version
		`PRAGMA application_id = 1196444487`,
		`PRAGMA user_version = 10300`,
		`CREATE TABLE gpkg_spatial_ref_sys (
			srs_name TEXT NOT NULL,
			srs_id INTEGER PRIMARY KEY,
			organization TEXT NOT NULL,
			organization_coordsys_id INTEGER NOT NULL,
			definition TEXT NOT NULL,
			description TEXT
		)`,
		`CREATE TABLE gpkg_contents (
			table_name TEXT PRIMARY KEY,
			data_type TEXT NOT NULL,
			identifier TEXT UNIQUE,
			description TEXT DEFAULT '',
			last_change DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
			min_x DOUBLE,
			min_y DOUBLE,
			max_x DOUBLE,
			max_y DOUBLE,
			srs_id INTEGER,
			CONSTRAINT fk_gc_r_srs_id FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys(srs_id)
		)`,
		`CREATE TABLE gpkg_geometry_columns (
			table_name TEXT NOT NULL,
			column_name TEXT NOT NULL,
			geometry_type_name TEXT NOT NULL,
			srs_id INTEGER NOT NULL,
			z TINYINT NOT NULL,
			m TINYINT NOT NULL,
			CONSTRAINT pk_geom_cols PRIMARY KEY (table_name, column_name)
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return errors.Wrap(err, "initializing container metadata")
		}
	}

	srs := []struct {
		name       string
		id         int
		org        string
		orgID      int
		definition string
	}{
		{"Undefined cartesian SRS", -1, "NONE", -1, "undefined"},
		{"Undefined geographic SRS", 0, "NONE", 0, "undefined"},
		{"WGS 84 geodetic", pkg.SRS_WGS84, "EPSG", pkg.SRS_WGS84, wgs84Definition},
	}
	for _, s := range srs {
		_, err := db.Exec(
			`INSERT INTO gpkg_spatial_ref_sys (srs_name, srs_id, organization, organization_coordsys_id, definition) VALUES (?, ?, ?, ?, ?)`,
			s.name, s.id, s.org, s.orgID, s.definition,
		)
		if err != nil {
			return errors.Wrap(err, "registering spatial reference systems")
		}
	}
	return nil
}

func registerLayer(tx *sql.Tx, name, geometryType string, bound orb.Bound) error {
	_, err := tx.Exec(
		`INSERT INTO gpkg_contents (table_name, data_type, identifier, min_x, min_y, max_x, max_y, srs_id) VALUES (?, 'features', ?, ?, ?, ?, ?, ?)`,
		name, name, bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1], pkg.SRS_WGS84,
	)
	if err != nil {
		return errors.Wrapf(err, "registering layer %s", name)
	}
	_, err = tx.Exec(
		`INSERT INTO gpkg_geometry_columns (table_name, column_name, geometry_type_name, srs_id, z, m) VALUES (?, 'geom', ?, ?, 0, 0)`,
		name, geometryType, pkg.SRS_WGS84,
	)
	return errors.Wrapf(err, "registering geometry column of %s", name)
}

func writePointLayer(tx *sql.Tx, name string, points []datastructure.Coordinate) error {
	if _, err := tx.Exec(`CREATE TABLE "` + name + `" (fid INTEGER PRIMARY KEY AUTOINCREMENT, geom BLOB NOT NULL)`); err != nil {
		return errors.Wrapf(err, "creating layer %s", name)
	}

	stmt, err := tx.Prepare(`INSERT INTO "` + name + `" (geom) VALUES (?)`)
	if err != nil {
		return errors.Wrapf(err, "preparing inserts for %s", name)
	}
	defer stmt.Close()

	bound := emptyBound()
	for _, point := range points {
		geom := orb.Point{point.Lon(), point.Lat()}
		bound = extendBound(bound, geom.Bound())

		blob, err := encodeGPB(geom)
		if err != nil {
			return errors.Wrapf(err, "encoding point geometry for %s", name)
		}
		if _, err := stmt.Exec(blob); err != nil {
			return errors.Wrapf(err, "inserting into %s", name)
		}
	}

	return registerLayer(tx, name, "POINT", bound)
}

func writePolygonLayer(tx *sql.Tx, name string, polygons []datastructure.Polygon, radiusM float64) error {
	if _, err := tx.Exec(`CREATE TABLE "` + name + `" (fid INTEGER PRIMARY KEY AUTOINCREMENT, geom BLOB NOT NULL, radius_m REAL NOT NULL)`); err != nil {
		return errors.Wrapf(err, "creating layer %s", name)
	}

	stmt, err := tx.Prepare(`INSERT INTO "` + name + `" (geom, radius_m) VALUES (?, ?)`)
	if err != nil {
		return errors.Wrapf(err, "preparing inserts for %s", name)
	}
	defer stmt.Close()

	bound := emptyBound()
	for _, polygon := range polygons {
		geom := toOrbPolygon(polygon)
		bound = extendBound(bound, geom.Bound())

		blob, err := encodeGPB(geom)
		if err != nil {
			return errors.Wrapf(err, "encoding polygon geometry for %s", name)
		}
		if _, err := stmt.Exec(blob, radiusM); err != nil {
			return errors.Wrapf(err, "inserting into %s", name)
		}
	}

	return registerLayer(tx, name, "POLYGON", bound)
}

func toOrbPolygon(polygon datastructure.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(polygon))
	for i, ring := range polygon {
		r := make(orb.Ring, len(ring))
		for j, v := range ring {
			r[j] = orb.Point{v[0], v[1]}
		}
		out[i] = r
	}
	return out
}

// encodeGPB frames a geometry as a GeoPackage binary blob: "GP" magic,
// version 0, little-endian flags with envelope indicator 1, srs id, the
// [minx maxx miny maxy] envelope, then the WKB payload.
func encodeGPB(geom orb.Geometry) ([]byte, error) {
	payload, err := wkb.Marshal(geom)
	if err != nil {
		return nil, err
	}

	bound := geom.Bound()
	header := make([]byte, 8+32)
	header[0] = 'G'
	header[1] = 'P'
	header[2] = 0
	header[3] = 0x03 // envelope indicator 1 | little-endian
	binary.LittleEndian.PutUint32(header[4:8], uint32(pkg.SRS_WGS84))
	binary.LittleEndian.PutUint64(header[8:16], math.Float64bits(bound.Min[0]))
	binary.LittleEndian.PutUint64(header[16:24], math.Float64bits(bound.Max[0]))
	binary.LittleEndian.PutUint64(header[24:32], math.Float64bits(bound.Min[1]))
	binary.LittleEndian.PutUint64(header[32:40], math.Float64bits(bound.Max[1]))

	return append(header, payload...), nil
}

func emptyBound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{math.Inf(1), math.Inf(1)},
		Max: orb.Point{math.Inf(-1), math.Inf(-1)},
	}
}

func extendBound(b, other orb.Bound) orb.Bound {
	return orb.Bound{
		Min: orb.Point{math.Min(b.Min[0], other.Min[0]), math.Min(b.Min[1], other.Min[1])},
		Max: orb.Point{math.Max(b.Max[0], other.Max[0]), math.Max(b.Max[1], other.Max[1])},
	}
}
