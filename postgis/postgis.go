// Package postgis persists feature layers in PostgreSQL/PostGIS and answers
// the spatial queries that want a database: nearest-facility search and
// point-in-hazard-zone checks. The adapter is optional; when no database is
// configured the in-memory store serves the same queries.
package postgis

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	_ "github.com/lib/pq"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/ani3h/disaster-response-gis/config"
	"github.com/ani3h/disaster-response-gis/models"
)

// layerTables maps layer names to their tables. Table names are interpolated
// into SQL, so only layers listed here may be stored or queried.
var layerTables = map[string]string{
	models.LayerRoads:           "roads",
	models.LayerHazardZones:     "hazard_zones",
	models.LayerAdminBoundaries: "admin_boundaries",
	models.LayerHospitals:       "hospitals",
	models.LayerShelters:        "shelters",
	models.LayerCycloneTracks:   "cyclone_tracks",
}

// Store wraps a PostGIS-enabled connection pool.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open connects to the configured database and verifies it is reachable.
func Open(cfg config.Database, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Store{db: db, logger: logger}, nil
}

// InitSchema enables PostGIS and creates a table plus GIST index per layer.
func (s *Store) InitSchema() error {
	if _, err := s.db.Exec(`CREATE EXTENSION IF NOT EXISTS postgis;`); err != nil {
		return fmt.Errorf("failed to enable postgis: %w", err)
	}

	for _, table := range layerTables {
		create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			properties JSONB NOT NULL DEFAULT '{}'::jsonb,
			geom GEOMETRY(GEOMETRY, 4326) NOT NULL
		);`, table)
		if _, err := s.db.Exec(create); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table, err)
		}

		index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_geom ON %s USING GIST (geom);`,
			table, table)
		if _, err := s.db.Exec(index); err != nil {
			return fmt.Errorf("failed to create spatial index on %s: %w", table, err)
		}
	}
	return nil
}

// ImportLayer replaces the stored rows for a layer with the given features.
// Features without geometry are skipped.
func (s *Store) ImportLayer(layer string, features models.FeatureSet) error {
	table, err := tableFor(layer)
	if err != nil {
		return err
	}

	stmt, err := s.db.Prepare(fmt.Sprintf(`
		INSERT INTO %s (id, properties, geom)
		VALUES ($1, $2, ST_SetSRID(ST_GeomFromGeoJSON($3), 4326))
	`, table))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM %s;`, table)); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear table %s: %w", table, err)
	}

	txStmt := tx.Stmt(stmt)
	start := time.Now()
	inserted := 0
	for _, f := range features {
		if f.Geometry == nil {
			continue
		}
		props := []byte(`{}`)
		if f.Properties != nil {
			if props, err = json.Marshal(f.Properties); err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to encode properties for %s: %w", f.ID, err)
			}
		}
		geom, err := json.Marshal(geojson.NewGeometry(f.Geometry))
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to encode geometry for %s: %w", f.ID, err)
		}
		if _, err := txStmt.Exec(f.ID, props, geom); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert feature %s: %w", f.ID, err)
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}

	s.logger.Info("imported layer",
		zap.String("layer", layer),
		zap.Int("features", inserted),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// LoadLayer reads a full layer back as a feature set.
func (s *Store) LoadLayer(layer string) (models.FeatureSet, error) {
	table, err := tableFor(layer)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(fmt.Sprintf(
		`SELECT id, properties::text, ST_AsGeoJSON(geom) FROM %s;`, table))
	if err != nil {
		return nil, fmt.Errorf("failed to query layer %s: %w", layer, err)
	}
	defer rows.Close()

	var features models.FeatureSet
	for rows.Next() {
		var id, props, geom string
		if err := rows.Scan(&id, &props, &geom); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		f, err := decodeFeature(id, props, geom)
		if err != nil {
			return nil, err
		}
		features = append(features, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return features, nil
}

// FindNearestFacilities returns facilities within maxDistanceKm of the
// point, closest first. The layer is typically hospitals or shelters.
func (s *Store) FindNearestFacilities(layer string, lat, lon float64, limit int, maxDistanceKm float64) ([]models.Facility, error) {
	table, err := tableFor(layer)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}

	query := fmt.Sprintf(`
		SELECT
			id,
			COALESCE(properties->>'name', '') AS name,
			COALESCE(properties->>'address', '') AS address,
			COALESCE((properties->>'capacity')::float8, 0) AS capacity,
			ST_AsGeoJSON(geom) AS geometry,
			ST_Distance(
				geom::geography,
				ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography
			) AS distance_meters
		FROM %s
		WHERE ST_DWithin(
			geom::geography,
			ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography,
			$3
		)
		ORDER BY distance_meters
		LIMIT $4
	`, table)

	rows, err := s.db.Query(query, lon, lat, maxDistanceKm*1000, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearest %s: %w", layer, err)
	}
	defer rows.Close()

	var facilities []models.Facility
	for rows.Next() {
		var (
			fac      models.Facility
			capacity float64
			geom     string
			meters   float64
		)
		if err := rows.Scan(&fac.ID, &fac.Name, &fac.Address, &capacity, &geom, &meters); err != nil {
			return nil, fmt.Errorf("failed to scan facility: %w", err)
		}
		g, err := geojson.UnmarshalGeometry([]byte(geom))
		if err != nil {
			return nil, fmt.Errorf("failed to decode facility geometry: %w", err)
		}
		fac.Geometry = g
		fac.Capacity = int(capacity)
		fac.DistanceMeters = round2(meters)
		fac.DistanceKm = round2(meters / 1000)
		facilities = append(facilities, fac)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return facilities, nil
}

// HazardZoneHit describes the active hazard zone containing a queried point.
type HazardZoneHit struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Severity string            `json:"severity"`
	Status   string            `json:"status"`
	Geometry *geojson.Geometry `json:"geometry"`
}

// CheckPointInHazardZone returns the first active hazard zone intersecting
// the point, or nil when the point is clear. Zones without a status
// property count as active.
func (s *Store) CheckPointInHazardZone(lat, lon float64) (*HazardZoneHit, error) {
	query := `
		SELECT
			id,
			COALESCE(properties->>'name', '') AS name,
			COALESCE(properties->>'severity', '') AS severity,
			COALESCE(properties->>'status', 'active') AS status,
			ST_AsGeoJSON(geom) AS geometry
		FROM hazard_zones
		WHERE COALESCE(properties->>'status', 'active') = 'active'
		AND ST_Intersects(geom, ST_SetSRID(ST_MakePoint($1, $2), 4326))
		LIMIT 1
	`

	var (
		hit  HazardZoneHit
		geom string
	)
	err := s.db.QueryRow(query, lon, lat).Scan(&hit.ID, &hit.Name, &hit.Severity, &hit.Status, &geom)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check hazard zones: %w", err)
	}

	g, err := geojson.UnmarshalGeometry([]byte(geom))
	if err != nil {
		return nil, fmt.Errorf("failed to decode zone geometry: %w", err)
	}
	hit.Geometry = g
	return &hit, nil
}

// Close closes the connection pool.
func (s *Store) Close() error { return s.db.Close() }

func tableFor(layer string) (string, error) {
	table, ok := layerTables[layer]
	if !ok {
		return "", fmt.Errorf("unknown layer %q", layer)
	}
	return table, nil
}

func decodeFeature(id, props, geom string) (models.Feature, error) {
	f := models.Feature{ID: id}
	g, err := geojson.UnmarshalGeometry([]byte(geom))
	if err != nil {
		return f, fmt.Errorf("failed to decode geometry for %s: %w", id, err)
	}
	f.Geometry = g.Geometry()
	if err := json.Unmarshal([]byte(props), &f.Properties); err != nil {
		return f, fmt.Errorf("failed to decode properties for %s: %w", id, err)
	}
	return f, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
