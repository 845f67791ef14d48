// Package config holds the explicit configuration passed into the core
// packages. Nothing here is ambient: callers construct a Config (usually
// via Load) and hand the relevant section to each component.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full application configuration.
type Config struct {
	Server   Server
	GIS      GIS
	Routing  Routing
	Database Database
	Feed     Feed
	Data     Data
}

// Server configures the HTTP listener.
type Server struct {
	Host        string
	Port        int
	Environment string
}

func (s Server) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

func (s Server) IsProduction() bool { return s.Environment == "production" }

// GIS holds the spatial constants shared by the network builder, route
// planner and impact analyzer. All distances are meters, epsilon is degrees.
type GIS struct {
	// MetersPerDegree converts planar degree-space distances to meters.
	// 111000 is a small-extent approximation, not geodesic.
	MetersPerDegree float64

	// SnapEpsilonDeg quantizes road endpoint coordinates when building the
	// graph node table. Zero restores exact float equality.
	SnapEpsilonDeg float64

	HazardBufferM   float64
	SafeZoneBufferM float64
	ShelterSearchM  float64
}

// Routing configures the route planner.
type Routing struct {
	// Algorithm selects the shortest-path search: "dijkstra" or "astar".
	Algorithm string

	// NumAlternatives is the default k for alternative-route queries.
	NumAlternatives int

	// HopCutoff bounds the length, in edges, of any candidate path
	// considered during alternative-route search.
	HopCutoff int

	// SafetyScaleM is the exponential-decay scale of the safety score.
	SafetyScaleM float64
}

// Database configures the optional PostGIS adapter.
type Database struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
}

// Configured reports whether a database connection should be attempted.
func (d Database) Configured() bool { return d.Host != "" && d.Name != "" }

// DSN builds a lib/pq connection string.
func (d Database) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name)
}

// Feed configures the live hazard feed client and its refresh schedule.
type Feed struct {
	APIKey          string
	BaseURL         string
	CenterLat       float64
	CenterLon       float64
	RadiusKm        float64
	CacheTTL        time.Duration
	RefreshInterval time.Duration
}

// Data configures file-based layer loading and response caching.
type Data struct {
	Dir      string
	CacheTTL time.Duration
}

// Default returns the built-in configuration: Kerala-centered feed area,
// standard buffer distances and a quantization epsilon of 1e-6 degrees
// (~0.11 m).
func Default() Config {
	return Config{
		Server: Server{
			Host:        "0.0.0.0",
			Port:        8080,
			Environment: "development",
		},
		GIS: GIS{
			MetersPerDegree: 111000,
			SnapEpsilonDeg:  1e-6,
			HazardBufferM:   1000,
			SafeZoneBufferM: 5000,
			ShelterSearchM:  50000,
		},
		Routing: Routing{
			Algorithm:       "dijkstra",
			NumAlternatives: 3,
			HopCutoff:       50,
			SafetyScaleM:    5000,
		},
		Database: Database{
			Port: 5432,
			User: "postgres",
		},
		Feed: Feed{
			BaseURL:         "https://api.ambeedata.com/disasters/latest/by-lat-lng",
			CenterLat:       10.352874,
			CenterLon:       76.512039,
			RadiusKm:        250,
			CacheTTL:        time.Hour,
			RefreshInterval: time.Hour,
		},
		Data: Data{
			Dir:      "data/layers",
			CacheTTL: 5 * time.Minute,
		},
	}
}

// Load builds a Config from environment variables on top of Default.
func Load() Config {
	cfg := Default()

	cfg.Server.Host = getEnv("HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("PORT", cfg.Server.Port)
	cfg.Server.Environment = getEnv("ENVIRONMENT", cfg.Server.Environment)

	cfg.GIS.MetersPerDegree = getEnvFloat("METERS_PER_DEGREE", cfg.GIS.MetersPerDegree)
	cfg.GIS.SnapEpsilonDeg = getEnvFloat("SNAP_EPSILON_DEG", cfg.GIS.SnapEpsilonDeg)
	cfg.GIS.HazardBufferM = getEnvFloat("HAZARD_BUFFER_METERS", cfg.GIS.HazardBufferM)
	cfg.GIS.SafeZoneBufferM = getEnvFloat("SAFE_ZONE_BUFFER_METERS", cfg.GIS.SafeZoneBufferM)
	cfg.GIS.ShelterSearchM = getEnvFloat("SHELTER_SEARCH_METERS", cfg.GIS.ShelterSearchM)

	cfg.Routing.Algorithm = getEnv("ROUTING_ALGORITHM", cfg.Routing.Algorithm)
	cfg.Routing.NumAlternatives = getEnvInt("ROUTING_ALTERNATIVES", cfg.Routing.NumAlternatives)
	cfg.Routing.HopCutoff = getEnvInt("ROUTING_HOP_CUTOFF", cfg.Routing.HopCutoff)
	cfg.Routing.SafetyScaleM = getEnvFloat("SAFETY_SCALE_METERS", cfg.Routing.SafetyScaleM)

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvInt("DB_PORT", cfg.Database.Port)
	cfg.Database.Name = getEnv("DB_NAME", cfg.Database.Name)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)

	cfg.Feed.APIKey = getEnv("AMBEE_API_KEY", cfg.Feed.APIKey)
	cfg.Feed.BaseURL = getEnv("AMBEE_BASE_URL", cfg.Feed.BaseURL)
	cfg.Feed.CenterLat = getEnvFloat("FEED_CENTER_LAT", cfg.Feed.CenterLat)
	cfg.Feed.CenterLon = getEnvFloat("FEED_CENTER_LON", cfg.Feed.CenterLon)
	cfg.Feed.RadiusKm = getEnvFloat("FEED_RADIUS_KM", cfg.Feed.RadiusKm)
	cfg.Feed.CacheTTL = getEnvDuration("FEED_CACHE_TTL", cfg.Feed.CacheTTL)
	cfg.Feed.RefreshInterval = getEnvDuration("FEED_REFRESH_INTERVAL", cfg.Feed.RefreshInterval)

	cfg.Data.Dir = getEnv("DATA_DIR", cfg.Data.Dir)
	cfg.Data.CacheTTL = getEnvDuration("CACHE_TTL", cfg.Data.CacheTTL)

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
