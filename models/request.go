package models

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// RoutePoint is a {"lat": .., "lon": ..} request coordinate.
type RoutePoint struct {
	Lat float64 `json:"lat" binding:"required"`
	Lon float64 `json:"lon" binding:"required"`
}

// Point returns the coordinate as an orb (lon, lat) point.
func (p RoutePoint) Point() orb.Point { return orb.Point{p.Lon, p.Lat} }

type SafeRouteRequest struct {
	Start              RoutePoint `json:"start" binding:"required"`
	End                RoutePoint `json:"end" binding:"required"`
	AvoidDisasterZones *bool      `json:"avoid_disaster_zones,omitempty"`
	BufferMeters       float64    `json:"buffer_meters,omitempty"`
	Algorithm          string     `json:"algorithm,omitempty"`
}

// Avoid reports whether hazard zones should be excluded; defaults to true.
func (r SafeRouteRequest) Avoid() bool {
	return r.AvoidDisasterZones == nil || *r.AvoidDisasterZones
}

type AlternativeRoutesRequest struct {
	Start     RoutePoint `json:"start" binding:"required"`
	End       RoutePoint `json:"end" binding:"required"`
	NumRoutes int        `json:"num_routes,omitempty"`
}

type DistanceRequest struct {
	Point1 RoutePoint `json:"point1" binding:"required"`
	Point2 RoutePoint `json:"point2" binding:"required"`
}

// LocationRequest carries a bare latitude/longitude pair.
type LocationRequest struct {
	Latitude  float64 `json:"latitude" binding:"required"`
	Longitude float64 `json:"longitude" binding:"required"`
}

// Point returns the coordinate as an orb (lon, lat) point.
func (r LocationRequest) Point() orb.Point { return orb.Point{r.Longitude, r.Latitude} }

type NearestFacilitiesRequest struct {
	Latitude      float64 `json:"latitude" binding:"required"`
	Longitude     float64 `json:"longitude" binding:"required"`
	Limit         int     `json:"limit,omitempty"`
	MaxDistanceKm float64 `json:"max_distance_km,omitempty"`
}

func (r NearestFacilitiesRequest) Point() orb.Point { return orb.Point{r.Longitude, r.Latitude} }

// ImpactAnalysisRequest selects a stored hazard zone by ID or supplies an
// ad-hoc zone geometry to analyze.
type ImpactAnalysisRequest struct {
	DisasterZoneID *int              `json:"disaster_zone_id,omitempty"`
	Geometry       *geojson.Geometry `json:"geometry,omitempty"`
}

type SafeZonesRequest struct {
	BufferDistanceMeters float64 `json:"buffer_distance_meters,omitempty"`
}
