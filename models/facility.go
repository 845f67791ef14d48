package models

import "github.com/paulmach/orb/geojson"

// Facility is one nearest-facility query result, ordered by distance from
// the query point.
type Facility struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Address        string            `json:"address,omitempty"`
	Capacity       int               `json:"capacity"`
	Geometry       *geojson.Geometry `json:"geometry"`
	DistanceMeters float64           `json:"distance_meters"`
	DistanceKm     float64           `json:"distance_km"`
}
