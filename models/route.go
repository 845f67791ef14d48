package models

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// RouteSegment describes one traversed edge of a computed route.
// From and To are [lon, lat] pairs.
type RouteSegment struct {
	From     [2]float64 `json:"from"`
	To       [2]float64 `json:"to"`
	LengthM  float64    `json:"length_m"`
	RoadType string     `json:"road_type"`
}

// Route is the result of a path query: the ordered coordinate sequence,
// total distance, per-segment details and a derived safety score.
// Routes are computed on demand and never cached by the core.
type Route struct {
	Path            []orb.Point       `json:"path_coordinates"`
	Geometry        *geojson.Geometry `json:"geometry,omitempty"`
	TotalDistanceM  float64           `json:"total_distance_meters"`
	TotalDistanceKm float64           `json:"total_distance_km"`
	NumSegments     int               `json:"num_segments"`
	Details         []RouteSegment    `json:"path_details,omitempty"`
	SafetyScore     float64           `json:"safety_score"`
	SafetyStatus    string            `json:"safety_status,omitempty"`
	AvoidedZones    int               `json:"avoided_disaster_zones"`
	RouteNumber     int               `json:"route_number,omitempty"`

	// ScoreDegraded is set when the safety score fell back to the neutral
	// default because scoring itself failed. Not serialized.
	ScoreDegraded bool `json:"-"`
}

// LineString returns the route geometry as an orb LineString.
func (r *Route) LineString() orb.LineString {
	ls := make(orb.LineString, len(r.Path))
	copy(ls, r.Path)
	return ls
}
