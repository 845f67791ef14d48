// Package routing computes hazard-avoiding shortest routes over road
// networks: filter the road set, build a graph, snap the endpoints, search,
// then score the result by its distance to the nearest hazard.
package routing

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/ani3h/disaster-response-gis/config"
	"github.com/ani3h/disaster-response-gis/geometry"
	"github.com/ani3h/disaster-response-gis/models"
	"github.com/ani3h/disaster-response-gis/network"
)

// Query is a single routing request. Coordinates are (lon, lat) degrees.
type Query struct {
	Start orb.Point
	End   orb.Point

	// AvoidHazards excludes roads near hazard zones from the search.
	// Blocked roads are excluded regardless.
	AvoidHazards bool

	// BufferM overrides the configured hazard buffer when positive.
	BufferM float64

	// Algorithm overrides the configured search ("dijkstra" or "astar").
	Algorithm string
}

// Planner answers route queries against road and hazard layers. Every call
// builds its own graph from a fresh road snapshot, so hazard updates between
// calls never leak stale state into a route.
type Planner struct {
	gis     config.GIS
	routing config.Routing
	logger  *zap.Logger
}

func NewPlanner(gis config.GIS, routing config.Routing, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{gis: gis, routing: routing, logger: logger}
}

// SafeRoute computes the shortest route between the query endpoints over
// roads that stay clear of the given hazard zones. A (nil, nil) return means
// no safe route exists, a normal outcome rather than a fault.
func (p *Planner) SafeRoute(roads, hazards models.FeatureSet, q Query) (*models.Route, error) {
	if !finitePoint(q.Start) || !finitePoint(q.End) {
		return nil, fmt.Errorf("routing: query coordinates must be finite")
	}

	avoid := hazards
	if !q.AvoidHazards {
		avoid = nil
	}

	safe := p.SafeRoads(roads, avoid, q.BufferM)
	p.logger.Debug("filtered road set",
		zap.Int("roads", len(roads)),
		zap.Int("safe", len(safe)),
		zap.Int("hazard_zones", len(avoid)))
	if safe.IsEmpty() {
		return nil, nil
	}

	g := network.Build(safe, p.gis)
	if g.NumNodes() == 0 {
		return nil, nil
	}

	route := p.shortestRoute(g, q.Start, q.End, q.Algorithm)
	if route == nil {
		return nil, nil
	}

	route.SafetyStatus = "safe"
	route.AvoidedZones = len(avoid)

	score, degraded := p.ScoreSafety(route.LineString(), hazards)
	route.SafetyScore = score
	route.ScoreDegraded = degraded
	if degraded {
		p.logger.Warn("safety scoring failed, using neutral score",
			zap.Float64("score", score))
	}
	return route, nil
}

// SafeRoads returns the roads that remain usable: roads flagged is_blocked
// are dropped, and when hazard zones are present every road intersecting a
// zone buffered by bufferM meters is dropped too. Non-positive bufferM uses
// the configured default.
func (p *Planner) SafeRoads(roads, hazards models.FeatureSet, bufferM float64) models.FeatureSet {
	if bufferM <= 0 {
		bufferM = p.gis.HazardBufferM
	}

	zones := hazards
	if len(hazards) > 0 {
		buffered, err := geometry.Buffer(hazards, bufferM)
		if err != nil {
			p.logger.Warn("hazard buffering degraded", zap.Error(err))
		}
		zones = buffered
	}

	safe := make(models.FeatureSet, 0, len(roads))
	for _, road := range roads {
		if road.Properties.MustBool("is_blocked", false) {
			continue
		}
		if intersectsAny(road.Geometry, zones) {
			continue
		}
		safe = append(safe, road)
	}
	return safe
}

// ScoreSafety rates a route from 0 to 100 by its distance to the nearest
// hazard zone: 100 with no hazards at all, 0 when the route touches one,
// saturating toward 100 on the configured scale. The bool reports that
// scoring failed and the neutral 50 was used instead.
func (p *Planner) ScoreSafety(route orb.LineString, hazards models.FeatureSet) (float64, bool) {
	if len(hazards) == 0 {
		return 100, false
	}
	if len(route) == 0 {
		return 50, true
	}

	min := math.Inf(1)
	for _, h := range hazards {
		if d := geometry.MinDistance(route, h.Geometry); d < min {
			min = d
		}
	}
	if math.IsNaN(min) || math.IsInf(min, 1) {
		return 50, true
	}

	score := 100 * (1 - math.Exp(-min*p.gis.MetersPerDegree/p.routing.SafetyScaleM))
	return round2(score), false
}

func (p *Planner) shortestRoute(g *network.Graph, start, end orb.Point, algorithm string) *models.Route {
	from, ok := g.NearestNode(start)
	if !ok {
		return nil
	}
	to, ok := g.NearestNode(end)
	if !ok {
		return nil
	}

	if algorithm == "" {
		algorithm = p.routing.Algorithm
	}
	var (
		path  []int64
		dist  float64
		found bool
	)
	if algorithm == "astar" {
		path, dist, found = astar(g, from.ID, to.ID)
	} else {
		path, dist, found = dijkstra(g, from.ID, to.ID)
	}
	if !found {
		return nil
	}
	return assembleRoute(g, path, dist)
}

// assembleRoute converts a node path into the route response shape.
func assembleRoute(g *network.Graph, path []int64, dist float64) *models.Route {
	pts := make([]orb.Point, len(path))
	for i, id := range path {
		pts[i] = g.Nodes[id].Point()
	}

	details := make([]models.RouteSegment, 0, len(path)-1)
	for i := 0; i+1 < len(path); i++ {
		seg := models.RouteSegment{
			From: [2]float64{pts[i][0], pts[i][1]},
			To:   [2]float64{pts[i+1][0], pts[i+1][1]},
		}
		if e, ok := g.EdgeBetween(path[i], path[i+1]); ok {
			seg.LengthM = e.LengthM
			seg.RoadType = e.RoadType
		}
		details = append(details, seg)
	}

	line := make(orb.LineString, len(pts))
	copy(line, pts)
	return &models.Route{
		Path:            pts,
		Geometry:        geojson.NewGeometry(line),
		TotalDistanceM:  round2(dist),
		TotalDistanceKm: round2(dist / 1000),
		NumSegments:     len(path) - 1,
		Details:         details,
	}
}

func intersectsAny(g orb.Geometry, zones models.FeatureSet) bool {
	for _, z := range zones {
		if geometry.Intersects(g, z.Geometry) {
			return true
		}
	}
	return false
}

func finitePoint(p orb.Point) bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
