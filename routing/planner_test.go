package routing

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ani3h/disaster-response-gis/config"
	"github.com/ani3h/disaster-response-gis/models"
	"github.com/ani3h/disaster-response-gis/network"
)

func testPlanner() *Planner {
	cfg := config.Default()
	return NewPlanner(cfg.GIS, cfg.Routing, zap.NewNop())
}

func road(id string, props geojson.Properties, pts ...orb.Point) models.Feature {
	return models.Feature{ID: id, Geometry: orb.LineString(pts), Properties: props}
}

func boxHazard(id string, minLon, minLat, maxLon, maxLat float64) models.Feature {
	return models.Feature{
		ID: id,
		Geometry: orb.Polygon{orb.Ring{
			{minLon, minLat}, {maxLon, minLat}, {maxLon, maxLat}, {minLon, maxLat}, {minLon, minLat},
		}},
		Properties: geojson.Properties{"status": "active"},
	}
}

// detourFixture is a straight road through the hazard area plus a northern
// arc around it.
func detourFixture() models.FeatureSet {
	return models.FeatureSet{
		road("direct", nil, orb.Point{0, 0}, orb.Point{0.03, 0}, orb.Point{0.06, 0}),
		road("detour", nil, orb.Point{0, 0}, orb.Point{0.03, 0.05}, orb.Point{0.06, 0}),
	}
}

func TestSafeRouteStraightSegmentNoHazards(t *testing.T) {
	p := testPlanner()
	roads := models.FeatureSet{
		road("r1", geojson.Properties{"road_type": "primary"}, orb.Point{0, 0}, orb.Point{0.01, 0.01}),
	}

	route, err := p.SafeRoute(roads, nil, Query{
		Start:        orb.Point{0, 0},
		End:          orb.Point{0.01, 0.01},
		AvoidHazards: true,
	})
	require.NoError(t, err)
	require.NotNil(t, route)

	assert.InDelta(t, 0.01*111000*math.Sqrt2, route.TotalDistanceM, 0.01)
	assert.Equal(t, 100.0, route.SafetyScore)
	assert.Equal(t, "safe", route.SafetyStatus)
	assert.Equal(t, 1, route.NumSegments)
	assert.Equal(t, 0, route.AvoidedZones)
	assert.False(t, route.ScoreDegraded)
	require.Len(t, route.Details, 1)
	assert.Equal(t, "primary", route.Details[0].RoadType)
}

func TestSafeRouteUnreachableWhenHazardStraddlesOnlyRoad(t *testing.T) {
	p := testPlanner()
	roads := models.FeatureSet{
		road("r1", nil, orb.Point{0, 0}, orb.Point{0.01, 0.01}),
	}
	hazards := models.FeatureSet{boxHazard("h1", 0.004, 0.004, 0.006, 0.006)}

	route, err := p.SafeRoute(roads, hazards, Query{
		Start:        orb.Point{0, 0},
		End:          orb.Point{0.01, 0.01},
		AvoidHazards: true,
	})
	assert.NoError(t, err)
	assert.Nil(t, route, "unreachable is a nil route, not an error")
}

func TestSafeRouteTakesDetourAroundHazard(t *testing.T) {
	p := testPlanner()
	hazards := models.FeatureSet{boxHazard("h1", 0.028, -0.001, 0.032, 0.001)}

	route, err := p.SafeRoute(detourFixture(), hazards, Query{
		Start:        orb.Point{0, 0},
		End:          orb.Point{0.06, 0},
		AvoidHazards: true,
	})
	require.NoError(t, err)
	require.NotNil(t, route)

	// Twice sqrt(0.03^2 + 0.05^2) degrees, scaled to meters.
	assert.InDelta(t, 12944.71, route.TotalDistanceM, 0.1)
	assert.Equal(t, 2, route.NumSegments)
	assert.Equal(t, 1, route.AvoidedZones)
	assert.Greater(t, route.SafetyScore, 0.0)
	assert.Less(t, route.SafetyScore, 100.0)
}

func TestSafeRouteBufferOverride(t *testing.T) {
	p := testPlanner()
	// Hazard sits 0.002 degrees (~220 m) north of the direct road.
	hazards := models.FeatureSet{boxHazard("h1", 0.028, 0.002, 0.032, 0.004)}

	q := Query{Start: orb.Point{0, 0}, End: orb.Point{0.06, 0}, AvoidHazards: true}

	// Default 1000 m buffer reaches the road, forcing the detour.
	route, err := p.SafeRoute(detourFixture(), hazards, q)
	require.NoError(t, err)
	require.NotNil(t, route)
	assert.InDelta(t, 12944.71, route.TotalDistanceM, 0.1)

	// A 100 m buffer leaves the direct road usable.
	q.BufferM = 100
	route, err = p.SafeRoute(detourFixture(), hazards, q)
	require.NoError(t, err)
	require.NotNil(t, route)
	assert.InDelta(t, 6660, route.TotalDistanceM, 0.01)
}

func TestSafeRouteExcludesBlockedRoads(t *testing.T) {
	p := testPlanner()
	roads := models.FeatureSet{
		road("r1", geojson.Properties{"is_blocked": true}, orb.Point{0, 0}, orb.Point{0.01, 0}),
	}

	route, err := p.SafeRoute(roads, nil, Query{
		Start:        orb.Point{0, 0},
		End:          orb.Point{0.01, 0},
		AvoidHazards: true,
	})
	assert.NoError(t, err)
	assert.Nil(t, route)
}

func TestSafeRouteWithAvoidanceDisabled(t *testing.T) {
	p := testPlanner()
	roads := models.FeatureSet{
		road("r1", nil, orb.Point{0, 0}, orb.Point{0.01, 0}),
	}
	hazards := models.FeatureSet{boxHazard("h1", 0.004, -0.001, 0.006, 0.001)}

	route, err := p.SafeRoute(roads, hazards, Query{
		Start: orb.Point{0, 0},
		End:   orb.Point{0.01, 0},
	})
	require.NoError(t, err)
	require.NotNil(t, route, "avoidance disabled keeps the hazardous road")

	assert.Equal(t, 0, route.AvoidedZones)
	assert.Equal(t, 0.0, route.SafetyScore, "route through a hazard scores zero")
}

func TestSafeRouteEmptyRoadSet(t *testing.T) {
	p := testPlanner()

	route, err := p.SafeRoute(nil, nil, Query{Start: orb.Point{0, 0}, End: orb.Point{1, 1}})
	assert.NoError(t, err)
	assert.Nil(t, route)
}

func TestSafeRouteRejectsNonFiniteCoordinates(t *testing.T) {
	p := testPlanner()
	roads := models.FeatureSet{road("r1", nil, orb.Point{0, 0}, orb.Point{0.01, 0})}

	_, err := p.SafeRoute(roads, nil, Query{Start: orb.Point{math.NaN(), 0}, End: orb.Point{0.01, 0}})
	assert.Error(t, err)

	_, err = p.SafeRoute(roads, nil, Query{Start: orb.Point{0, 0}, End: orb.Point{math.Inf(1), 0}})
	assert.Error(t, err)
}

func TestSafeRouteSnapsToNearestNode(t *testing.T) {
	p := testPlanner()
	roads := models.FeatureSet{
		road("r1", nil, orb.Point{0, 0}, orb.Point{0.03, 0}, orb.Point{0.06, 0}),
	}

	route, err := p.SafeRoute(roads, nil, Query{
		Start: orb.Point{-0.002, 0.001},
		End:   orb.Point{0.062, -0.001},
	})
	require.NoError(t, err)
	require.NotNil(t, route)

	assert.Equal(t, orb.Point{0, 0}, route.Path[0])
	assert.Equal(t, orb.Point{0.06, 0}, route.Path[len(route.Path)-1])
	assert.InDelta(t, 6660, route.TotalDistanceM, 0.01)
}

func TestSafeRouteAdjacentNodesSingleSegment(t *testing.T) {
	p := testPlanner()
	roads := models.FeatureSet{
		road("r1", nil, orb.Point{0, 0}, orb.Point{0.03, 0}, orb.Point{0.06, 0}),
	}
	g := network.Build(roads, config.Default().GIS)

	mid, ok := g.NearestNode(orb.Point{0.03, 0})
	require.True(t, ok)
	end, ok := g.NearestNode(orb.Point{0.06, 0})
	require.True(t, ok)
	edge, ok := g.EdgeBetween(mid.ID, end.ID)
	require.True(t, ok)

	route, err := p.SafeRoute(roads, nil, Query{Start: mid.Point(), End: end.Point()})
	require.NoError(t, err)
	require.NotNil(t, route)

	assert.Equal(t, 1, route.NumSegments)
	assert.Equal(t, round2(edge.LengthM), route.TotalDistanceM)
}

func TestSafeRouteAStarMatchesDijkstra(t *testing.T) {
	p := testPlanner()
	roads := detourFixture()
	q := Query{Start: orb.Point{0, 0}, End: orb.Point{0.06, 0}}

	dj, err := p.SafeRoute(roads, nil, q)
	require.NoError(t, err)
	require.NotNil(t, dj)

	q.Algorithm = "astar"
	as, err := p.SafeRoute(roads, nil, q)
	require.NoError(t, err)
	require.NotNil(t, as)

	assert.Equal(t, dj.TotalDistanceM, as.TotalDistanceM)
	assert.Equal(t, dj.Path, as.Path)
}

func TestScoreSafety(t *testing.T) {
	p := testPlanner()
	route := orb.LineString{{0, 0}, {0.01, 0}}

	score, degraded := p.ScoreSafety(route, nil)
	assert.Equal(t, 100.0, score, "no hazards means maximally safe")
	assert.False(t, degraded)

	// Hazard 0.01 degrees north of the route.
	far := models.FeatureSet{boxHazard("h1", 0, 0.01, 0.01, 0.02)}
	score, degraded = p.ScoreSafety(route, far)
	assert.False(t, degraded)
	assert.InDelta(t, 19.91, score, 0.005)

	// Touching a hazard scores exactly zero.
	touching := models.FeatureSet{boxHazard("h2", 0.004, -0.001, 0.006, 0.001)}
	score, degraded = p.ScoreSafety(route, touching)
	assert.False(t, degraded)
	assert.Equal(t, 0.0, score)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.Less(t, score, 100.0)
}

func TestScoreSafetyDegraded(t *testing.T) {
	p := testPlanner()

	score, degraded := p.ScoreSafety(nil, models.FeatureSet{boxHazard("h1", 0, 0, 1, 1)})
	assert.Equal(t, 50.0, score)
	assert.True(t, degraded, "empty route cannot be scored")

	score, degraded = p.ScoreSafety(orb.LineString{{0, 0}, {1, 0}}, models.FeatureSet{{ID: "h"}})
	assert.Equal(t, 50.0, score)
	assert.True(t, degraded, "hazard without geometry cannot be scored")
}

func TestAlternativesTwoDistinctRoutes(t *testing.T) {
	p := testPlanner()
	roads := models.FeatureSet{
		road("short", nil, orb.Point{0, 0}, orb.Point{0.01, 0}, orb.Point{0.01, 0.01}),
		road("long", nil, orb.Point{0, 0}, orb.Point{-0.005, 0.005}, orb.Point{0.01, 0.01}),
	}
	g := network.Build(roads, config.Default().GIS)

	routes := p.Alternatives(g, orb.Point{0, 0}, orb.Point{0.01, 0.01}, 3)
	require.Len(t, routes, 2, "only two loopless paths exist")

	assert.Equal(t, 1, routes[0].RouteNumber)
	assert.Equal(t, 2, routes[1].RouteNumber)
	assert.InDelta(t, 2220, routes[0].TotalDistanceM, 0.01)
	assert.InDelta(t, 2539.95, routes[1].TotalDistanceM, 0.01)
	assert.Less(t, routes[0].TotalDistanceM, routes[1].TotalDistanceM)
}

func TestAlternativesDefaultK(t *testing.T) {
	p := testPlanner()
	roads := models.FeatureSet{
		road("r1", nil, orb.Point{0, 0}, orb.Point{0.01, 0}),
	}
	g := network.Build(roads, config.Default().GIS)

	routes := p.Alternatives(g, orb.Point{0, 0}, orb.Point{0.01, 0}, 0)
	require.Len(t, routes, 1)
	assert.Equal(t, 1, routes[0].RouteNumber)
}

func TestAlternativesHopCutoff(t *testing.T) {
	cfg := config.Default()
	cfg.Routing.HopCutoff = 1
	p := NewPlanner(cfg.GIS, cfg.Routing, zap.NewNop())

	roads := models.FeatureSet{
		road("r1", nil, orb.Point{0, 0}, orb.Point{0.01, 0}, orb.Point{0.02, 0}),
	}
	g := network.Build(roads, cfg.GIS)

	routes := p.Alternatives(g, orb.Point{0, 0}, orb.Point{0.02, 0}, 3)
	assert.Empty(t, routes, "every path exceeds the hop cutoff")
}

func TestAlternativesDisconnected(t *testing.T) {
	p := testPlanner()
	roads := models.FeatureSet{
		road("west", nil, orb.Point{0, 0}, orb.Point{0.01, 0}),
		road("east", nil, orb.Point{1, 1}, orb.Point{1.01, 1}),
	}
	g := network.Build(roads, config.Default().GIS)

	routes := p.Alternatives(g, orb.Point{0, 0}, orb.Point{1.01, 1}, 3)
	assert.Empty(t, routes)
}

func TestAlternativesEmptyGraph(t *testing.T) {
	p := testPlanner()
	g := network.Build(nil, config.Default().GIS)

	routes := p.Alternatives(g, orb.Point{0, 0}, orb.Point{1, 1}, 3)
	assert.Empty(t, routes)
}
