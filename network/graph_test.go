package network

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ani3h/disaster-response-gis/config"
	"github.com/ani3h/disaster-response-gis/models"
)

func gisConfig() config.GIS {
	return config.Default().GIS
}

func road(id string, props geojson.Properties, pts ...orb.Point) models.Feature {
	return models.Feature{ID: id, Geometry: orb.LineString(pts), Properties: props}
}

func TestBuildSingleSegment(t *testing.T) {
	roads := models.FeatureSet{
		road("r1", geojson.Properties{"road_type": "primary"}, orb.Point{0, 0}, orb.Point{0.01, 0.01}),
	}

	g := Build(roads, gisConfig())

	assert.Equal(t, 2, g.NumNodes())
	assert.Equal(t, 1, g.NumEdges())

	from, ok := g.NearestNode(orb.Point{0, 0})
	require.True(t, ok)
	to, ok := g.NearestNode(orb.Point{0.01, 0.01})
	require.True(t, ok)

	edge, ok := g.EdgeBetween(from.ID, to.ID)
	require.True(t, ok)
	assert.Equal(t, "primary", edge.RoadType)
	assert.InDelta(t, 0.01*111000*math.Sqrt2, edge.LengthM, 1e-6)

	// Undirected: the reverse edge exists with the same weight.
	back, ok := g.EdgeBetween(to.ID, from.ID)
	require.True(t, ok)
	assert.Equal(t, edge.LengthM, back.LengthM)
}

func TestBuildSharedEndpointConnects(t *testing.T) {
	roads := models.FeatureSet{
		road("r1", nil, orb.Point{0, 0}, orb.Point{0.01, 0}),
		road("r2", nil, orb.Point{0.01, 0}, orb.Point{0.02, 0}),
	}

	g := Build(roads, gisConfig())

	// The shared vertex is a single node.
	assert.Equal(t, 3, g.NumNodes())
	assert.Equal(t, 2, g.NumEdges())

	mid, ok := g.NearestNode(orb.Point{0.01, 0})
	require.True(t, ok)
	assert.Len(t, g.Edges[mid.ID], 2)
}

func TestBuildEdgeCountMatchesConsecutivePairs(t *testing.T) {
	roads := models.FeatureSet{
		road("r1", nil, orb.Point{0, 0}, orb.Point{0.01, 0}, orb.Point{0.02, 0}, orb.Point{0.03, 0}),
		road("r2", nil, orb.Point{0.1, 0}, orb.Point{0.1, 0.01}),
	}

	g := Build(roads, gisConfig())

	// 3 pairs on r1 + 1 pair on r2.
	assert.Equal(t, 4, g.NumEdges())
	assert.LessOrEqual(t, g.NumNodes(), 2*4)
}

func TestBuildQuantizationMergesCloseEndpoints(t *testing.T) {
	cfg := gisConfig()
	cfg.SnapEpsilonDeg = 1e-6

	// Endpoints differ by a tenth of the epsilon grid.
	roads := models.FeatureSet{
		road("r1", nil, orb.Point{0, 0}, orb.Point{0.01, 0}),
		road("r2", nil, orb.Point{0.01 + 1e-7, 0}, orb.Point{0.02, 0}),
	}

	g := Build(roads, cfg)
	assert.Equal(t, 3, g.NumNodes(), "near-identical endpoints should share a node")

	// With exact identity the float noise splits the junction.
	cfg.SnapEpsilonDeg = 0
	g = Build(roads, cfg)
	assert.Equal(t, 4, g.NumNodes())
}

func TestBuildDegenerateAndEmptyInputs(t *testing.T) {
	single := models.FeatureSet{road("point", nil, orb.Point{1, 1})}
	g := Build(single, gisConfig())
	assert.Equal(t, 0, g.NumEdges())

	g = Build(nil, gisConfig())
	assert.Equal(t, 0, g.NumNodes())
	assert.Equal(t, 0, g.NumEdges())

	// Non-line geometry contributes nothing.
	polygon := models.FeatureSet{{ID: "z", Geometry: orb.Polygon{orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}}}
	g = Build(polygon, gisConfig())
	assert.Equal(t, 0, g.NumNodes())
}

func TestBuildMultiLineString(t *testing.T) {
	roads := models.FeatureSet{{
		ID: "m1",
		Geometry: orb.MultiLineString{
			{{0, 0}, {0.01, 0}},
			{{0.05, 0}, {0.06, 0}},
		},
	}}

	g := Build(roads, gisConfig())
	assert.Equal(t, 4, g.NumNodes())
	assert.Equal(t, 2, g.NumEdges())
}

func TestBuildCarriesBlockedFlag(t *testing.T) {
	roads := models.FeatureSet{
		road("r1", geojson.Properties{"is_blocked": true, "condition": "flooded"}, orb.Point{0, 0}, orb.Point{0.01, 0}),
	}

	g := Build(roads, gisConfig())
	from, _ := g.NearestNode(orb.Point{0, 0})
	to, _ := g.NearestNode(orb.Point{0.01, 0})

	edge, ok := g.EdgeBetween(from.ID, to.ID)
	require.True(t, ok)
	assert.True(t, edge.IsBlocked)
	assert.Equal(t, "flooded", edge.Condition)
}

func TestNearestNode(t *testing.T) {
	roads := models.FeatureSet{
		road("r1", nil, orb.Point{0, 0}, orb.Point{0.01, 0}),
	}
	g := Build(roads, gisConfig())

	n, ok := g.NearestNode(orb.Point{0.0001, 0.0001})
	require.True(t, ok)
	assert.Equal(t, 0.0, n.Lon)
	assert.Equal(t, 0.0, n.Lat)

	empty := NewGraph(111000)
	_, ok = empty.NearestNode(orb.Point{0, 0})
	assert.False(t, ok)
}

func TestEdgeBetweenPrefersShorterParallelEdge(t *testing.T) {
	g := NewGraph(111000)
	a := g.nodeFor(orb.Point{0, 0}, 0)
	b := g.nodeFor(orb.Point{0.01, 0}, 0)
	g.Edges[a] = append(g.Edges[a], Edge{FromID: a, ToID: b, LengthM: 500, RoadID: "long"})
	g.Edges[a] = append(g.Edges[a], Edge{FromID: a, ToID: b, LengthM: 200, RoadID: "short"})

	edge, ok := g.EdgeBetween(a, b)
	require.True(t, ok)
	assert.Equal(t, "short", edge.RoadID)

	_, ok = g.EdgeBetween(b, a)
	assert.False(t, ok, "edges added manually only one way")
}

func TestDegreeDistance(t *testing.T) {
	assert.Equal(t, 0.0, DegreeDistance(orb.Point{1, 2}, orb.Point{1, 2}))
	assert.InDelta(t, 0.05, DegreeDistance(orb.Point{0, 0}, orb.Point{0.03, 0.04}), 1e-12)
}
