// Package network builds weighted road graphs from road line features.
// Node identity is a quantized (lon, lat) coordinate: roads whose endpoints
// fall on the same grid cell connect automatically, without an explicit
// topology table in the input data.
package network

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/ani3h/disaster-response-gis/config"
	"github.com/ani3h/disaster-response-gis/models"
)

// Node is a graph vertex at a road endpoint or intermediate vertex.
type Node struct {
	ID  int64
	Lon float64
	Lat float64
}

// Point returns the node position as an orb (lon, lat) point.
func (n Node) Point() orb.Point { return orb.Point{n.Lon, n.Lat} }

// Edge is one traversable road segment between two nodes. Edges are stored
// once per direction, so every segment appears under both endpoints.
type Edge struct {
	FromID    int64
	ToID      int64
	LengthM   float64
	RoadID    string
	RoadType  string
	IsBlocked bool
	Condition string
}

// Graph is an undirected weighted multigraph over quantized coordinates.
type Graph struct {
	Nodes map[int64]Node
	Edges map[int64][]Edge

	// keys maps the quantized coordinate of every node back to its ID, so
	// repeated vertices resolve to the same node during the build.
	keys map[gridKey]int64

	// MetersPerDegree is the weight scaling the graph was built with,
	// kept for heuristics that must stay consistent with edge weights.
	MetersPerDegree float64
}

type gridKey struct {
	x, y int64
}

// NewGraph returns an empty graph using the given degree-to-meter scaling.
func NewGraph(metersPerDegree float64) *Graph {
	return &Graph{
		Nodes:           make(map[int64]Node),
		Edges:           make(map[int64][]Edge),
		keys:            make(map[gridKey]int64),
		MetersPerDegree: metersPerDegree,
	}
}

func (g *Graph) NumNodes() int { return len(g.Nodes) }

// NumEdges counts undirected edges; each is stored twice internally.
func (g *Graph) NumEdges() int {
	total := 0
	for _, edges := range g.Edges {
		total += len(edges)
	}
	return total / 2
}

// quantize maps a coordinate onto the epsilon grid. Epsilon zero keeps the
// raw float bits, restoring exact-equality node identity.
func quantize(v, epsilon float64) int64 {
	if epsilon <= 0 {
		return int64(math.Float64bits(v))
	}
	return int64(math.Round(v / epsilon))
}

func (g *Graph) nodeFor(p orb.Point, epsilon float64) int64 {
	key := gridKey{quantize(p[0], epsilon), quantize(p[1], epsilon)}
	if id, ok := g.keys[key]; ok {
		return id
	}
	id := int64(len(g.Nodes) + 1)
	g.keys[key] = id
	g.Nodes[id] = Node{ID: id, Lon: p[0], Lat: p[1]}
	return id
}

// DegreeDistance is the planar distance between two points in degree space.
func DegreeDistance(a, b orb.Point) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	return math.Sqrt(dx*dx + dy*dy)
}

// Build constructs a road graph from line features. Each consecutive vertex
// pair of every road becomes an undirected edge weighted by its planar
// degree-space length scaled to meters. Features without usable line
// geometry contribute nothing; a nil or empty input yields an empty graph,
// never a partial one, so callers detect "no route possible" uniformly.
func Build(roads models.FeatureSet, cfg config.GIS) *Graph {
	g := NewGraph(cfg.MetersPerDegree)
	for _, road := range roads {
		for _, line := range roadLines(road.Geometry) {
			g.addRoad(road, line, cfg)
		}
	}
	return g
}

func (g *Graph) addRoad(road models.Feature, line orb.LineString, cfg config.GIS) {
	roadType := road.Properties.MustString("road_type", "unknown")
	condition := road.Properties.MustString("condition", "unknown")
	blocked := road.Properties.MustBool("is_blocked", false)

	// A single-vertex road has no consecutive pairs and adds no edges.
	for i := 0; i < len(line)-1; i++ {
		from := line[i]
		to := line[i+1]
		fromID := g.nodeFor(from, cfg.SnapEpsilonDeg)
		toID := g.nodeFor(to, cfg.SnapEpsilonDeg)
		if fromID == toID {
			continue
		}
		edge := Edge{
			FromID:    fromID,
			ToID:      toID,
			LengthM:   DegreeDistance(from, to) * cfg.MetersPerDegree,
			RoadID:    road.ID,
			RoadType:  roadType,
			IsBlocked: blocked,
			Condition: condition,
		}
		g.Edges[fromID] = append(g.Edges[fromID], edge)
		g.Edges[toID] = append(g.Edges[toID], edge.reversed())
	}
}

func (e Edge) reversed() Edge {
	e.FromID, e.ToID = e.ToID, e.FromID
	return e
}

// roadLines extracts the line parts of a road geometry.
func roadLines(g orb.Geometry) []orb.LineString {
	switch v := g.(type) {
	case orb.LineString:
		return []orb.LineString{v}
	case orb.MultiLineString:
		return v
	case orb.Collection:
		var lines []orb.LineString
		for _, each := range v {
			lines = append(lines, roadLines(each)...)
		}
		return lines
	}
	return nil
}

// NearestNode finds the graph node closest to point by a linear scan in
// degree space. Returns false when the graph has no nodes.
func (g *Graph) NearestNode(point orb.Point) (Node, bool) {
	var nearest Node
	minDist := math.Inf(1)
	for _, node := range g.Nodes {
		if d := DegreeDistance(node.Point(), point); d < minDist {
			minDist = d
			nearest = node
		}
	}
	return nearest, !math.IsInf(minDist, 1)
}

// EdgeBetween returns the lightest edge connecting two nodes, if any.
// Parallel edges can exist when distinct roads share both endpoints.
func (g *Graph) EdgeBetween(fromID, toID int64) (Edge, bool) {
	var best Edge
	found := false
	for _, e := range g.Edges[fromID] {
		if e.ToID != toID {
			continue
		}
		if !found || e.LengthM < best.LengthM {
			best = e
			found = true
		}
	}
	return best, found
}
