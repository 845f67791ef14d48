package routing

import (
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/ani3h/disaster-response-gis/models"
	"github.com/ani3h/disaster-response-gis/network"
)

// weightedPath pairs a node path with its total weight in meters.
type weightedPath struct {
	nodes  []int64
	weight float64
}

// Alternatives returns up to k distinct loopless routes between start and
// end over an already-filtered graph, ordered by ascending length and
// numbered from 1. Paths longer than the configured hop cutoff are never
// returned; an empty result means the endpoints are not connected within
// that bound.
func (p *Planner) Alternatives(g *network.Graph, start, end orb.Point, k int) []*models.Route {
	if k <= 0 {
		k = p.routing.NumAlternatives
	}

	from, ok := g.NearestNode(start)
	if !ok {
		return nil
	}
	to, ok := g.NearestNode(end)
	if !ok {
		return nil
	}

	paths := yenKShortest(g, from.ID, to.ID, k, p.routing.HopCutoff)
	routes := make([]*models.Route, 0, len(paths))
	for i, wp := range paths {
		route := assembleRoute(g, wp.nodes, wp.weight)
		route.RouteNumber = i + 1
		routes = append(routes, route)
	}
	return routes
}

// yenKShortest enumerates the k shortest loopless paths (Yen's algorithm).
// hopCutoff bounds the edge count of every path considered, including the
// initial shortest path; non-positive means unbounded.
func yenKShortest(g *network.Graph, source, target int64, k, hopCutoff int) []weightedPath {
	best, weight, found := dijkstra(g, source, target)
	if !found {
		return nil
	}
	if exceedsHops(best, hopCutoff) {
		return nil
	}

	accepted := []weightedPath{{nodes: best, weight: weight}}
	seen := map[string]bool{pathKey(best): true}
	var candidates []weightedPath

	for len(accepted) < k {
		prev := accepted[len(accepted)-1].nodes

		for i := 0; i < len(prev)-1; i++ {
			spur := prev[i]
			root := prev[:i+1]

			mask := &searchMask{
				nodes: make(map[int64]bool),
				edges: make(map[edgeKey]bool),
			}
			for _, wp := range accepted {
				if sharesPrefix(wp.nodes, root) {
					mask.edges[edgeKey{wp.nodes[i], wp.nodes[i+1]}] = true
					mask.edges[edgeKey{wp.nodes[i+1], wp.nodes[i]}] = true
				}
			}
			for _, id := range root[:len(root)-1] {
				mask.nodes[id] = true
			}

			spurPath, spurWeight, ok := search(g, spur, target, nil, mask)
			if !ok {
				continue
			}

			total := append(append([]int64{}, root[:len(root)-1]...), spurPath...)
			if exceedsHops(total, hopCutoff) {
				continue
			}
			key := pathKey(total)
			if seen[key] {
				continue
			}
			seen[key] = true
			candidates = append(candidates, weightedPath{
				nodes:  total,
				weight: pathWeight(g, root) + spurWeight,
			})
		}

		if len(candidates) == 0 {
			break
		}
		sort.Slice(candidates, func(a, b int) bool { return candidates[a].weight < candidates[b].weight })
		accepted = append(accepted, candidates[0])
		candidates = candidates[1:]
	}

	return accepted
}

func exceedsHops(path []int64, hopCutoff int) bool {
	return hopCutoff > 0 && len(path)-1 > hopCutoff
}

// sharesPrefix reports whether path starts with root and continues at least
// one node beyond it.
func sharesPrefix(path, root []int64) bool {
	if len(path) < len(root)+1 {
		return false
	}
	for i, id := range root {
		if path[i] != id {
			return false
		}
	}
	return true
}

func pathWeight(g *network.Graph, path []int64) float64 {
	var total float64
	for i := 0; i+1 < len(path); i++ {
		if e, ok := g.EdgeBetween(path[i], path[i+1]); ok {
			total += e.LengthM
		}
	}
	return total
}

func pathKey(path []int64) string {
	var b strings.Builder
	for i, id := range path {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	return b.String()
}
