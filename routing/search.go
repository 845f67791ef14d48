package routing

import (
	"container/heap"

	"github.com/ani3h/disaster-response-gis/network"
)

// edgeKey identifies a directed edge for masking during spur searches.
type edgeKey struct {
	from, to int64
}

// searchMask hides nodes and directed edges from a search without mutating
// the underlying graph.
type searchMask struct {
	nodes map[int64]bool
	edges map[edgeKey]bool
}

func (m *searchMask) blocksNode(id int64) bool {
	return m != nil && m.nodes[id]
}

func (m *searchMask) blocksEdge(from, to int64) bool {
	return m != nil && m.edges[edgeKey{from, to}]
}

// dijkstra returns the minimum-weight node path from startID to goalID and
// its total weight in meters. found is false when no path exists.
func dijkstra(g *network.Graph, startID, goalID int64) ([]int64, float64, bool) {
	return search(g, startID, goalID, nil, nil)
}

// astar runs the heuristic-guided variant. The straight-line heuristic uses
// the same degree-space scaling as the edge weights, so it never
// overestimates the remaining distance.
func astar(g *network.Graph, startID, goalID int64) ([]int64, float64, bool) {
	goal := g.Nodes[goalID]
	h := func(id int64) float64 {
		return network.DegreeDistance(g.Nodes[id].Point(), goal.Point()) * g.MetersPerDegree
	}
	return search(g, startID, goalID, h, nil)
}

func search(g *network.Graph, startID, goalID int64, h func(int64) float64, mask *searchMask) ([]int64, float64, bool) {
	if _, ok := g.Nodes[startID]; !ok {
		return nil, 0, false
	}
	if _, ok := g.Nodes[goalID]; !ok {
		return nil, 0, false
	}
	if mask.blocksNode(startID) || mask.blocksNode(goalID) {
		return nil, 0, false
	}

	gScore := map[int64]float64{startID: 0}
	cameFrom := make(map[int64]int64)
	closed := make(map[int64]bool)

	pq := &priorityQueue{}
	heap.Init(pq)
	first := 0.0
	if h != nil {
		first = h(startID)
	}
	heap.Push(pq, &pqItem{node: startID, priority: first})

	for pq.Len() > 0 {
		current := heap.Pop(pq).(*pqItem).node
		if current == goalID {
			return reconstructPath(cameFrom, current), gScore[current], true
		}
		if closed[current] {
			continue
		}
		closed[current] = true

		for _, e := range g.Edges[current] {
			if mask.blocksNode(e.ToID) || mask.blocksEdge(current, e.ToID) {
				continue
			}
			tentative := gScore[current] + e.LengthM
			if old, ok := gScore[e.ToID]; !ok || tentative < old {
				cameFrom[e.ToID] = current
				gScore[e.ToID] = tentative

				priority := tentative
				if h != nil {
					priority += h(e.ToID)
				}
				heap.Push(pq, &pqItem{node: e.ToID, priority: priority})
			}
		}
	}

	return nil, 0, false
}

func reconstructPath(cameFrom map[int64]int64, current int64) []int64 {
	path := []int64{current}
	for {
		prev, ok := cameFrom[current]
		if !ok {
			break
		}
		current = prev
		path = append(path, current)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

type pqItem struct {
	node     int64
	priority float64
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int           { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool { return pq[i].priority < pq[j].priority }
func (pq priorityQueue) Swap(i, j int)      { pq[i], pq[j] = pq[j], pq[i] }

func (pq *priorityQueue) Push(x interface{}) {
	*pq = append(*pq, x.(*pqItem))
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}
