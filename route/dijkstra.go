package route

import (
	"container/heap"
	"errors"
	"math"

	"github.com/prairiehistory/railnet/network"
	"github.com/prairiehistory/railnet/snap"
)

var (
	// ErrUnmapped means a location has no snap nodes and cannot be routed.
	ErrUnmapped = errors.New("route: location not mapped to network")
	// ErrNoPath means the two locations lie in different connected
	// components. It is an expected batch outcome, not a fault.
	ErrNoPath = errors.New("route: no path between locations")
	// ErrNoGeometry means a path exists but no renderable geometry could be
	// assembled; callers substitute a direct-line fallback.
	ErrNoGeometry = errors.New("route: no renderable geometry")
)

// Path is the result of a shortest-path query. Nodes holds the visited graph
// nodes in travel order; a single-node path is the valid degenerate case of
// both endpoints resolving to the same point. For pure same-edge routes the
// two endpoint nodes are reported with SameEdge set: the distance was
// computed directly from the two projections, not by graph search.
type Path struct {
	Nodes      []network.NodeID
	DistanceKM float64
	SameEdge   bool
}

// Degenerate reports whether the path is a single node with no edges.
func (p Path) Degenerate() bool { return len(p.Nodes) == 1 }

// Router answers shortest-path queries over an immutable graph. It is safe
// for concurrent use: each query builds its own working state.
type Router struct {
	g *network.Graph
}

// NewRouter returns a router over the given graph.
func NewRouter(g *network.Graph) *Router {
	return &Router{g: g}
}

// Route computes the shortest track distance between two mapped locations.
// Edge-snapped locations enter the search as temporary mid-edge points,
// connected to both of their edge's endpoints with the partial-edge lengths
// as weights. Two locations on the same edge are resolved directly from
// their projections without graph search.
func (r *Router) Route(from, to snap.Mapping) (Path, error) {
	if !from.Routable() || !to.Routable() {
		return Path{}, ErrUnmapped
	}

	if from.SameEdge(to) {
		return r.sameEdge(from, to), nil
	}

	starts := entryOffsets(from)
	ends := entryOffsets(to)

	dist, prev, ok := r.search(starts, ends)
	if !ok {
		return Path{}, ErrNoPath
	}

	// Pick the end node minimizing graph distance plus the partial-edge
	// tail on the destination side.
	best := network.NodeID("")
	bestTotal := math.Inf(1)
	for id, tail := range ends {
		if d, reached := dist[id]; reached && d+tail < bestTotal {
			bestTotal = d + tail
			best = id
		}
	}
	if best == "" {
		return Path{}, ErrNoPath
	}

	nodes := []network.NodeID{best}
	for {
		p, hasPrev := prev[nodes[len(nodes)-1]]
		if !hasPrev {
			break
		}
		nodes = append(nodes, p)
	}
	// Reverse into travel order.
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}

	return Path{Nodes: nodes, DistanceKM: bestTotal}, nil
}

// sameEdge resolves two projections onto one edge directly: the distance is
// the track length between the two t positions. This stays exact even for
// edges the graph search would never choose.
func (r *Router) sameEdge(from, to snap.Mapping) Path {
	d := math.Abs(from.EdgeT-to.EdgeT) * from.EdgeLengthKM
	nodes := []network.NodeID{from.Nodes[0], from.Nodes[1]}
	if from.EdgeT > to.EdgeT {
		nodes[0], nodes[1] = nodes[1], nodes[0]
	}
	return Path{Nodes: nodes, DistanceKM: d, SameEdge: true}
}

// entryOffsets returns the graph nodes a mapping can enter the network at,
// with the partial-edge distance to each. A node-only mapping enters at its
// node with zero offset; an edge-snapped mapping enters at both endpoints.
func entryOffsets(m snap.Mapping) map[network.NodeID]float64 {
	if m.NodeOnly() {
		return map[network.NodeID]float64{m.Nodes[0]: 0}
	}
	return map[network.NodeID]float64{
		m.Nodes[0]: m.EdgeT * m.EdgeLengthKM,
		m.Nodes[1]: (1 - m.EdgeT) * m.EdgeLengthKM,
	}
}

// search runs Dijkstra from the start set until the frontier is exhausted,
// using a lazy decrease-key min-heap: duplicates are pushed and stale
// entries skipped on pop.
func (r *Router) search(starts, ends map[network.NodeID]float64) (map[network.NodeID]float64, map[network.NodeID]network.NodeID, bool) {
	dist := map[network.NodeID]float64{}
	prev := map[network.NodeID]network.NodeID{}
	visited := map[network.NodeID]bool{}

	pq := &nodeQueue{}
	heap.Init(pq)
	for id, offset := range starts {
		dist[id] = offset
		heap.Push(pq, &queueItem{id: id, dist: offset})
	}

	remaining := len(ends)
	for pq.Len() > 0 && remaining > 0 {
		item := heap.Pop(pq).(*queueItem)
		if visited[item.id] {
			continue
		}
		visited[item.id] = true
		if _, isEnd := ends[item.id]; isEnd {
			remaining--
		}

		for _, e := range r.g.Incident(item.id) {
			v := e.Other(item.id)
			if visited[v] {
				continue
			}
			nd := item.dist + e.LengthKM
			if cur, seen := dist[v]; !seen || nd < cur {
				dist[v] = nd
				prev[v] = item.id
				heap.Push(pq, &queueItem{id: v, dist: nd})
			}
		}
	}

	for id := range ends {
		if visited[id] {
			return dist, prev, true
		}
	}
	return dist, prev, false
}

// queueItem is a (node, distance) pair in the priority queue.
type queueItem struct {
	id   network.NodeID
	dist float64
}

// nodeQueue is a min-heap of queue items keyed by distance.
type nodeQueue []*queueItem

func (q nodeQueue) Len() int           { return len(q) }
func (q nodeQueue) Less(i, j int) bool { return q[i].dist < q[j].dist }
func (q nodeQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x any)        { *q = append(*q, x.(*queueItem)) }
func (q *nodeQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}
