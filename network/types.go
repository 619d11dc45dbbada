package network

import (
	"fmt"
	"sort"

	"github.com/prairiehistory/railnet/geo"
)

// NodeID identifies a graph node. IDs are assigned by the Builder in
// first-seen order ("n0", "n1", ...) and are stable for identical inputs.
type NodeID string

// Node is a graph vertex: a track junction or line endpoint.
type Node struct {
	ID    NodeID    `json:"id"`
	Coord geo.Point `json:"coord"`
}

// Edge connects two nodes and carries the literal track geometry between
// them. From/To is an unordered pair: the stored coordinate order is NOT
// guaranteed to run From→To. Callers must resolve direction by coordinate
// comparison (see OrientedFrom), never by assuming node order.
type Edge struct {
	ID            int         `json:"id"`
	From          NodeID      `json:"from_node"`
	To            NodeID      `json:"to_node"`
	Coords        []geo.Point `json:"coordinates"`
	LengthKM      float64     `json:"length_km"`
	Company       string      `json:"company"`
	BuiltYear     int         `json:"constructed_year"`
	AbandonedYear int         `json:"abandoned_year"` // 0 means still active
}

// Has reports whether id is one of the edge's endpoints.
func (e *Edge) Has(id NodeID) bool {
	return e.From == id || e.To == id
}

// Other returns the endpoint opposite to id. It returns "" if id is not an
// endpoint of this edge.
func (e *Edge) Other(id NodeID) NodeID {
	switch id {
	case e.From:
		return e.To
	case e.To:
		return e.From
	}
	return ""
}

// SamePair reports whether the edge connects exactly the nodes a and b,
// in either order.
func (e *Edge) SamePair(a, b NodeID) bool {
	return (e.From == a && e.To == b) || (e.From == b && e.To == a)
}

// OrientedFrom returns a copy of the edge geometry ordered so that the first
// coordinate is the end nearer to start. This is the only sanctioned way to
// get directed geometry out of an edge.
func (e *Edge) OrientedFrom(start geo.Point) []geo.Point {
	out := make([]geo.Point, len(e.Coords))
	copy(out, e.Coords)
	if len(out) < 2 {
		return out
	}
	if geo.HaversineKM(out[0], start) > geo.HaversineKM(out[len(out)-1], start) {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// Graph is the routable railway network. It is immutable by convention once
// built: the snapper, router and assembler share it read-only, so concurrent
// queries need no locking.
type Graph struct {
	nodes map[NodeID]Node
	order []NodeID
	edges []*Edge
	adj   map[NodeID][]*Edge
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: map[NodeID]Node{},
		adj:   map[NodeID][]*Edge{},
	}
}

// AddNode registers a node. Adding the same ID twice is a no-op.
func (g *Graph) AddNode(n Node) {
	if _, ok := g.nodes[n.ID]; ok {
		return
	}
	g.nodes[n.ID] = n
	g.order = append(g.order, n.ID)
}

// AddEdge appends an edge. Both endpoints must already exist.
func (g *Graph) AddEdge(e *Edge) error {
	if _, ok := g.nodes[e.From]; !ok {
		return fmt.Errorf("edge %d: unknown from_node %q", e.ID, e.From)
	}
	if _, ok := g.nodes[e.To]; !ok {
		return fmt.Errorf("edge %d: unknown to_node %q", e.ID, e.To)
	}
	g.edges = append(g.edges, e)
	g.adj[e.From] = append(g.adj[e.From], e)
	g.adj[e.To] = append(g.adj[e.To], e)
	return nil
}

// Node looks up a node by ID.
func (g *Graph) Node(id NodeID) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []*Edge { return g.edges }

// Incident returns the edges touching the given node.
func (g *Graph) Incident(id NodeID) []*Edge { return g.adj[id] }

// Degree returns the number of edges incident to the node.
func (g *Graph) Degree(id NodeID) int { return len(g.adj[id]) }

// EdgeBetween returns the edge connecting a and b, if one exists.
func (g *Graph) EdgeBetween(a, b NodeID) (*Edge, bool) {
	for _, e := range g.adj[a] {
		if e.SamePair(a, b) {
			return e, true
		}
	}
	return nil, false
}

// EndpointsByCoords returns the edge's endpoint nodes ordered by its stored
// coordinate sequence: start is the node nearer Coords[0]. Stored coordinate
// order is not guaranteed to match the From/To pair, so any code that needs
// "which node is at the front of the geometry" must go through here.
func (g *Graph) EndpointsByCoords(e *Edge) (start, end NodeID) {
	from, _ := g.Node(e.From)
	to, _ := g.Node(e.To)
	first := e.Coords[0]
	if geo.HaversineKM(first, from.Coord) <= geo.HaversineKM(first, to.Coord) {
		return e.From, e.To
	}
	return e.To, e.From
}

// TotalLengthKM sums all edge lengths.
func (g *Graph) TotalLengthKM() float64 {
	total := 0.0
	for _, e := range g.edges {
		total += e.LengthKM
	}
	return total
}

// Stats summarizes the built network for diagnostics and document metadata.
type Stats struct {
	Nodes            int     `json:"nodes"`
	Edges            int     `json:"edges"`
	TotalLengthKM    float64 `json:"total_length_km"`
	Components       int     `json:"components"`
	LargestComponent int     `json:"largest_component_nodes"`
	Junctions        int     `json:"junctions"` // nodes with degree > 2
	MaxDegree        int     `json:"max_degree"`
}

// ComputeStats analyzes the network structure. Fragmentation (a high
// component count) is a data-quality signal: the real network is expected to
// be near-fully connected.
func (g *Graph) ComputeStats() Stats {
	s := Stats{
		Nodes:         len(g.nodes),
		Edges:         len(g.edges),
		TotalLengthKM: g.TotalLengthKM(),
	}
	comps := g.Components()
	s.Components = len(comps)
	for _, c := range comps {
		if len(c) > s.LargestComponent {
			s.LargestComponent = len(c)
		}
	}
	for _, id := range g.order {
		d := g.Degree(id)
		if d > 2 {
			s.Junctions++
		}
		if d > s.MaxDegree {
			s.MaxDegree = d
		}
	}
	return s
}

// Components partitions the nodes into connected components via BFS.
// Component order follows node insertion order; node IDs within each
// component are sorted, so the partition is deterministic.
func (g *Graph) Components() [][]NodeID {
	visited := make(map[NodeID]bool, len(g.nodes))
	var comps [][]NodeID

	for _, start := range g.order {
		if visited[start] {
			continue
		}
		var comp []NodeID
		queue := []NodeID{start}
		visited[start] = true
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			comp = append(comp, u)
			for _, e := range g.adj[u] {
				v := e.Other(u)
				if !visited[v] {
					visited[v] = true
					queue = append(queue, v)
				}
			}
		}
		sort.Slice(comp, func(i, j int) bool { return comp[i] < comp[j] })
		comps = append(comps, comp)
	}
	return comps
}
