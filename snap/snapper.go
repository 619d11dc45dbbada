package snap

import (
	"math"

	"github.com/prairiehistory/railnet/config"
	"github.com/prairiehistory/railnet/geo"
	"github.com/prairiehistory/railnet/network"
)

// Quality classifies a snap by its distance to the network.
type Quality string

const (
	OnNetwork   Quality = "on_network"
	NearNetwork Quality = "near_network"
	Distant     Quality = "distant"
	OffNetwork  Quality = "off_network"
)

// Mapping records where a settlement attaches to the network. Exactly one of
// two shapes: node-only (one entry in Nodes, EdgeT unused) or edge-snapped
// (the edge's two endpoints in Nodes plus EdgeT in [0,1] along the edge's
// coordinate sequence). Mappings are derived data: they are recomputed
// whenever the graph changes and never hand-edited.
type Mapping struct {
	Settlement   string           `json:"settlement"`
	Coord        geo.Point        `json:"coord"`
	Nodes        []network.NodeID `json:"snap_nodes"`
	EdgeT        float64          `json:"snap_edge_t,omitempty"`
	EdgeLengthKM float64          `json:"snap_edge_length_km,omitempty"`
	DistanceKM   float64          `json:"snap_distance_km"`
	Quality      Quality          `json:"quality"`
}

// NodeOnly reports whether the settlement coincides with a node.
func (m Mapping) NodeOnly() bool { return len(m.Nodes) == 1 }

// EdgeSnapped reports whether the settlement projects strictly inside an edge.
func (m Mapping) EdgeSnapped() bool { return len(m.Nodes) == 2 }

// Routable reports whether the mapping attaches to the graph at all.
func (m Mapping) Routable() bool { return len(m.Nodes) > 0 }

// PrimaryNode is the node a router starts from for node-only mappings, and
// the first edge endpoint otherwise. Returns "" for unroutable mappings.
func (m Mapping) PrimaryNode() network.NodeID {
	if len(m.Nodes) == 0 {
		return ""
	}
	return m.Nodes[0]
}

// SameEdge reports whether two edge-snapped mappings sit on the same edge,
// in either endpoint order.
func (m Mapping) SameEdge(other Mapping) bool {
	if !m.EdgeSnapped() || !other.EdgeSnapped() {
		return false
	}
	return (m.Nodes[0] == other.Nodes[0] && m.Nodes[1] == other.Nodes[1]) ||
		(m.Nodes[0] == other.Nodes[1] && m.Nodes[1] == other.Nodes[0])
}

// Snapper projects settlements onto a fixed graph.
type Snapper struct {
	g   *network.Graph
	cfg config.SnapConfig
}

// NewSnapper returns a snapper over the given graph.
func NewSnapper(g *network.Graph, cfg config.SnapConfig) *Snapper {
	return &Snapper{g: g, cfg: cfg}
}

// Snap finds the globally nearest point of the network to the settlement.
// Every edge's polyline is searched piecewise and every node is checked; an
// edge-interior candidate wins only when strictly closer than the best node.
// A settlement on an empty or malformed graph is reported off-network, never
// an error: best effort is the contract.
func (s *Snapper) Snap(name string, p geo.Point) Mapping {
	m := Mapping{Settlement: name, Coord: p, Quality: OffNetwork, DistanceKM: math.Inf(1)}

	bestNodeDist := math.Inf(1)
	var bestNode network.NodeID
	for _, n := range s.g.Nodes() {
		if d := geo.HaversineKM(p, n.Coord); d < bestNodeDist {
			bestNodeDist = d
			bestNode = n.ID
		}
	}

	bestEdgeDist := math.Inf(1)
	var bestEdge *network.Edge
	var bestEdgeT float64
	for _, e := range s.g.Edges() {
		d, t := projectOntoEdge(p, e)
		if d < bestEdgeDist {
			bestEdgeDist = d
			bestEdge = e
			bestEdgeT = t
		}
	}

	switch {
	case bestEdge != nil && bestEdgeDist < bestNodeDist:
		m.DistanceKM = bestEdgeDist
		// Order the pair by the edge's coordinate sequence so t=0 always
		// refers to Nodes[0].
		start, end := s.g.EndpointsByCoords(bestEdge)
		m.Nodes = []network.NodeID{start, end}
		m.EdgeT = bestEdgeT
		m.EdgeLengthKM = bestEdge.LengthKM
		s.collapseToNode(&m)
	case bestNode != "":
		m.DistanceKM = bestNodeDist
		m.Nodes = []network.NodeID{bestNode}
	default:
		// Empty graph: no candidates at all.
		return m
	}

	m.Quality = s.classify(m.DistanceKM)
	return m
}

// collapseToNode rewrites an edge snap whose projection lands effectively on
// an endpoint as a node-only mapping, so the same physical point is never
// represented two different ways downstream.
func (s *Snapper) collapseToNode(m *Mapping) {
	if s.cfg.NodeCollapseKM <= 0 {
		return
	}
	toStart := m.EdgeT * m.EdgeLengthKM
	toEnd := (1 - m.EdgeT) * m.EdgeLengthKM
	if toStart <= s.cfg.NodeCollapseKM && toStart <= toEnd {
		m.Nodes = m.Nodes[:1]
		m.EdgeT = 0
		m.EdgeLengthKM = 0
	} else if toEnd <= s.cfg.NodeCollapseKM {
		m.Nodes = m.Nodes[1:]
		m.EdgeT = 0
		m.EdgeLengthKM = 0
	}
}

func (s *Snapper) classify(distKM float64) Quality {
	switch {
	case distKM <= s.cfg.OnNetworkKM:
		return OnNetwork
	case distKM <= s.cfg.NearNetworkKM:
		return NearNetwork
	case distKM <= s.cfg.MaxSnapKM:
		return Distant
	default:
		return OffNetwork
	}
}

// projectOntoEdge finds the closest point of the edge's polyline to p,
// taking the global minimum across all consecutive coordinate pairs. The
// returned t is the fraction of the edge's track length at the projection,
// oriented along the stored coordinate sequence (t=0 is Coords[0]).
func projectOntoEdge(p geo.Point, e *network.Edge) (distKM, t float64) {
	if len(e.Coords) < 2 {
		return math.Inf(1), 0
	}
	cum := geo.CumulativeKM(e.Coords)
	total := cum[len(cum)-1]

	best := math.Inf(1)
	bestKM := 0.0
	for i := 0; i < len(e.Coords)-1; i++ {
		d, localT := geo.PointToSegment(p, e.Coords[i], e.Coords[i+1])
		if d < best {
			best = d
			segLen := cum[i+1] - cum[i]
			bestKM = cum[i] + localT*segLen
		}
	}
	if total <= 0 {
		return best, 0
	}
	return best, bestKM / total
}
