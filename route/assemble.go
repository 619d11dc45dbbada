package route

import (
	"github.com/prairiehistory/railnet/geo"
	"github.com/prairiehistory/railnet/network"
	"github.com/prairiehistory/railnet/snap"
)

// Assembler reconstructs renderable polylines for routed paths. Direction is
// never taken on faith: every edge geometry is oriented by comparing its
// coordinate ends against known node coordinates, because stored coordinate
// order does not reliably match node order.
type Assembler struct {
	g *network.Graph
}

// NewAssembler returns an assembler over the given graph.
func NewAssembler(g *network.Graph) *Assembler {
	return &Assembler{g: g}
}

// Assemble produces the ordered coordinate sequence for a routed pair,
// trimmed to start and end as close as possible to the two settlement
// coordinates. Returns ErrNoGeometry when no track-following polyline can be
// produced; callers then fall back to a direct line flagged as approximate.
func (a *Assembler) Assemble(p Path, from, to snap.Mapping) ([]geo.Point, error) {
	// Same edge: interpolate between the two projections along the edge's
	// own coordinate list.
	if from.SameEdge(to) {
		if coords := a.sameEdgeGeometry(from, to); len(coords) >= 2 {
			return coords, nil
		}
		return nil, ErrNoGeometry
	}

	// Single shared node: two partial edges joined at the junction, or
	// node-only endpoints.
	if p.Degenerate() {
		if coords := a.sharedNodeGeometry(p.Nodes[0], from, to); len(coords) >= 2 {
			return coords, nil
		}
		return nil, ErrNoGeometry
	}

	if len(p.Nodes) < 2 {
		return nil, ErrNoGeometry
	}

	coords := a.pathGeometry(p.Nodes)
	if len(coords) < 2 {
		return nil, ErrNoGeometry
	}
	coords = a.extendToProjection(coords, from, false)
	coords = a.extendToProjection(coords, to, true)
	return coords, nil
}

// DirectLine is the fallback geometry when no track-following polyline
// exists: a straight line between the two settlements. The rendering layer
// draws it dashed to distinguish it from real track.
func DirectLine(from, to snap.Mapping) []geo.Point {
	return []geo.Point{from.Coord, to.Coord}
}

// sameEdgeGeometry slices the shared edge's polyline between the two
// settlements' closest coordinate indices. When both project to the same
// index the source geometry is too sparse to separate them; a three-point
// path through the shared track point keeps the result renderable.
func (a *Assembler) sameEdgeGeometry(from, to snap.Mapping) []geo.Point {
	e, ok := a.g.EdgeBetween(from.Nodes[0], from.Nodes[1])
	if !ok || len(e.Coords) < 2 {
		return nil
	}

	fromIdx, _ := geo.ClosestIndex(e.Coords, from.Coord)
	toIdx, _ := geo.ClosestIndex(e.Coords, to.Coord)

	if fromIdx == toIdx {
		return []geo.Point{from.Coord, e.Coords[fromIdx], to.Coord}
	}

	var coords []geo.Point
	if fromIdx < toIdx {
		coords = append(coords, e.Coords[fromIdx:toIdx+1]...)
	} else {
		for i := fromIdx; i >= toIdx; i-- {
			coords = append(coords, e.Coords[i])
		}
	}
	return coords
}

// sharedNodeGeometry joins the two sides' partial edges at the shared node.
// Each side's edge is oriented so it starts at the shared node by coordinate
// comparison, then cut at the settlement's projection; the from side is
// reversed so the result runs settlement → node → settlement with the node
// appearing exactly once.
func (a *Assembler) sharedNodeGeometry(shared network.NodeID, from, to snap.Mapping) []geo.Point {
	node, ok := a.g.Node(shared)
	if !ok {
		return nil
	}

	// Both endpoints collapse onto the junction itself: a line through it.
	if from.NodeOnly() && to.NodeOnly() {
		return []geo.Point{from.Coord, node.Coord, to.Coord}
	}

	fromSide := a.partialEdge(from, node.Coord)
	toSide := a.partialEdge(to, node.Coord)

	switch {
	case fromSide == nil && toSide == nil:
		return nil
	case fromSide == nil:
		// from is at the node; walk out to the other settlement.
		return append([]geo.Point{from.Coord}, toSide...)
	case toSide == nil:
		reversed := reverse(fromSide)
		return append(reversed, to.Coord)
	}

	combined := reverse(fromSide)
	combined = append(combined, toSide[1:]...) // skip duplicate shared node
	return combined
}

// partialEdge returns the mapping's edge geometry from the shared node out to
// the settlement's projection, starting at the node. Returns nil for
// node-only mappings or when the edge has no usable geometry.
func (a *Assembler) partialEdge(m snap.Mapping, sharedCoord geo.Point) []geo.Point {
	if !m.EdgeSnapped() {
		return nil
	}
	e, ok := a.g.EdgeBetween(m.Nodes[0], m.Nodes[1])
	if !ok || len(e.Coords) < 2 {
		return nil
	}
	oriented := e.OrientedFrom(sharedCoord)
	idx, _ := geo.ClosestIndex(oriented, m.Coord)
	if idx == 0 {
		return nil
	}
	return oriented[:idx+1]
}

// pathGeometry concatenates edge geometries along the node path. Every edge
// is oriented toward its travel direction by comparing its coordinate ends
// with the coordinates of the node it must start at.
func (a *Assembler) pathGeometry(nodes []network.NodeID) []geo.Point {
	var out []geo.Point
	for i := 0; i < len(nodes)-1; i++ {
		e, ok := a.g.EdgeBetween(nodes[i], nodes[i+1])
		if !ok || len(e.Coords) < 2 {
			continue
		}
		start, _ := a.g.Node(nodes[i])
		oriented := e.OrientedFrom(start.Coord)
		if len(out) > 0 {
			oriented = oriented[1:] // drop the shared joint point
		}
		out = append(out, oriented...)
	}
	return out
}

// extendToProjection lengthens the assembled geometry along an edge-snapped
// endpoint's own edge, out to the settlement's projection point. Without
// this, a settlement snapped mid-way along a long edge would see its route
// stop abruptly at the edge's far node.
func (a *Assembler) extendToProjection(coords []geo.Point, m snap.Mapping, atEnd bool) []geo.Point {
	if !m.EdgeSnapped() || len(coords) == 0 {
		return coords
	}
	e, ok := a.g.EdgeBetween(m.Nodes[0], m.Nodes[1])
	if !ok || len(e.Coords) < 2 {
		return coords
	}

	endpoint := coords[0]
	if atEnd {
		endpoint = coords[len(coords)-1]
	}
	// Only extend when the edge actually gets closer to the settlement than
	// the geometry already does.
	_, closestDist := geo.ClosestIndex(e.Coords, m.Coord)
	if closestDist >= geo.HaversineKM(endpoint, m.Coord) {
		return coords
	}

	// Orient the track so it starts at the current geometry endpoint, then
	// take it up to the projection.
	oriented := e.OrientedFrom(endpoint)
	idx, _ := geo.ClosestIndex(oriented, m.Coord)
	extension := oriented[:idx+1]

	if atEnd {
		return append(coords, extension[1:]...)
	}
	prefix := reverse(extension)
	return append(prefix[:len(prefix)-1], coords...)
}

func reverse(pts []geo.Point) []geo.Point {
	out := make([]geo.Point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}
