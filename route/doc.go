// Package route computes shortest track paths between mapped settlements
// and reconstructs the exact polyline geometry for rendering.
//
// The Router runs Dijkstra over edge lengths; a settlement snapped mid-edge
// enters the search as a temporary node connected to both edge endpoints
// with partial-length weights, and two settlements on the same edge are
// resolved directly without a search. The Assembler turns the node path back
// into coordinates, resolving each edge's direction by coordinate comparison
// and trimming the ends to the settlements' projection points. A pair in
// different components is reported as ErrNoPath, a routable pair with no
// producible geometry as ErrNoGeometry; both are recoverable batch outcomes.
package route
