// Package snap projects settlement coordinates onto the railway graph.
//
// For each settlement it searches every edge polyline piecewise and every
// node, keeps the global minimum (an edge-interior hit wins only when
// strictly closer than the best node), collapses near-endpoint projections
// to node-only mappings, and classifies the result by distance thresholds.
// A settlement far from all track still gets a best-effort mapping marked
// off_network; snapping never fails.
package snap
