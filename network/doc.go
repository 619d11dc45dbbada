/*
Package network builds a routable railway graph from raw polyline track
segments, and repairs connectivity across dataset seams.

Raw survey segments carry no shared junction identifiers: two lines that
meet at a physical junction merely touch in space. The Builder derives the
topology in two passes:

 1. Junction detection. Every segment's coordinates are bucketed into S2
    cells sized to the junction tolerance; a cell occupied by two different
    segments marks a physical junction. Segments are split at interior
    junction points so the junction becomes a shared endpoint.

 2. Node clustering. All piece endpoints are merged with union-find under
    the node-merge tolerance, producing canonical nodes named n0, n1, ... in
    first-seen order. Self-loop pieces are dropped; when two pieces connect
    the same node pair the shorter one is kept.

Edge geometry is stored as loaded. The coordinate order of an edge is NOT
guaranteed to run from its From node to its To node: endpoint clustering can
leave the geometry reversed relative to the node pair. Consumers must orient
geometry by coordinate comparison (Edge.OrientedFrom, Graph.EndpointsByCoords)
and never assume node order.

The Repairer handles graphs assembled from independently surveyed datasets
whose junctions do not always connect across source boundaries: it flags
anomalously small components and inserts bridging edges, but only for node
pairs named explicitly in configuration and only within a distance cap. It
never invents a bridge on its own.
*/
package network
