package network

import (
	"fmt"
	"log"

	"github.com/golang/geo/s2"

	"github.com/prairiehistory/railnet/geo"
)

// Segment is a raw input track polyline with its dataset attributes.
// Segments are immutable: the builder never modifies them.
type Segment struct {
	Coords        []geo.Point
	Company       string
	BuiltYear     int
	AbandonedYear int
	Source        string // originating dataset, for diagnostics
}

// BuildReport tallies what the builder did and rejected.
type BuildReport struct {
	SegmentsIn       int
	Rejected         int
	Junctions        int
	EdgesAdded       int
	SelfLoopsDropped int
	DuplicatesMerged int
}

// Builder converts raw track segments into a routable graph. Input carries
// no junction markers: segments from independently digitized datasets merely
// touch in space, so junctions are detected by spatial coincidence and nodes
// are merged by proximity.
type Builder struct {
	// JunctionGridM is the coincidence tolerance (meters) for detecting that
	// points of two different segments meet at a physical junction.
	JunctionGridM float64
	// NodeMergeM is the clustering tolerance (meters) for merging segment
	// endpoints that represent the same physical junction.
	NodeMergeM float64
}

// NewBuilder returns a builder with the given tolerances in meters.
func NewBuilder(junctionGridM, nodeMergeM float64) *Builder {
	return &Builder{JunctionGridM: junctionGridM, NodeMergeM: nodeMergeM}
}

const earthRadiusM = geo.EarthRadiusKM * 1000

// cellLevelForMeters picks the S2 cell level whose average edge length is
// closest to the given tolerance.
func cellLevelForMeters(m float64) int {
	return s2.AvgEdgeMetric.ClosestLevel(m / earthRadiusM)
}

func cellAt(p geo.Point, level int) s2.CellID {
	return s2.CellIDFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lon)).Parent(level)
}

// Build derives the graph from the input segments. Segments with fewer than
// two coordinates are invalid: they are logged, counted in the report, and
// excluded, but never abort the build.
func (b *Builder) Build(segments []Segment) (*Graph, BuildReport) {
	report := BuildReport{SegmentsIn: len(segments)}

	valid := make([]Segment, 0, len(segments))
	for i, seg := range segments {
		if len(seg.Coords) < 2 {
			log.Printf("builder: rejecting segment %d (%s): %d coordinates", i, seg.Source, len(seg.Coords))
			report.Rejected++
			continue
		}
		valid = append(valid, seg)
	}

	junctions := b.findJunctionCells(valid)
	report.Junctions = len(junctions)

	// Split every segment at interior junction points, duplicating the
	// coordinate at each split so the two halves both end exactly at it.
	var pieces []Segment
	for _, seg := range valid {
		pieces = append(pieces, b.splitAtJunctions(seg, junctions)...)
	}

	g := b.assemble(pieces, &report)
	return g, report
}

// findJunctionCells locates junction candidates: grid cells occupied by
// points of two or more distinct segments. Real segments only share points
// with other segments at physical junctions, not by input-array convention.
func (b *Builder) findJunctionCells(segments []Segment) map[s2.CellID]bool {
	level := cellLevelForMeters(b.JunctionGridM)
	owners := map[s2.CellID]int{} // cell -> first segment seen there
	junctions := map[s2.CellID]bool{}

	for i, seg := range segments {
		seen := map[s2.CellID]bool{} // dedupe within one segment
		for _, p := range seg.Coords {
			c := cellAt(p, level)
			if seen[c] {
				continue
			}
			seen[c] = true
			if first, ok := owners[c]; ok {
				if first != i {
					junctions[c] = true
				}
			} else {
				owners[c] = i
			}
		}
	}
	return junctions
}

// splitAtJunctions cuts a segment at every interior point that falls in a
// junction cell. Endpoints are left alone: they become nodes regardless.
func (b *Builder) splitAtJunctions(seg Segment, junctions map[s2.CellID]bool) []Segment {
	level := cellLevelForMeters(b.JunctionGridM)

	var out []Segment
	current := []geo.Point{seg.Coords[0]}
	for i := 1; i < len(seg.Coords); i++ {
		p := seg.Coords[i]
		current = append(current, p)
		if i < len(seg.Coords)-1 && junctions[cellAt(p, level)] {
			out = append(out, seg.withCoords(current))
			current = []geo.Point{p}
		}
	}
	if len(current) >= 2 {
		out = append(out, seg.withCoords(current))
	}
	return out
}

func (s Segment) withCoords(coords []geo.Point) Segment {
	c := s
	c.Coords = coords
	return c
}

// assemble clusters piece endpoints into nodes and emits edges.
func (b *Builder) assemble(pieces []Segment, report *BuildReport) *Graph {
	// Gather endpoints in deterministic first-seen order.
	endpoints := make([]geo.Point, 0, len(pieces)*2)
	for _, piece := range pieces {
		endpoints = append(endpoints, piece.Coords[0], piece.Coords[len(piece.Coords)-1])
	}

	cluster := b.clusterEndpoints(endpoints)

	// Assign node IDs in first-seen cluster order so output is stable.
	g := NewGraph()
	nodeOf := make([]NodeID, len(endpoints))
	clusterNode := map[int]NodeID{}
	next := 0
	for i := range endpoints {
		root := cluster.find(i)
		id, ok := clusterNode[root]
		if !ok {
			id = NodeID(fmt.Sprintf("n%d", next))
			next++
			clusterNode[root] = id
			g.AddNode(Node{ID: id, Coord: endpoints[root]})
		}
		nodeOf[i] = id
	}

	// Emit edges. Keep the shorter geometry when two pieces join the same
	// node pair; drop pieces whose endpoints collapse to one node.
	edgeID := 0
	for i, piece := range pieces {
		from := nodeOf[2*i]
		to := nodeOf[2*i+1]
		if from == to {
			report.SelfLoopsDropped++
			continue
		}
		length := geo.PolylineLengthKM(piece.Coords)
		if existing, ok := g.EdgeBetween(from, to); ok {
			report.DuplicatesMerged++
			if length < existing.LengthKM {
				existing.Coords = piece.Coords
				existing.LengthKM = length
				existing.Company = piece.Company
				existing.BuiltYear = piece.BuiltYear
				existing.AbandonedYear = piece.AbandonedYear
			}
			continue
		}
		e := &Edge{
			ID:            edgeID,
			From:          from,
			To:            to,
			Coords:        piece.Coords,
			LengthKM:      length,
			Company:       piece.Company,
			BuiltYear:     piece.BuiltYear,
			AbandonedYear: piece.AbandonedYear,
		}
		if err := g.AddEdge(e); err != nil {
			// Cannot happen: both nodes were just added.
			log.Printf("builder: %v", err)
			continue
		}
		edgeID++
		report.EdgesAdded++
	}
	return g
}

// clusterEndpoints unions endpoints within NodeMergeM of each other.
// Candidates are found through S2 cell buckets (the cell plus its eight
// neighbors at the merge level) so the pass stays near-linear; the actual
// merge decision is always a haversine comparison against the tolerance.
func (b *Builder) clusterEndpoints(endpoints []geo.Point) *dsu {
	level := cellLevelForMeters(b.NodeMergeM)
	buckets := map[s2.CellID][]int{}
	for i, p := range endpoints {
		buckets[cellAt(p, level)] = append(buckets[cellAt(p, level)], i)
	}

	u := newDSU(len(endpoints))
	tolKM := b.NodeMergeM / 1000
	for i, p := range endpoints {
		home := cellAt(p, level)
		cells := append([]s2.CellID{home}, home.AllNeighbors(level)...)
		for _, c := range cells {
			for _, j := range buckets[c] {
				if j >= i {
					continue
				}
				if geo.HaversineKM(p, endpoints[j]) <= tolKM {
					u.union(i, j)
				}
			}
		}
	}
	return u
}

// dsu is a disjoint-set union with path compression. The root of every set
// is its smallest member index, so the canonical endpoint of a cluster is
// always the first one encountered.
type dsu struct {
	parent []int
}

func newDSU(n int) *dsu {
	d := &dsu{parent: make([]int, n)}
	for i := range d.parent {
		d.parent[i] = i
	}
	return d
}

func (d *dsu) find(x int) int {
	for d.parent[x] != x {
		d.parent[x] = d.parent[d.parent[x]]
		x = d.parent[x]
	}
	return x
}

func (d *dsu) union(a, b int) {
	ra, rb := d.find(a), d.find(b)
	if ra == rb {
		return
	}
	if ra > rb {
		ra, rb = rb, ra
	}
	d.parent[rb] = ra
}
