package network

import (
	"fmt"
	"log"
	"math"

	"github.com/prairiehistory/railnet/geo"
)

// BridgeOverride names two nodes that are independently verified to be the
// same or adjacent physical junction, yet ended up in different components
// because their source datasets never connect across the seam. Overrides
// come from configuration, never from heuristics: the repair pass must not
// fabricate bridges on its own.
type BridgeOverride struct {
	From      NodeID
	To        NodeID
	Company   string
	BuiltYear int
}

// RepairReport describes one connectivity-repair pass.
type RepairReport struct {
	ComponentsBefore int
	ComponentsAfter  int
	SmallComponents  int // components at or below the small-size cutoff
	BridgesAdded     int
	Skipped          []string // overrides not applied, with reasons
}

// Repairer runs the post-build connectivity diagnostic and applies the
// configured bridge overrides.
type Repairer struct {
	// SmallComponentMax is the size at or below which a component is flagged
	// as anomalously small.
	SmallComponentMax int
	// MaxBridgeKM caps the length of a synthesized bridge. An override whose
	// nodes are farther apart than this is refused: at that distance the two
	// nodes cannot plausibly be the same physical junction.
	MaxBridgeKM float64
}

// Repair flags fragmentation and inserts one bridging edge per valid
// override, then re-derives the component partition. The bridge's length is
// the measured distance between the two nodes and its geometry is the
// straight two-point line between them.
func (r *Repairer) Repair(g *Graph, overrides []BridgeOverride) RepairReport {
	comps := g.Components()
	report := RepairReport{ComponentsBefore: len(comps)}

	for _, c := range comps {
		if len(c) <= r.SmallComponentMax {
			report.SmallComponents++
			log.Printf("repair: component of %d node(s) starting at %s; nearest foreign node %s",
				len(c), c[0], r.nearestForeign(g, c))
		}
	}

	nextEdgeID := len(g.Edges())
	for _, ov := range overrides {
		if reason := r.apply(g, ov, nextEdgeID); reason != "" {
			report.Skipped = append(report.Skipped, fmt.Sprintf("%s-%s: %s", ov.From, ov.To, reason))
			continue
		}
		nextEdgeID++
		report.BridgesAdded++
	}

	report.ComponentsAfter = len(g.Components())
	return report
}

// apply inserts a single bridge. It returns a non-empty reason when the
// override cannot be applied.
func (r *Repairer) apply(g *Graph, ov BridgeOverride, edgeID int) string {
	from, ok := g.Node(ov.From)
	if !ok {
		return "unknown from node"
	}
	to, ok := g.Node(ov.To)
	if !ok {
		return "unknown to node"
	}
	if _, exists := g.EdgeBetween(ov.From, ov.To); exists {
		return "edge already exists"
	}
	distKM := geo.HaversineKM(from.Coord, to.Coord)
	if r.MaxBridgeKM > 0 && distKM > r.MaxBridgeKM {
		return fmt.Sprintf("nodes %.2fkm apart, over the %.2fkm bridge limit", distKM, r.MaxBridgeKM)
	}

	bridge := &Edge{
		ID:        edgeID,
		From:      ov.From,
		To:        ov.To,
		Coords:    []geo.Point{from.Coord, to.Coord},
		LengthKM:  distKM,
		Company:   ov.Company,
		BuiltYear: ov.BuiltYear,
	}
	if err := g.AddEdge(bridge); err != nil {
		return err.Error()
	}
	log.Printf("repair: bridged %s-%s (%.2fkm)", ov.From, ov.To, distKM)
	return ""
}

// nearestForeign reports the closest node outside the given component, as a
// hint for whoever maintains the override list.
func (r *Repairer) nearestForeign(g *Graph, comp []NodeID) string {
	inComp := make(map[NodeID]bool, len(comp))
	for _, id := range comp {
		inComp[id] = true
	}
	best := ""
	bestKM := math.Inf(1)
	for _, id := range comp {
		n, _ := g.Node(id)
		for _, other := range g.Nodes() {
			if inComp[other.ID] {
				continue
			}
			if d := geo.HaversineKM(n.Coord, other.Coord); d < bestKM {
				bestKM = d
				best = fmt.Sprintf("%s (%.2fkm)", other.ID, d)
			}
		}
	}
	if best == "" {
		return "none"
	}
	return best
}
