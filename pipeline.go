package railnet

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/twpayne/go-polyline"

	"github.com/prairiehistory/railnet/config"
	"github.com/prairiehistory/railnet/geo"
	"github.com/prairiehistory/railnet/network"
	"github.com/prairiehistory/railnet/route"
	"github.com/prairiehistory/railnet/snap"
)

// Pipeline runs the whole batch: build graph, repair connectivity, snap
// settlements, generate and route connections, verify geometry. Every
// per-record failure is tallied and the batch continues; only input loading
// and output writing can fail the run as a whole.
type Pipeline struct {
	cfg     config.AppConfig
	summary *Summary
}

// NewPipeline creates a pipeline with the given configuration.
func NewPipeline(cfg config.AppConfig) *Pipeline {
	return &Pipeline{cfg: cfg, summary: NewSummary()}
}

// Result bundles the three output documents and the outcome summary.
type Result struct {
	Network     NetworkDocument
	Mapping     MappingDocument
	Connections ConnectionsDocument
	Summary     *Summary
}

// Run executes the batch over the two input documents. The result is
// deterministic for identical inputs: node IDs follow first-seen order and
// all output documents are sorted.
func (p *Pipeline) Run(tracks TracksDocument, settlements SettlementsDocument) (Result, error) {
	if len(tracks.Segments) == 0 {
		return Result{}, errors.New("pipeline: no track segments in input")
	}

	for i, s := range tracks.Segments {
		if len(s.Coordinates) < 2 {
			p.summary.Add(StatusRejectedSegment, segmentLabel(i, s.Source))
		}
	}

	builder := network.NewBuilder(p.cfg.Builder.JunctionGridM, p.cfg.Builder.NodeMergeM)
	g, buildReport := builder.Build(segmentsFromDocument(tracks))
	log.Printf("built network: %d segments in, %d rejected, %d junctions, %d edges, %d self-loops dropped, %d duplicates merged",
		buildReport.SegmentsIn, buildReport.Rejected, buildReport.Junctions,
		buildReport.EdgesAdded, buildReport.SelfLoopsDropped, buildReport.DuplicatesMerged)

	repairer := &network.Repairer{
		SmallComponentMax: p.cfg.Repair.SmallComponentMax,
		MaxBridgeKM:       p.cfg.Repair.MaxBridgeKM,
	}
	repairReport := repairer.Repair(g, bridgeOverrides(p.cfg.Repair.Bridges))
	log.Printf("connectivity repair: %d components before, %d after, %d bridges added, %d small components",
		repairReport.ComponentsBefore, repairReport.ComponentsAfter,
		repairReport.BridgesAdded, repairReport.SmallComponents)
	for _, reason := range repairReport.Skipped {
		log.Printf("bridge override skipped: %s", reason)
	}

	stats := g.ComputeStats()
	log.Printf("network stats: %d nodes, %d edges, %.1f km total, %d components (largest %d), %d junctions",
		stats.Nodes, stats.Edges, stats.TotalLengthKM,
		stats.Components, stats.LargestComponent, stats.Junctions)

	mappings := p.snapAll(g, settlements.Settlements)
	connections := p.connectAll(g, settlements.Settlements, mappings)

	return Result{
		Network:     networkDocument(g, stats),
		Mapping:     mappingDocument(settlements.Settlements, mappings),
		Connections: connections,
		Summary:     p.summary,
	}, nil
}

// snapAll maps every settlement onto the graph. Off-network results are
// tallied but still recorded: downstream consumers decide how much to trust
// them.
func (p *Pipeline) snapAll(g *network.Graph, settlements []Settlement) map[string]snap.Mapping {
	snapper := snap.NewSnapper(g, p.cfg.Snap)
	mappings := make(map[string]snap.Mapping, len(settlements))
	for _, s := range settlements {
		m := snapper.Snap(s.Name, s.Coord())
		mappings[s.Name] = m
		if m.Quality == snap.OffNetwork {
			p.summary.Add(StatusOffNetwork, s.Name)
		}
	}
	log.Printf("snapped %d settlements (%d off-network)", len(settlements), p.summary.Count(StatusOffNetwork))
	return mappings
}

// connectAll generates settlement pairs, routes each one, assembles its
// geometry and verifies proximity. Pairs are deduplicated: A-B and B-A are
// the same connection.
func (p *Pipeline) connectAll(g *network.Graph, settlements []Settlement, mappings map[string]snap.Mapping) ConnectionsDocument {
	router := route.NewRouter(g)
	assembler := route.NewAssembler(g)

	var doc ConnectionsDocument
	for i := 0; i < len(settlements); i++ {
		for j := i + 1; j < len(settlements); j++ {
			a, b := settlements[i], settlements[j]

			direct := geo.HaversineKM(a.Coord(), b.Coord())
			if p.cfg.Connections.MaxPairKM > 0 && direct > p.cfg.Connections.MaxPairKM {
				continue
			}

			railway, year, shared := sharedRailway(a.Railways, b.Railways)
			if !shared && p.cfg.Connections.SharedRailwayOnly {
				continue
			}

			rec := ConnectionRecord{
				Settlement1:   a.Name,
				Settlement2:   b.Name,
				DistanceKM:    direct,
				SharedRailway: railway,
				ConnectedYear: year,
			}
			p.routePair(router, assembler, mappings[a.Name], mappings[b.Name], &rec)
			p.summary.Add(rec.Status, pairLabel(a.Name, b.Name))
			doc.Connections = append(doc.Connections, rec)
		}
	}

	sort.Slice(doc.Connections, func(i, j int) bool {
		ci, cj := doc.Connections[i], doc.Connections[j]
		if ci.Settlement1 != cj.Settlement1 {
			return ci.Settlement1 < cj.Settlement1
		}
		return ci.Settlement2 < cj.Settlement2
	})
	log.Printf("generated %d connections (%d failed)", len(doc.Connections), p.summary.FailureCount())
	return doc
}

// routePair fills in the routed distance, geometry and status for one pair.
// Unroutable outcomes still produce a record with a direct-line fallback so
// the rendering layer always has something to draw.
func (p *Pipeline) routePair(router *route.Router, assembler *route.Assembler, from, to snap.Mapping, rec *ConnectionRecord) {
	fallback := func(status string) {
		rec.Status = status
		rec.Geometry = encodeGeometry(route.DirectLine(from, to))
		rec.Approximate = true
	}

	if !from.Routable() || !to.Routable() {
		fallback(StatusNoMapping)
		return
	}

	path, err := router.Route(from, to)
	if err != nil {
		// ErrNoPath (different components) and ErrUnmapped both leave the
		// railway distance null.
		fallback(StatusNoPath)
		return
	}
	rec.RailwayDistanceKM = &path.DistanceKM

	coords, err := assembler.Assemble(path, from, to)
	if err != nil {
		fallback(StatusNoGeometry)
		return
	}
	rec.Geometry = encodeGeometry(coords)
	rec.Status = p.verifyGeometry(coords, from, to)
}

// verifyGeometry classifies how close the assembled polyline's ends get to
// the two settlements.
func (p *Pipeline) verifyGeometry(coords []geo.Point, from, to snap.Mapping) string {
	worst := geo.HaversineKM(coords[0], from.Coord)
	if d := geo.HaversineKM(coords[len(coords)-1], to.Coord); d > worst {
		worst = d
	}
	switch {
	case worst > p.cfg.Verify.ErrorKM:
		return StatusFarFromPath
	case worst > p.cfg.Verify.WarnKM:
		return StatusWarning
	}
	return StatusOK
}

// mappingDocument flattens the snap results, sorted by settlement name.
func mappingDocument(settlements []Settlement, mappings map[string]snap.Mapping) MappingDocument {
	var doc MappingDocument
	for _, s := range settlements {
		m := mappings[s.Name]
		rec := MappingRecord{
			Settlement:     s.Name,
			Quality:        string(m.Quality),
			SnapDistanceKM: m.DistanceKM,
		}
		for _, id := range m.Nodes {
			rec.SnapNodes = append(rec.SnapNodes, string(id))
		}
		if m.EdgeSnapped() {
			t := m.EdgeT
			rec.SnapEdgeT = &t
		}
		doc.Mappings = append(doc.Mappings, rec)
	}
	sort.Slice(doc.Mappings, func(i, j int) bool {
		return doc.Mappings[i].Settlement < doc.Mappings[j].Settlement
	})
	return doc
}

// sharedRailway returns the earliest shared railway between two arrival
// histories. The connection year on a shared railway is the later of the two
// arrivals: both settlements must exist on the line before it connects them.
func sharedRailway(a, b []RailwayPresence) (railway string, year int, ok bool) {
	for _, ra := range a {
		for _, rb := range b {
			if ra.Railway != rb.Railway || ra.Year == 0 || rb.Year == 0 {
				continue
			}
			y := ra.Year
			if rb.Year > y {
				y = rb.Year
			}
			if !ok || y < year || (y == year && ra.Railway < railway) {
				railway, year, ok = ra.Railway, y, true
			}
		}
	}
	return railway, year, ok
}

// bridgeOverrides converts configured bridges into repair overrides.
func bridgeOverrides(bridges []config.BridgeConfig) []network.BridgeOverride {
	overrides := make([]network.BridgeOverride, len(bridges))
	for i, b := range bridges {
		overrides[i] = network.BridgeOverride{
			From:      network.NodeID(b.From),
			To:        network.NodeID(b.To),
			Company:   b.Company,
			BuiltYear: b.BuiltYear,
		}
	}
	return overrides
}

// encodeGeometry packs a polyline into the Google encoded format used by the
// rendering layer.
func encodeGeometry(coords []geo.Point) string {
	if len(coords) == 0 {
		return ""
	}
	flat := make([][]float64, len(coords))
	for i, c := range coords {
		flat[i] = []float64{c.Lat, c.Lon}
	}
	return string(polyline.EncodeCoords(flat))
}

func segmentLabel(i int, source string) string {
	if source != "" {
		return source
	}
	return fmt.Sprintf("segment %d", i)
}

func pairLabel(a, b string) string {
	return a + " - " + b
}
