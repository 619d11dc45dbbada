package railnet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prairiehistory/railnet/geo"
	"github.com/prairiehistory/railnet/network"
)

// TracksDocument is the raw track input: polyline segments with railway
// attributes, possibly merged from more than one survey source.
type TracksDocument struct {
	Segments []TrackSegment `json:"segments"`
}

// TrackSegment is one input polyline. Coordinates are [lat, lon] pairs in
// draw order. AbandonedYear zero means the line is still active.
type TrackSegment struct {
	Coordinates     [][2]float64 `json:"coordinates"`
	Company         string       `json:"company"`
	ConstructedYear int          `json:"constructed_year"`
	AbandonedYear   int          `json:"abandoned_year"`
	Source          string       `json:"source,omitempty"`
}

// SettlementsDocument is the settlement input: point records with each
// settlement's railway arrival history.
type SettlementsDocument struct {
	Settlements []Settlement `json:"settlements"`
}

// Settlement is an external point entity. The pipeline never creates or
// deletes settlements; it only derives mapping and connection data for them.
type Settlement struct {
	Name     string            `json:"name"`
	Lat      float64           `json:"lat"`
	Lon      float64           `json:"lon"`
	Railways []RailwayPresence `json:"railways,omitempty"`
}

// RailwayPresence records one railway's arrival at a settlement.
type RailwayPresence struct {
	Railway string `json:"railway"`
	Year    int    `json:"year"`
}

// Coord returns the settlement's position as a geo point.
func (s Settlement) Coord() geo.Point {
	return geo.Point{Lat: s.Lat, Lon: s.Lon}
}

// NetworkDocument is the built-graph output consumed by the rendering layer.
type NetworkDocument struct {
	Stats network.Stats `json:"stats"`
	Nodes []NodeRecord  `json:"nodes"`
	Edges []EdgeRecord  `json:"edges"`
}

// NodeRecord is one graph node in the output document.
type NodeRecord struct {
	ID  string  `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// EdgeRecord is one graph edge in the output document. Coordinate order is
// the stored geometry order, which is not guaranteed to run from from_node to
// to_node; consumers must orient by coordinate comparison.
type EdgeRecord struct {
	ID              int          `json:"id"`
	FromNode        string       `json:"from_node"`
	ToNode          string       `json:"to_node"`
	LengthKM        float64      `json:"length_km"`
	Coordinates     [][2]float64 `json:"coordinates"`
	Company         string       `json:"company,omitempty"`
	ConstructedYear int          `json:"constructed_year,omitempty"`
	AbandonedYear   int          `json:"abandoned_year,omitempty"`
}

// MappingDocument holds every settlement's snap result, sorted by name.
type MappingDocument struct {
	Mappings []MappingRecord `json:"mappings"`
}

// MappingRecord is one settlement's network mapping. SnapNodes has one
// element for node-only mappings and two (with SnapEdgeT set) for
// edge-snapped ones.
type MappingRecord struct {
	Settlement     string   `json:"settlement"`
	SnapNodes      []string `json:"snap_nodes,omitempty"`
	SnapEdgeT      *float64 `json:"snap_edge_t,omitempty"`
	Quality        string   `json:"quality"`
	SnapDistanceKM float64  `json:"snap_distance_km"`
}

// ConnectionsDocument holds all routed settlement pairs, sorted by the two
// settlement names.
type ConnectionsDocument struct {
	Connections []ConnectionRecord `json:"connections"`
}

// ConnectionRecord is one settlement pair. RailwayDistanceKM is null when no
// track path exists; Geometry is a Google encoded polyline, with Approximate
// set when it is a direct-line fallback rather than track-following geometry.
type ConnectionRecord struct {
	Settlement1       string   `json:"settlement_1"`
	Settlement2       string   `json:"settlement_2"`
	DistanceKM        float64  `json:"distance_km"`
	RailwayDistanceKM *float64 `json:"railway_distance_km"`
	SharedRailway     string   `json:"shared_railway,omitempty"`
	ConnectedYear     int      `json:"connected_year,omitempty"`
	Geometry          string   `json:"geometry,omitempty"`
	Approximate       bool     `json:"approximate,omitempty"`
	Status            string   `json:"status"`
}

// ReadTracksDocument loads and decodes a tracks JSON file.
func ReadTracksDocument(path string) (TracksDocument, error) {
	var doc TracksDocument
	if err := readJSON(path, &doc); err != nil {
		return TracksDocument{}, fmt.Errorf("read tracks: %w", err)
	}
	return doc, nil
}

// ReadSettlementsDocument loads and decodes a settlements JSON file.
func ReadSettlementsDocument(path string) (SettlementsDocument, error) {
	var doc SettlementsDocument
	if err := readJSON(path, &doc); err != nil {
		return SettlementsDocument{}, fmt.Errorf("read settlements: %w", err)
	}
	return doc, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// WriteDocuments writes the three output documents into outDir.
func WriteDocuments(outDir string, netDoc NetworkDocument, mapDoc MappingDocument, connDoc ConnectionsDocument) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	files := []struct {
		name string
		v    any
	}{
		{"railway_network.json", netDoc},
		{"settlement_mapping.json", mapDoc},
		{"settlement_connections.json", connDoc},
	}
	for _, f := range files {
		data, err := json.MarshalIndent(f.v, "", "  ")
		if err != nil {
			return fmt.Errorf("encode %s: %w", f.name, err)
		}
		data = append(data, '\n')
		if err := os.WriteFile(filepath.Join(outDir, f.name), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	return nil
}

// segmentsFromDocument converts raw track segments into builder input.
func segmentsFromDocument(doc TracksDocument) []network.Segment {
	segs := make([]network.Segment, 0, len(doc.Segments))
	for _, s := range doc.Segments {
		coords := make([]geo.Point, len(s.Coordinates))
		for i, c := range s.Coordinates {
			coords[i] = geo.Point{Lat: c[0], Lon: c[1]}
		}
		segs = append(segs, network.Segment{
			Coords:        coords,
			Company:       s.Company,
			BuiltYear:     s.ConstructedYear,
			AbandonedYear: s.AbandonedYear,
			Source:        s.Source,
		})
	}
	return segs
}

// networkDocument flattens the graph for output. Nodes keep first-seen
// order; edges keep ID order.
func networkDocument(g *network.Graph, stats network.Stats) NetworkDocument {
	doc := NetworkDocument{Stats: stats}
	for _, n := range g.Nodes() {
		doc.Nodes = append(doc.Nodes, NodeRecord{ID: string(n.ID), Lat: n.Coord.Lat, Lon: n.Coord.Lon})
	}
	for _, e := range g.Edges() {
		coords := make([][2]float64, len(e.Coords))
		for i, c := range e.Coords {
			coords[i] = [2]float64{c.Lat, c.Lon}
		}
		doc.Edges = append(doc.Edges, EdgeRecord{
			ID:              e.ID,
			FromNode:        string(e.From),
			ToNode:          string(e.To),
			LengthKM:        e.LengthKM,
			Coordinates:     coords,
			Company:         e.Company,
			ConstructedYear: e.BuiltYear,
			AbandonedYear:   e.AbandonedYear,
		})
	}
	return doc
}
