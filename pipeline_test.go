package railnet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/prairiehistory/railnet/config"
)

// fixtureTracks is a CPR mainline plus a disconnected northern spur.
func fixtureTracks() TracksDocument {
	return TracksDocument{Segments: []TrackSegment{
		{
			Coordinates:     [][2]float64{{50.0, -105.0}, {50.0, -104.5}, {50.0, -104.0}},
			Company:         "CPR",
			ConstructedYear: 1885,
		},
		{
			Coordinates:     [][2]float64{{52.0, -105.0}, {52.0, -104.9}},
			Company:         "CPR",
			ConstructedYear: 1920,
		},
	}}
}

func fixtureSettlements() SettlementsDocument {
	return SettlementsDocument{Settlements: []Settlement{
		{Name: "Alameda", Lat: 50.001, Lon: -105.0, Railways: []RailwayPresence{{Railway: "CPR", Year: 1885}}},
		{Name: "Bounty", Lat: 50.01, Lon: -104.5, Railways: []RailwayPresence{{Railway: "CPR", Year: 1890}}},
		{Name: "Cabri", Lat: 52.001, Lon: -105.0, Railways: []RailwayPresence{{Railway: "CPR", Year: 1920}}},
	}}
}

func runFixture(t *testing.T) Result {
	t.Helper()
	result, err := NewPipeline(config.Default()).Run(fixtureTracks(), fixtureSettlements())
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	return result
}

func findConnection(t *testing.T, doc ConnectionsDocument, s1, s2 string) ConnectionRecord {
	t.Helper()
	for _, c := range doc.Connections {
		if c.Settlement1 == s1 && c.Settlement2 == s2 {
			return c
		}
	}
	t.Fatalf("connection %s-%s not found", s1, s2)
	return ConnectionRecord{}
}

func TestPipelineNetworkDocument(t *testing.T) {
	result := runFixture(t)

	if got := len(result.Network.Nodes); got != 4 {
		t.Errorf("expected 4 nodes, got %d", got)
	}
	if got := len(result.Network.Edges); got != 2 {
		t.Errorf("expected 2 edges, got %d", got)
	}
	if got := result.Network.Stats.Components; got != 2 {
		t.Errorf("expected 2 components, got %d", got)
	}
	for _, e := range result.Network.Edges {
		if e.Company != "CPR" {
			t.Errorf("edge %d lost its company attribute: %q", e.ID, e.Company)
		}
		if len(e.Coordinates) < 2 {
			t.Errorf("edge %d has %d coordinates", e.ID, len(e.Coordinates))
		}
	}
}

func TestPipelineMappingDocument(t *testing.T) {
	result := runFixture(t)

	if got := len(result.Mapping.Mappings); got != 3 {
		t.Fatalf("expected 3 mappings, got %d", got)
	}
	// Sorted by settlement name.
	for i := 1; i < len(result.Mapping.Mappings); i++ {
		if result.Mapping.Mappings[i-1].Settlement > result.Mapping.Mappings[i].Settlement {
			t.Errorf("mappings not sorted: %q before %q",
				result.Mapping.Mappings[i-1].Settlement, result.Mapping.Mappings[i].Settlement)
		}
	}
	for _, m := range result.Mapping.Mappings {
		if m.Quality != "on_network" {
			t.Errorf("%s: expected on_network, got %s (%.2f km)", m.Settlement, m.Quality, m.SnapDistanceKM)
		}
		if len(m.SnapNodes) == 0 {
			t.Errorf("%s: no snap nodes recorded", m.Settlement)
		}
	}
}

func TestPipelineRoutedConnection(t *testing.T) {
	result := runFixture(t)

	conn := findConnection(t, result.Connections, "Alameda", "Bounty")
	if conn.SharedRailway != "CPR" {
		t.Errorf("expected shared railway CPR, got %q", conn.SharedRailway)
	}
	// Connection year is the later of the two arrivals.
	if conn.ConnectedYear != 1890 {
		t.Errorf("expected connected year 1890, got %d", conn.ConnectedYear)
	}
	if conn.RailwayDistanceKM == nil {
		t.Fatal("expected a routed railway distance")
	}
	// Half the mainline: both distances sit around 36 km here.
	if *conn.RailwayDistanceKM < 30 || *conn.RailwayDistanceKM > 40 {
		t.Errorf("unexpected track distance %.2f km", *conn.RailwayDistanceKM)
	}
	if conn.Status != StatusOK {
		t.Errorf("expected status ok, got %s", conn.Status)
	}
	if conn.Approximate {
		t.Error("routed connection marked approximate")
	}
	if conn.Geometry == "" {
		t.Error("routed connection has no geometry")
	}
}

func TestPipelineDisconnectedPair(t *testing.T) {
	result := runFixture(t)

	conn := findConnection(t, result.Connections, "Alameda", "Cabri")
	if conn.RailwayDistanceKM != nil {
		t.Errorf("disconnected pair should have null railway distance, got %.2f", *conn.RailwayDistanceKM)
	}
	if conn.Status != StatusNoPath {
		t.Errorf("expected status no_path, got %s", conn.Status)
	}
	if !conn.Approximate {
		t.Error("direct-line fallback must be flagged approximate")
	}
	if conn.Geometry == "" {
		t.Error("fallback connection has no geometry")
	}
}

func TestPipelineSummary(t *testing.T) {
	result := runFixture(t)

	if got := result.Summary.Count(StatusOK); got != 1 {
		t.Errorf("expected 1 ok pair, got %d", got)
	}
	if got := result.Summary.Count(StatusNoPath); got != 2 {
		t.Errorf("expected 2 no_path pairs, got %d", got)
	}
	if got := result.Summary.FailureCount(); got != 2 {
		t.Errorf("expected failure count 2, got %d", got)
	}
}

func TestPipelineSharedRailwayFilter(t *testing.T) {
	settlements := fixtureSettlements()
	settlements.Settlements[1].Railways = []RailwayPresence{{Railway: "GTP", Year: 1908}}

	result, err := NewPipeline(config.Default()).Run(fixtureTracks(), settlements)
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	for _, c := range result.Connections.Connections {
		if c.Settlement1 == "Bounty" || c.Settlement2 == "Bounty" {
			t.Errorf("pair %s-%s generated despite no shared railway", c.Settlement1, c.Settlement2)
		}
	}
}

func TestPipelineRejectsInvalidSegments(t *testing.T) {
	tracks := fixtureTracks()
	tracks.Segments = append(tracks.Segments, TrackSegment{
		Coordinates: [][2]float64{{51.0, -106.0}},
		Company:     "GTP",
		Source:      "nrwn",
	})

	result, err := NewPipeline(config.Default()).Run(tracks, fixtureSettlements())
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if got := result.Summary.Count(StatusRejectedSegment); got != 1 {
		t.Errorf("expected 1 rejected segment, got %d", got)
	}
	if got := len(result.Network.Edges); got != 2 {
		t.Errorf("invalid segment leaked into the graph: %d edges", got)
	}
}

func TestPipelineEmptyTracks(t *testing.T) {
	_, err := NewPipeline(config.Default()).Run(TracksDocument{}, fixtureSettlements())
	if err == nil {
		t.Fatal("expected error for empty tracks input")
	}
}

func TestPipelineDeterministic(t *testing.T) {
	first := runFixture(t)
	second := runFixture(t)

	for name, pair := range map[string][2]any{
		"network":     {first.Network, second.Network},
		"mapping":     {first.Mapping, second.Mapping},
		"connections": {first.Connections, second.Connections},
	} {
		a, err := json.Marshal(pair[0])
		if err != nil {
			t.Fatal(err)
		}
		b, err := json.Marshal(pair[1])
		if err != nil {
			t.Fatal(err)
		}
		if string(a) != string(b) {
			t.Errorf("%s document differs between identical runs", name)
		}
	}
}

func TestWriteDocuments(t *testing.T) {
	result := runFixture(t)
	dir := t.TempDir()

	if err := WriteDocuments(dir, result.Network, result.Mapping, result.Connections); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	for _, name := range []string{"railway_network.json", "settlement_mapping.json", "settlement_connections.json"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
		var v map[string]any
		if err := json.Unmarshal(data, &v); err != nil {
			t.Errorf("%s is not valid JSON: %v", name, err)
		}
	}
}

func TestSharedRailway(t *testing.T) {
	cpr1885 := RailwayPresence{Railway: "CPR", Year: 1885}
	cpr1910 := RailwayPresence{Railway: "CPR", Year: 1910}
	cnr1905 := RailwayPresence{Railway: "CNR", Year: 1905}
	cnr1930 := RailwayPresence{Railway: "CNR", Year: 1930}

	tests := []struct {
		name        string
		a, b        []RailwayPresence
		wantRailway string
		wantYear    int
		wantOK      bool
	}{
		{"single shared", []RailwayPresence{cpr1885}, []RailwayPresence{cpr1910}, "CPR", 1910, true},
		{"earliest shared wins", []RailwayPresence{cpr1885, cnr1905}, []RailwayPresence{cpr1910, cnr1930}, "CPR", 1910, true},
		{"no shared", []RailwayPresence{cpr1885}, []RailwayPresence{cnr1905}, "", 0, false},
		{"no history", nil, []RailwayPresence{cpr1885}, "", 0, false},
		{"zero year ignored", []RailwayPresence{{Railway: "CPR"}}, []RailwayPresence{cpr1910}, "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			railway, year, ok := sharedRailway(tt.a, tt.b)
			got := []any{railway, year, ok}
			want := []any{tt.wantRailway, tt.wantYear, tt.wantOK}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("sharedRailway() = %v, want %v", got, want)
			}
		})
	}
}
