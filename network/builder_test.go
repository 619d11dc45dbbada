package network

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prairiehistory/railnet/geo"
)

func testBuilder() *Builder {
	return NewBuilder(50, 100)
}

// A straight north-south mainline with a branch touching its interior point.
// The touch point carries no junction marker in the input; the builder has to
// detect it by coincidence and split the mainline there.
func mainlineAndBranch() []Segment {
	return []Segment{
		{
			Coords: []geo.Point{
				{Lat: 50.0, Lon: -105.0},
				{Lat: 50.1, Lon: -105.0},
				{Lat: 50.2, Lon: -105.0},
			},
			Company:   "CPR",
			BuiltYear: 1905,
		},
		{
			Coords: []geo.Point{
				{Lat: 50.1, Lon: -105.0},
				{Lat: 50.1, Lon: -104.9},
			},
			Company:   "CNR",
			BuiltYear: 1911,
		},
	}
}

func TestBuildSplitsAtImplicitJunction(t *testing.T) {
	g, report := testBuilder().Build(mainlineAndBranch())

	assert.Equal(t, 4, g.NodeCount(), "junction + three endpoints")
	assert.Equal(t, 3, len(g.Edges()), "mainline split in two, plus the branch")
	assert.Equal(t, 1, report.Junctions)
	assert.Equal(t, 0, report.Rejected)

	comps := g.Components()
	require.Len(t, comps, 1, "touching segments must form one component")
	assert.Len(t, comps[0], 4)
}

func TestBuildConservesTrackLength(t *testing.T) {
	segments := mainlineAndBranch()
	inputKM := 0.0
	for _, s := range segments {
		inputKM += geo.PolylineLengthKM(s.Coords)
	}

	g, _ := testBuilder().Build(segments)
	assert.InDelta(t, inputKM, g.TotalLengthKM(), 1e-9,
		"splitting must not create or destroy track length")
}

func TestBuildRejectsInvalidSegments(t *testing.T) {
	segments := append(mainlineAndBranch(),
		Segment{Coords: []geo.Point{{Lat: 51, Lon: -106}}}, // single point
		Segment{Coords: nil},
	)
	g, report := testBuilder().Build(segments)

	assert.Equal(t, 2, report.Rejected)
	assert.Equal(t, 3, len(g.Edges()), "valid segments still build")
}

func TestBuildMergesNearDuplicateEndpoints(t *testing.T) {
	// Two independently digitized segments whose shared junction endpoints
	// are ~12m apart. With 100m merge tolerance they must become one node.
	segments := []Segment{
		{Coords: []geo.Point{{Lat: 50.0, Lon: -105.0}, {Lat: 50.1, Lon: -105.0}}},
		{Coords: []geo.Point{{Lat: 50.1001, Lon: -105.0001}, {Lat: 50.2, Lon: -105.0}}},
	}
	g, _ := testBuilder().Build(segments)

	assert.Equal(t, 3, g.NodeCount())
	assert.Len(t, g.Components(), 1)
}

func TestBuildNodeUniqueness(t *testing.T) {
	b := testBuilder()
	g, _ := b.Build(mainlineAndBranch())

	nodes := g.Nodes()
	tolKM := b.NodeMergeM / 1000
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			d := geo.HaversineKM(nodes[i].Coord, nodes[j].Coord)
			assert.Greater(t, d, tolKM,
				"nodes %s and %s are within merge tolerance", nodes[i].ID, nodes[j].ID)
		}
	}
}

func TestBuildEdgeEndpointConsistency(t *testing.T) {
	g, _ := testBuilder().Build(mainlineAndBranch())

	// Direction is never guaranteed, but one of the two coordinate ends must
	// sit at each endpoint node (within the merge tolerance).
	epsKM := 0.1
	for _, e := range g.Edges() {
		from, _ := g.Node(e.From)
		to, _ := g.Node(e.To)
		first := e.Coords[0]
		last := e.Coords[len(e.Coords)-1]

		forward := geo.HaversineKM(first, from.Coord) < epsKM && geo.HaversineKM(last, to.Coord) < epsKM
		reverse := geo.HaversineKM(first, to.Coord) < epsKM && geo.HaversineKM(last, from.Coord) < epsKM
		assert.True(t, forward || reverse, "edge %d direction unresolvable by coordinates", e.ID)
	}
}

func TestBuildKeepsShorterDuplicate(t *testing.T) {
	// Two parallel digitizations of the same stretch: same endpoints, one
	// with a detour. The shorter survives.
	direct := Segment{Coords: []geo.Point{{Lat: 50.0, Lon: -105.0}, {Lat: 50.1, Lon: -105.0}}}
	detour := Segment{Coords: []geo.Point{
		{Lat: 50.0, Lon: -105.0},
		{Lat: 50.05, Lon: -105.2},
		{Lat: 50.1, Lon: -105.0},
	}}

	g, report := testBuilder().Build([]Segment{detour, direct})
	require.Len(t, g.Edges(), 1)
	assert.Equal(t, 1, report.DuplicatesMerged)
	assert.InDelta(t, geo.PolylineLengthKM(direct.Coords), g.Edges()[0].LengthKM, 1e-9)
}

func TestBuildDeterministicNodeIDs(t *testing.T) {
	first, _ := testBuilder().Build(mainlineAndBranch())
	second, _ := testBuilder().Build(mainlineAndBranch())

	a := first.Nodes()
	b := second.Nodes()
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
		assert.Equal(t, a[i].Coord, b[i].Coord)
	}
}

func TestBuildDisconnectedSegments(t *testing.T) {
	segments := []Segment{
		{Coords: []geo.Point{{Lat: 50.0, Lon: -105.0}, {Lat: 50.1, Lon: -105.0}}},
		{Coords: []geo.Point{{Lat: 55.0, Lon: -108.0}, {Lat: 55.1, Lon: -108.0}}},
	}
	g, _ := testBuilder().Build(segments)

	comps := g.Components()
	assert.Len(t, comps, 2, "unrelated segments stay in separate components")
}

func TestOrientedFrom(t *testing.T) {
	e := &Edge{Coords: []geo.Point{
		{Lat: 50.0, Lon: -105.0},
		{Lat: 50.1, Lon: -105.0},
		{Lat: 50.2, Lon: -105.0},
	}}

	fromSouth := e.OrientedFrom(geo.Point{Lat: 50.0, Lon: -105.0})
	assert.Equal(t, 50.0, fromSouth[0].Lat)

	fromNorth := e.OrientedFrom(geo.Point{Lat: 50.2, Lon: -105.0})
	assert.Equal(t, 50.2, fromNorth[0].Lat)
	assert.Equal(t, 50.0, fromNorth[len(fromNorth)-1].Lat)

	// Orienting must not mutate the stored geometry.
	assert.Equal(t, 50.0, e.Coords[0].Lat)
}

func TestComputeStats(t *testing.T) {
	g, _ := testBuilder().Build(mainlineAndBranch())
	s := g.ComputeStats()

	assert.Equal(t, 4, s.Nodes)
	assert.Equal(t, 3, s.Edges)
	assert.Equal(t, 1, s.Components)
	assert.Equal(t, 4, s.LargestComponent)
	assert.Equal(t, 1, s.Junctions, "the split point has degree 3")
	assert.Equal(t, 3, s.MaxDegree)
	assert.False(t, math.IsNaN(s.TotalLengthKM))
}
