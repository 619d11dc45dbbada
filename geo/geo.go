// Package geo provides the geographic primitives used by the railway
// network pipeline: great-circle distance, polyline length, and
// point-to-segment projection.
//
// All distances are in kilometers. Coordinates are WGS84 lat/lon degrees.
package geo

import "math"

// EarthRadiusKM is the mean Earth radius used for great-circle math.
const EarthRadiusKM = 6371.0

// Point is a geographic coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// HaversineKM returns the great-circle distance between two points in kilometers.
func HaversineKM(a, b Point) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	la1 := a.Lat * math.Pi / 180
	la2 := b.Lat * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(la1)*math.Cos(la2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return EarthRadiusKM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// PolylineLengthKM sums the great-circle distances between consecutive points.
// Tracks curve, so this is the track length, not the endpoint distance.
func PolylineLengthKM(pts []Point) float64 {
	total := 0.0
	for i := 0; i < len(pts)-1; i++ {
		total += HaversineKM(pts[i], pts[i+1])
	}
	return total
}

// CumulativeKM returns the running track length at each point of a polyline.
// The first entry is always 0; the last equals PolylineLengthKM.
func CumulativeKM(pts []Point) []float64 {
	if len(pts) == 0 {
		return nil
	}
	cum := make([]float64, len(pts))
	for i := 1; i < len(pts); i++ {
		cum[i] = cum[i-1] + HaversineKM(pts[i-1], pts[i])
	}
	return cum
}

// PointToSegment projects p onto the segment a-b and returns the distance in
// kilometers from p to the nearest point of the segment, together with the
// clamped projection parameter t in [0,1] (t=0 at a, t=1 at b).
//
// The projection itself uses a local equirectangular approximation (longitude
// scaled by cos(lat)); the returned distance is the true great-circle
// distance to the projected point. At the scale of track segments the
// approximation error is negligible.
func PointToSegment(p, a, b Point) (distKM, t float64) {
	scale := math.Cos(a.Lat * math.Pi / 180)
	ax, ay := a.Lon*scale, a.Lat
	bx, by := b.Lon*scale, b.Lat
	px, py := p.Lon*scale, p.Lat

	dx, dy := bx-ax, by-ay
	if dx == 0 && dy == 0 {
		// Degenerate segment: a and b coincide.
		return HaversineKM(p, a), 0
	}

	t = ((px-ax)*dx + (py-ay)*dy) / (dx*dx + dy*dy)
	t = math.Max(0, math.Min(1, t))

	nearest := Interpolate(a, b, t)
	return HaversineKM(p, nearest), t
}

// Interpolate returns the point at fraction t along the straight segment a-b.
func Interpolate(a, b Point, t float64) Point {
	return Point{
		Lat: a.Lat + t*(b.Lat-a.Lat),
		Lon: a.Lon + t*(b.Lon-a.Lon),
	}
}

// ClosestIndex returns the index of the polyline point nearest to p, together
// with the distance to it in kilometers. Returns (-1, +Inf) for an empty
// polyline.
func ClosestIndex(pts []Point, p Point) (int, float64) {
	best := -1
	bestDist := math.Inf(1)
	for i, pt := range pts {
		if d := HaversineKM(pt, p); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best, bestDist
}
