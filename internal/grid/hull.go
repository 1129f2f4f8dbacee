package grid

import (
	"math"
	"slices"

	"github.com/ctessum/geom"
)

// hullEpsilon is the relative tolerance for points lying on the hull boundary.
const hullEpsilon = 1e-9

// hull is the convex hull of a sample set. ring holds the vertices in
// counter-clockwise order; fewer than three describe a point or a segment,
// in which case polygon is nil.
type hull struct {
	ring    geom.Path
	polygon geom.Polygon
	scale   float64
}

// newHull orders the distinct points with Andrew's monotone chain and closes
// the result into a geom.Polygon.
func newHull(pts samplePoints) hull {
	vs := make(geom.Path, len(pts))
	for i, p := range pts {
		vs[i] = geom.Point{X: p.x, Y: p.y}
	}
	slices.SortFunc(vs, comparePoints)
	vs = slices.Compact(vs)

	scale := 0.0
	for _, v := range vs {
		scale = math.Max(scale, math.Max(math.Abs(v.X), math.Abs(v.Y)))
	}
	if scale == 0 {
		scale = 1
	}

	if len(vs) < 3 {
		return hull{ring: vs, scale: scale}
	}

	lower := make(geom.Path, 0, len(vs))
	for _, v := range vs {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], v) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, v)
	}
	upper := make(geom.Path, 0, len(vs))
	for i := len(vs) - 1; i >= 0; i-- {
		v := vs[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], v) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, v)
	}

	ring := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	if len(ring) < 3 {
		// collinear input collapses to its two end points
		return hull{ring: ring, scale: scale}
	}
	closed := append(slices.Clone(ring), ring[0])
	return hull{ring: ring, polygon: geom.Polygon{closed}, scale: scale}
}

func comparePoints(a, b geom.Point) int {
	switch {
	case a.X < b.X:
		return -1
	case a.X > b.X:
		return 1
	case a.Y < b.Y:
		return -1
	case a.Y > b.Y:
		return 1
	}
	return 0
}

func cross(o, a, b geom.Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// contains reports whether (x, y) is inside the hull or within tolerance of
// its boundary.
func (h hull) contains(x, y float64) bool {
	p := geom.Point{X: x, Y: y}
	tol := hullEpsilon * h.scale

	switch len(h.ring) {
	case 0:
		return false
	case 1:
		v := h.ring[0]
		return math.Abs(v.X-x) <= tol && math.Abs(v.Y-y) <= tol
	case 2:
		return onSegment(h.ring[0], h.ring[1], p, tol)
	}

	if p.Within(h.polygon) != geom.Outside {
		return true
	}
	n := len(h.ring)
	for i := range n {
		if onSegment(h.ring[i], h.ring[(i+1)%n], p, tol) {
			return true
		}
	}
	return false
}

func onSegment(a, b, p geom.Point, tol float64) bool {
	length := math.Hypot(b.X-a.X, b.Y-a.Y)
	if math.Abs(cross(a, b, p)) > tol*length {
		return false
	}
	return p.X >= math.Min(a.X, b.X)-tol && p.X <= math.Max(a.X, b.X)+tol &&
		p.Y >= math.Min(a.Y, b.Y)-tol && p.Y <= math.Max(a.Y, b.Y)+tol
}
