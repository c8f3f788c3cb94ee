// Package geo implements point-in-polygon containment for zone geometries.
//
// Points on a ring boundary are outside. The rule holds for outer rings and
// holes alike, so a point on a hole edge is also outside. A vehicle parked
// exactly on a zone edge therefore never flips between samples.
//
// Coordinates are planar (longitude, latitude) pairs as in GeoJSON.
package geo

import (
	"github.com/paulmach/orb"
)

// Point is a (longitude, latitude) pair.
type Point = orb.Point

// Shape is a containment-testable geometry with a precomputed bound.
type Shape struct {
	polygons []orb.Polygon
	bound    orb.Bound
}

// NewShape builds a Shape from a Polygon or MultiPolygon.
// It returns false for any other geometry or for an empty one.
func NewShape(g orb.Geometry) (Shape, bool) {
	var polys []orb.Polygon
	switch t := g.(type) {
	case orb.Polygon:
		polys = []orb.Polygon{t}
	case orb.MultiPolygon:
		polys = []orb.Polygon(t)
	default:
		return Shape{}, false
	}

	s := Shape{}
	first := true
	for _, p := range polys {
		if len(p) == 0 || len(p[0]) < 3 {
			return Shape{}, false
		}
		b := p[0].Bound()
		if first {
			s.bound = b
			first = false
		} else {
			s.bound = s.bound.Union(b)
		}
		s.polygons = append(s.polygons, p)
	}
	if first {
		return Shape{}, false
	}
	return s, true
}

// Bound returns the bounding box of every outer ring.
func (s Shape) Bound() orb.Bound { return s.bound }

// Contains reports whether p lies strictly inside the shape.
func (s Shape) Contains(p Point) bool {
	// bound prefilter: inclusive, so boundary points still reach the exact test
	if !s.bound.Contains(p) {
		return false
	}
	for _, poly := range s.polygons {
		if PolygonContains(poly, p) {
			return true
		}
	}
	return false
}

// PolygonContains reports whether p is strictly inside the outer ring of
// poly and not inside or on any of its holes.
func PolygonContains(poly orb.Polygon, p Point) bool {
	if len(poly) == 0 {
		return false
	}
	if !ringContains(poly[0], p) {
		return false
	}
	for _, hole := range poly[1:] {
		if onRing(hole, p) || ringContains(hole, p) {
			return false
		}
	}
	return true
}

// ringContains applies the even-odd rule and excludes the boundary.
// The ring may or may not repeat its first point at the end.
func ringContains(r orb.Ring, p Point) bool {
	n := len(r)
	if n < 3 {
		return false
	}
	if onRing(r, p) {
		return false
	}
	in := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := r[i], r[j]
		if (a[1] > p[1]) != (b[1] > p[1]) {
			x := (b[0]-a[0])*(p[1]-a[1])/(b[1]-a[1]) + a[0]
			if p[0] < x {
				in = !in
			}
		}
	}
	return in
}

func onRing(r orb.Ring, p Point) bool {
	n := len(r)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		if onSegment(r[j], r[i], p) {
			return true
		}
	}
	return false
}

func onSegment(a, b, p Point) bool {
	cross := (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
	if cross != 0 {
		return false
	}
	return p[0] >= min(a[0], b[0]) && p[0] <= max(a[0], b[0]) &&
		p[1] >= min(a[1], b[1]) && p[1] <= max(a[1], b[1])
}
