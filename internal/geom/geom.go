// Package geom implements the boundary offset engine: loop validation and
// cleanup, inward polygon offsetting, island subtraction, and the nested
// ring-stack builder.
//
// All public interfaces are floating-point millimeters. Internally the
// engine works on integer-scaled coordinates (micrometers, 1000x) so that
// the boolean-style operations do not suffer floating-point robustness
// failures near coincident vertices.
package geom

import (
	"math"

	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/domain"
)

// Scale is the integer scaling factor: 1 mm = 1000 internal units.
const Scale = 1000

// ipoint is an integer-scaled coordinate.
type ipoint struct {
	X, Y int64
}

func toScaled(p domain.Point) ipoint {
	return ipoint{
		X: int64(math.Round(p.X * Scale)),
		Y: int64(math.Round(p.Y * Scale)),
	}
}

func fromScaled(p ipoint) domain.Point {
	return domain.Point{
		X: float64(p.X) / Scale,
		Y: float64(p.Y) / Scale,
	}
}

func scaleLoop(pts []domain.Point) []ipoint {
	out := make([]ipoint, len(pts))
	for i, p := range pts {
		out[i] = toScaled(p)
	}
	return out
}

func unscaleLoop(pts []ipoint) []domain.Point {
	out := make([]domain.Point, len(pts))
	for i, p := range pts {
		out[i] = fromScaled(p)
	}
	return out
}

// signedArea2 returns twice the signed area of the scaled polygon.
// Positive for counter-clockwise winding.
func signedArea2(pts []ipoint) int64 {
	var area int64
	n := len(pts)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return area
}

// cross returns the z component of (b-a) x (c-a).
func cross(a, b, c ipoint) int64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// pointInPolygon reports whether p lies strictly inside the scaled polygon,
// using the even-odd ray casting rule. Points on the border count as outside.
func pointInPolygon(p ipoint, poly []ipoint) bool {
	inside := false
	n := len(poly)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			// x coordinate of the edge at p.Y
			xc := float64(a.X) + float64(p.Y-a.Y)/float64(b.Y-a.Y)*float64(b.X-a.X)
			if float64(p.X) < xc {
				inside = !inside
			}
		}
	}
	return inside
}

// segIntersect finds the proper intersection of segments a0-a1 and b0-b1.
// It returns the intersection point and the parameter t along a0-a1 in
// [0, 1]. Collinear overlaps and shared endpoints report no intersection;
// the callers splice at proper crossings only.
func segIntersect(a0, a1, b0, b1 ipoint) (ipoint, float64, bool) {
	d1x := float64(a1.X - a0.X)
	d1y := float64(a1.Y - a0.Y)
	d2x := float64(b1.X - b0.X)
	d2y := float64(b1.Y - b0.Y)

	denom := d1x*d2y - d1y*d2x
	if denom == 0 {
		return ipoint{}, 0, false
	}

	t := (float64(b0.X-a0.X)*d2y - float64(b0.Y-a0.Y)*d2x) / denom
	u := (float64(b0.X-a0.X)*d1y - float64(b0.Y-a0.Y)*d1x) / denom

	const eps = 1e-9
	if t <= eps || t >= 1-eps || u <= eps || u >= 1-eps {
		return ipoint{}, 0, false
	}

	p := ipoint{
		X: a0.X + int64(math.Round(t*d1x)),
		Y: a0.Y + int64(math.Round(t*d1y)),
	}
	return p, t, true
}

// reverse flips the winding of a scaled loop in place.
func reverse(pts []ipoint) {
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
}

// loopInsideLoop reports whether every vertex of inner lies inside outer.
func loopInsideLoop(inner, outer []ipoint) bool {
	for _, p := range inner {
		if !pointInPolygon(p, outer) {
			return false
		}
	}
	return true
}
