package geom

import (
	"fmt"

	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/domain"
	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/safety"
)

// NormalizeUnits converts externally supplied loops into the internal
// millimeter space. This is the only place units are handled for geometry;
// everything downstream assumes millimeters.
func NormalizeUnits(loops []domain.Loop, units domain.Units) ([]domain.Loop, error) {
	switch units {
	case domain.UnitsMM, "":
		return loops, nil
	case domain.UnitsInch:
		out := make([]domain.Loop, len(loops))
		for i, l := range loops {
			pts := make([]domain.Point, len(l.Points))
			for j, p := range l.Points {
				pts[j] = domain.Point{X: p.X * domain.MMPerInch, Y: p.Y * domain.MMPerInch}
			}
			out[i] = domain.Loop{Points: pts, Role: l.Role}
		}
		return out, nil
	default:
		return nil, &domain.CoreError{
			Code:    domain.ErrUnknownUnits.Code,
			Message: fmt.Sprintf("%s: %q", domain.ErrUnknownUnits.Message, units),
		}
	}
}

// CleanLoop deduplicates near-coincident vertices, drops collinear runs, and
// validates the result. Degenerate input is rejected with a typed error, not
// silently dropped: the caller must know which loop was bad.
func CleanLoop(l domain.Loop, tolerance float64) (domain.Loop, error) {
	if tolerance <= 0 {
		tolerance = 0.001
	}

	if len(l.Points) < 3 {
		return domain.Loop{}, &domain.CoreError{
			Code:    domain.ErrDegenerateLoop.Code,
			Message: fmt.Sprintf("%s: got %d points", domain.ErrDegenerateLoop.Message, len(l.Points)),
		}
	}

	// Spatial-hash dedup: repeated vertices collapse to one identity.
	hash := safety.NewSpatialHash(maxFloat(tolerance, 0.1))
	var pts []domain.Point
	seen := make(map[int]bool)
	for _, p := range l.Points {
		id := hash.GetOrAdd(p, tolerance)
		if seen[id] {
			continue
		}
		seen[id] = true
		pts = append(pts, hash.Point(id))
	}

	// Drop an explicit closing vertex.
	if len(pts) > 1 && pts[0].Distance(pts[len(pts)-1]) <= tolerance {
		pts = pts[:len(pts)-1]
	}

	pts = dropCollinear(pts, tolerance)

	if len(pts) < 3 {
		return domain.Loop{}, &domain.CoreError{
			Code:    domain.ErrDegenerateLoop.Code,
			Message: fmt.Sprintf("%s: %d distinct points after cleanup", domain.ErrDegenerateLoop.Message, len(pts)),
		}
	}

	out := domain.Loop{Points: pts, Role: l.Role}
	if absFloat(out.Area()) <= tolerance*tolerance {
		return domain.Loop{}, domain.ErrZeroAreaLoop
	}
	return out, nil
}

// CleanLoops cleans every loop, labels errors with the loop index, and
// normalizes winding: boundaries counter-clockwise, islands clockwise.
func CleanLoops(loops []domain.Loop, tolerance float64) ([]domain.Loop, error) {
	out := make([]domain.Loop, 0, len(loops))
	for i, l := range loops {
		cleaned, err := CleanLoop(l, tolerance)
		if err != nil {
			if ce, ok := err.(*domain.CoreError); ok {
				return nil, &domain.CoreError{
					Code:    ce.Code,
					Message: fmt.Sprintf("loop %d: %s", i, ce.Message),
				}
			}
			return nil, err
		}

		ccw := cleaned.Area() > 0
		if (cleaned.Role == domain.RoleIsland) == ccw {
			reversePoints(cleaned.Points)
		}
		out = append(out, cleaned)
	}
	return out, nil
}

// dropCollinear removes vertices whose removal displaces the contour by no
// more than the tolerance.
func dropCollinear(pts []domain.Point, tolerance float64) []domain.Point {
	n := len(pts)
	if n < 3 {
		return pts
	}
	out := make([]domain.Point, 0, n)
	for i := 0; i < n; i++ {
		prev := pts[(i-1+n)%n]
		cur := pts[i]
		next := pts[(i+1)%n]
		if pointLineDistance(cur, prev, next) > tolerance {
			out = append(out, cur)
		}
	}
	return out
}

// pointLineDistance returns the distance from p to the segment a-b.
func pointLineDistance(p, a, b domain.Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return p.Distance(a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return p.Distance(domain.Point{X: a.X + t*dx, Y: a.Y + t*dy})
}

func reversePoints(pts []domain.Point) {
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func absFloat(a float64) float64 {
	if a < 0 {
		return -a
	}
	return a
}
