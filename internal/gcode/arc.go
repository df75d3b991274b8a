// Package gcode serializes toolpath moves into motion-command text and,
// symmetrically, re-parses arbitrary motion programs back into move lists
// with full modal-state tracking and safety validation.
package gcode

import (
	"errors"
	"math"

	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/domain"
)

var errArcRadius = errors.New("arc radius shorter than half the chord")

// arcCenterFromOffset reconstructs the center in offset notation:
// center = start + offset vector.
func arcCenterFromOffset(start, offset domain.Point) domain.Point {
	return domain.Point{X: start.X + offset.X, Y: start.Y + offset.Y}
}

// arcCenterFromRadius reconstructs the center in radius notation. The
// center lies on the perpendicular bisector of the chord at distance
// sqrt(r^2 - (chord/2)^2) from the chord midpoint, on one of two sides;
// the side is chosen so the signed sweep matches the commanded rotation:
// positive radius selects the minor arc, negative radius the major arc.
func arcCenterFromRadius(start, end domain.Point, radius float64, clockwise bool) (domain.Point, error) {
	chord := start.Distance(end)
	r := math.Abs(radius)
	if chord < 1e-9 {
		return domain.Point{}, errArcRadius
	}
	half := chord / 2
	if r < half-1e-9 {
		return domain.Point{}, errArcRadius
	}
	if r < half {
		r = half
	}

	h := math.Sqrt(r*r - half*half)
	midX := (start.X + end.X) / 2
	midY := (start.Y + end.Y) / 2
	// Unit perpendicular to the chord.
	px := -(end.Y - start.Y) / chord
	py := (end.X - start.X) / chord

	c1 := domain.Point{X: midX + px*h, Y: midY + py*h}
	c2 := domain.Point{X: midX - px*h, Y: midY - py*h}

	s1 := sweepAngle(start, end, c1, clockwise)
	s2 := sweepAngle(start, end, c2, clockwise)

	// Positive radius: the shorter sweep. Negative: the longer one.
	if radius >= 0 {
		if math.Abs(s1) <= math.Abs(s2) {
			return c1, nil
		}
		return c2, nil
	}
	if math.Abs(s1) >= math.Abs(s2) {
		return c1, nil
	}
	return c2, nil
}

// sweepAngle returns the signed angular travel from start to end about
// center in the commanded direction: positive for counter-clockwise,
// negative for clockwise, handling wraparound. A zero geometric sweep with
// coincident endpoints is a full circle.
func sweepAngle(start, end, center domain.Point, clockwise bool) float64 {
	a0 := math.Atan2(start.Y-center.Y, start.X-center.X)
	a1 := math.Atan2(end.Y-center.Y, end.X-center.X)

	// Normalize into the commanded direction: CCW sweeps land in (0, 2pi],
	// CW sweeps in [-2pi, 0). Coincident endpoints become a full circle.
	sweep := a1 - a0
	if clockwise {
		for sweep >= 0 {
			sweep -= 2 * math.Pi
		}
	} else {
		for sweep <= 0 {
			sweep += 2 * math.Pi
		}
	}
	return sweep
}

// arcLength is the signed sweep times radius, never the chord length.
func arcLength(start, end, center domain.Point, clockwise bool) float64 {
	r := start.Distance(center)
	return math.Abs(sweepAngle(start, end, center, clockwise)) * r
}
