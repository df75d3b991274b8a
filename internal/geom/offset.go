package geom

import (
	"fmt"
	"math"

	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/domain"
)

// miterLimit bounds how far a miter join may spike beyond the offset
// distance before it is beveled instead.
const miterLimit = 4.0

// Split-pass fallback bounds, used when the caller supplies zero-valued
// safety limits.
const (
	defaultSplitDepth      = 64
	defaultSplitIterations = 1 << 16
)

// Offset displaces every loop along its outward normal by distance.
// Negative distance insets boundaries (and would shrink islands; island
// growth for clearance is the ring builder's concern, which passes the
// opposite sign for island loops).
//
// Offsetting by 0 returns the input unchanged. A loop that collapses under
// the offset contributes nothing to the result; full collapse yields an
// empty slice and a nil error, since collapse is the normal termination
// condition of the ring builder.
func Offset(loops []domain.Loop, distance, tolerance float64) ([]domain.Loop, error) {
	return OffsetWithLimits(loops, distance, tolerance, domain.SafetyLimits{})
}

// OffsetWithLimits is Offset with explicit traversal limits for the
// self-intersection splitting pass. The ring builder threads the configured
// limits through here; zero-valued limits fall back to package defaults.
func OffsetWithLimits(loops []domain.Loop, distance, tolerance float64, limits domain.SafetyLimits) ([]domain.Loop, error) {
	if tolerance <= 0 {
		tolerance = 0.001
	}
	if distance == 0 {
		out := make([]domain.Loop, len(loops))
		copy(out, loops)
		return out, nil
	}

	var result []domain.Loop
	for _, l := range loops {
		if len(l.Points) < 3 {
			return nil, domain.ErrDegenerateLoop
		}
		offs, err := offsetLoop(l, distance, tolerance, limits)
		if err != nil {
			return nil, err
		}
		result = append(result, offs...)
	}
	return result, nil
}

// offsetLoop offsets one loop and cleans up the result. It may return zero
// loops (collapse) or several (the offset pinched the contour apart).
func offsetLoop(l domain.Loop, distance, tolerance float64, limits domain.SafetyLimits) ([]domain.Loop, error) {
	pts := scaleLoop(l.Points)
	origArea := signedArea2(pts)
	if origArea == 0 {
		return nil, nil
	}

	delta := distance * Scale
	raw := displaceEdges(pts, delta)
	if len(raw) < 3 {
		return nil, nil
	}

	pieces, err := splitSelfIntersections(raw, limits)
	if err != nil {
		return nil, err
	}

	minArea2 := int64(2 * (tolerance * Scale) * (tolerance * Scale))
	var out []domain.Loop
	for _, piece := range pieces {
		if len(piece) < 3 {
			continue
		}
		area := signedArea2(piece)
		// Pieces that inverted under the offset are spurious lobes.
		if area == 0 || (area > 0) != (origArea > 0) {
			continue
		}
		if area < 0 {
			area = -area
		}
		if area <= minArea2 {
			continue
		}
		cleaned, err := CleanLoop(domain.Loop{Points: unscaleLoop(piece), Role: l.Role}, tolerance)
		if err != nil {
			continue
		}
		// CleanLoops-style winding normalization is not wanted here; keep
		// the winding the offset produced, which matches the source loop.
		if (cleaned.Area() > 0) != (origArea > 0) {
			reversePoints(cleaned.Points)
		}
		out = append(out, cleaned)
	}
	return out, nil
}

// displaceEdges moves each edge along its outward normal by delta (scaled
// units) and rebuilds vertices at the miter intersections of adjacent
// displaced edges, beveling where the miter would spike.
func displaceEdges(pts []ipoint, delta float64) []ipoint {
	n := len(pts)
	ccw := signedArea2(pts) > 0

	type edge struct {
		dx, dy float64 // direction
		nx, ny float64 // outward unit normal
	}
	edges := make([]edge, n)
	for i := 0; i < n; i++ {
		a := pts[i]
		b := pts[(i+1)%n]
		ex := float64(b.X - a.X)
		ey := float64(b.Y - a.Y)
		length := math.Hypot(ex, ey)
		if length == 0 {
			length = 1
		}
		var nx, ny float64
		if ccw {
			// Interior is to the left of each edge; outward is to the right.
			nx, ny = ey/length, -ex/length
		} else {
			nx, ny = -ey/length, ex/length
		}
		edges[i] = edge{dx: ex, dy: ey, nx: nx, ny: ny}
	}

	maxMiter := math.Abs(delta) * miterLimit

	var out []ipoint
	for i := 0; i < n; i++ {
		prev := (i - 1 + n) % n
		e0 := edges[prev]
		e1 := edges[i]

		// Displaced endpoints of the two edges meeting at vertex i.
		p := pts[i]
		q0x := float64(p.X) + e0.nx*delta
		q0y := float64(p.Y) + e0.ny*delta
		q1x := float64(p.X) + e1.nx*delta
		q1y := float64(p.Y) + e1.ny*delta

		denom := e0.dx*e1.dy - e0.dy*e1.dx
		if math.Abs(denom) < 1e-12 {
			// Parallel edges; single displaced point suffices.
			out = append(out, ipoint{X: int64(math.Round(q1x)), Y: int64(math.Round(q1y))})
			continue
		}

		// Intersect the two displaced edge lines.
		t := ((q1x-q0x)*e1.dy - (q1y-q0y)*e1.dx) / denom
		mx := q0x + e0.dx*t
		my := q0y + e0.dy*t

		spike := math.Hypot(mx-float64(p.X), my-float64(p.Y))
		if spike > maxMiter {
			// Bevel: keep both displaced endpoints instead of the spike.
			out = append(out,
				ipoint{X: int64(math.Round(q0x)), Y: int64(math.Round(q0y))},
				ipoint{X: int64(math.Round(q1x)), Y: int64(math.Round(q1y))},
			)
			continue
		}
		out = append(out, ipoint{X: int64(math.Round(mx)), Y: int64(math.Round(my))})
	}
	return dedupScaled(out)
}

// dedupScaled removes consecutive duplicate scaled vertices.
func dedupScaled(pts []ipoint) []ipoint {
	if len(pts) == 0 {
		return pts
	}
	out := pts[:1]
	for _, p := range pts[1:] {
		last := out[len(out)-1]
		if p != last {
			out = append(out, p)
		}
	}
	if len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}

// splitJob is one polygon awaiting a crossing scan, tagged with the number
// of splits that produced it.
type splitJob struct {
	pts   []ipoint
	depth int
}

// splitSelfIntersections breaks a polygon into crossing-free sub-loops by
// repeatedly splicing at proper self-intersections. The walk uses an
// explicit work stack: language-level recursion is never used, and
// pathological offsets surface a typed traversal error instead of
// exhausting the host stack.
func splitSelfIntersections(pts []ipoint, limits domain.SafetyLimits) ([][]ipoint, error) {
	maxDepth := limits.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultSplitDepth
	}
	budget := limits.MaxIterations
	if budget <= 0 {
		budget = defaultSplitIterations
	}

	var done [][]ipoint
	stack := []splitJob{{pts: pts}}
	iterations := 0
	for len(stack) > 0 {
		iterations++
		if iterations > budget {
			return nil, &domain.CoreError{
				Code:    domain.ErrTraversalBudget.Code,
				Message: fmt.Sprintf("%s: %d split iterations", domain.ErrTraversalBudget.Message, iterations),
			}
		}

		job := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if len(job.pts) < 4 {
			done = append(done, job.pts)
			continue
		}
		one, two, found := firstCrossingSplit(job.pts)
		if !found {
			done = append(done, job.pts)
			continue
		}
		if job.depth+1 > maxDepth {
			return nil, &domain.CoreError{
				Code:    domain.ErrTraversalDepth.Code,
				Message: fmt.Sprintf("%s: %d split rounds", domain.ErrTraversalDepth.Message, job.depth+1),
			}
		}
		stack = append(stack,
			splitJob{pts: dedupScaled(one), depth: job.depth + 1},
			splitJob{pts: dedupScaled(two), depth: job.depth + 1},
		)
	}
	return done, nil
}

// firstCrossingSplit finds the first proper self-intersection of the
// polygon and splices it into the two sub-loops meeting there.
func firstCrossingSplit(pts []ipoint) (one, two []ipoint, found bool) {
	n := len(pts)
	for i := 0; i < n; i++ {
		a0 := pts[i]
		a1 := pts[(i+1)%n]
		for j := i + 2; j < n; j++ {
			// Skip edges adjacent to edge i, including the wraparound pair.
			if i == 0 && j == n-1 {
				continue
			}
			b0 := pts[j]
			b1 := pts[(j+1)%n]
			x, _, ok := segIntersect(a0, a1, b0, b1)
			if !ok {
				continue
			}

			// Loop one: x, pts[i+1..j], back to x.
			one = make([]ipoint, 0, j-i+1)
			one = append(one, x)
			one = append(one, pts[i+1:j+1]...)

			// Loop two: x, pts[j+1..], pts[..i].
			two = make([]ipoint, 0, n-(j-i)+1)
			two = append(two, x)
			two = append(two, pts[j+1:]...)
			two = append(two, pts[:i+1]...)

			return one, two, true
		}
	}
	return nil, nil, false
}
