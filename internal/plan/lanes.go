package plan

import (
	"math"
	"sort"

	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/domain"
)

// laneSegment is one cuttable span of a horizontal lane.
type laneSegment struct {
	A, B domain.Point
	Row  int
}

// buildLanes slices the clearance contours into horizontal lanes spaced by
// the stepover distance, serpentine-ordered so consecutive lanes cut in
// opposite directions. The contours are the pass-0 clearance loops: the
// boundary already inset by tool radius + margin, islands already grown.
func buildLanes(contours []domain.Loop, stepover float64) []laneSegment {
	if len(contours) == 0 || stepover <= 0 {
		return nil
	}

	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, c := range contours {
		for _, p := range c.Points {
			if p.Y < minY {
				minY = p.Y
			}
			if p.Y > maxY {
				maxY = p.Y
			}
		}
	}
	if minY >= maxY {
		return nil
	}

	var segs []laneSegment
	row := 0
	for y := minY + stepover/2; y < maxY; y += stepover {
		xs := laneCrossings(contours, y)
		sort.Float64s(xs)

		// Even-odd pairing: spans between alternating crossings are inside.
		rowSegs := make([]laneSegment, 0, len(xs)/2)
		for i := 0; i+1 < len(xs); i += 2 {
			if xs[i+1]-xs[i] < 1e-9 {
				continue
			}
			rowSegs = append(rowSegs, laneSegment{
				A:   domain.Point{X: xs[i], Y: y},
				B:   domain.Point{X: xs[i+1], Y: y},
				Row: row,
			})
		}

		// Serpentine: odd rows run right to left.
		if row%2 == 1 {
			for i, j := 0, len(rowSegs)-1; i < j; i, j = i+1, j-1 {
				rowSegs[i], rowSegs[j] = rowSegs[j], rowSegs[i]
			}
			for i := range rowSegs {
				rowSegs[i].A, rowSegs[i].B = rowSegs[i].B, rowSegs[i].A
			}
		}

		segs = append(segs, rowSegs...)
		row++
	}
	return segs
}

// laneCrossings returns the x coordinates where the horizontal line at y
// crosses any contour edge.
func laneCrossings(contours []domain.Loop, y float64) []float64 {
	var xs []float64
	for _, c := range contours {
		n := len(c.Points)
		for i := 0; i < n; i++ {
			a := c.Points[i]
			b := c.Points[(i+1)%n]
			if (a.Y > y) == (b.Y > y) {
				continue
			}
			t := (y - a.Y) / (b.Y - a.Y)
			xs = append(xs, a.X+t*(b.X-a.X))
		}
	}
	return xs
}
