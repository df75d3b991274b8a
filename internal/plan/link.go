// Package plan turns offset ring stacks into continuous toolpaths: spiral
// ring linking or parallel lanes, trochoidal corner relief, minimum-fillet
// smoothing, and curvature-based feed tapering.
package plan

import (
	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/domain"
)

// LinkRings stitches a ring stack into one continuous polyline. For each
// ring after the first, the splice point is the ring vertex nearest to the
// current terminal point; ties go to the first vertex at minimum distance,
// which keeps the output deterministic.
//
// An empty stack yields an empty path: nothing to cut is a valid outcome.
func LinkRings(rings []domain.Loop) []domain.Point {
	var path []domain.Point
	for _, ring := range rings {
		n := len(ring.Points)
		if n == 0 {
			continue
		}
		start := 0
		if len(path) > 0 {
			start = nearestIndex(ring.Points, path[len(path)-1])
		}
		for i := 0; i <= n; i++ {
			path = append(path, ring.Points[(start+i)%n])
		}
	}
	return path
}

// nearestIndex returns the index of the point nearest to target. A linear
// scan is fine here: rings stay small enough that an index would not pay
// for itself.
func nearestIndex(pts []domain.Point, target domain.Point) int {
	best := 0
	bestDist := pts[0].Distance(target)
	for i := 1; i < len(pts); i++ {
		d := pts[i].Distance(target)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// RingTags returns, for each point of the linked path, the index of the
// ring that contributed it. Used to tag moves for downstream overlays.
func RingTags(rings []domain.Loop) []int {
	var tags []int
	for idx, ring := range rings {
		n := len(ring.Points)
		if n == 0 {
			continue
		}
		for i := 0; i <= n; i++ {
			tags = append(tags, idx)
		}
	}
	return tags
}
