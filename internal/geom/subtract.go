package geom

import "sort"

// crossNode is one proper crossing between a ring edge and an island edge,
// tracked in both augmented traversal lists.
type crossNode struct {
	pt      ipoint
	ringPos float64 // edge index + parameter along the ring
	islPos  float64 // edge index + parameter along the island
	entry   bool    // ring passes from outside the island to inside here
	used    bool
	ringIdx int // index in the augmented ring list
	islIdx  int // index in the augmented island list
}

type augNode struct {
	pt    ipoint
	cross *crossNode // nil for plain vertices
}

// subtractIsland removes the island's interior from the ring, splicing the
// ring around the island along the crossing points (Weiler-Atherton style
// difference, restricted to one subject and one clip loop).
//
// ring and island must both wind counter-clockwise. The result may be empty
// (ring fully consumed), the unchanged ring (no interaction), or several
// loops (the island pinched the ring apart).
func subtractIsland(ring, island []ipoint) [][]ipoint {
	crossings := findCrossings(ring, island)

	if len(crossings) < 2 {
		if loopInsideLoop(ring, island) {
			return nil
		}
		return [][]ipoint{ring}
	}

	ringAug := augment(ring, crossings, true)
	islAug := augment(island, crossings, false)
	classifyCrossings(ringAug, island)

	var out [][]ipoint
	for _, start := range crossings {
		if start.used || start.entry {
			continue
		}
		loop := traceDifference(start, ringAug, islAug)
		if len(loop) >= 3 {
			out = append(out, dedupScaled(loop))
		}
	}
	return out
}

// findCrossings collects all proper ring/island edge crossings.
func findCrossings(ring, island []ipoint) []*crossNode {
	var crossings []*crossNode
	rn, in := len(ring), len(island)
	for i := 0; i < rn; i++ {
		a0, a1 := ring[i], ring[(i+1)%rn]
		for j := 0; j < in; j++ {
			b0, b1 := island[j], island[(j+1)%in]
			x, t, ok := segIntersect(a0, a1, b0, b1)
			if !ok {
				continue
			}
			// Recover the island-side parameter from the crossing point.
			u := paramOnSegment(x, b0, b1)
			crossings = append(crossings, &crossNode{
				pt:      x,
				ringPos: float64(i) + t,
				islPos:  float64(j) + u,
			})
		}
	}
	return crossings
}

func paramOnSegment(p, a, b ipoint) float64 {
	dx := float64(b.X - a.X)
	dy := float64(b.Y - a.Y)
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return 0
	}
	return (float64(p.X-a.X)*dx + float64(p.Y-a.Y)*dy) / l2
}

// augment interleaves crossings into a loop's vertex sequence in traversal
// order and records each crossing's index in the produced list.
func augment(pts []ipoint, crossings []*crossNode, isRing bool) []augNode {
	type slot struct {
		pos  float64
		node augNode
	}
	slots := make([]slot, 0, len(pts)+len(crossings))
	for i, p := range pts {
		slots = append(slots, slot{pos: float64(i), node: augNode{pt: p}})
	}
	for _, c := range crossings {
		pos := c.islPos
		if isRing {
			pos = c.ringPos
		}
		slots = append(slots, slot{pos: pos, node: augNode{pt: c.pt, cross: c}})
	}
	sort.SliceStable(slots, func(a, b int) bool { return slots[a].pos < slots[b].pos })

	out := make([]augNode, len(slots))
	for i, s := range slots {
		out[i] = s.node
		if s.node.cross != nil {
			if isRing {
				s.node.cross.ringIdx = i
			} else {
				s.node.cross.islIdx = i
			}
		}
	}
	return out
}

// classifyCrossings marks each crossing as entry or exit by testing whether
// the ring midpoint immediately after the crossing lies inside the island.
func classifyCrossings(ringAug []augNode, island []ipoint) {
	n := len(ringAug)
	for i, node := range ringAug {
		if node.cross == nil {
			continue
		}
		next := ringAug[(i+1)%n]
		mid := ipoint{
			X: (node.pt.X + next.pt.X) / 2,
			Y: (node.pt.Y + next.pt.Y) / 2,
		}
		node.cross.entry = pointInPolygon(mid, island)
	}
}

// traceDifference walks one output loop of the difference, starting at an
// exit crossing: forward along the ring while outside the island, and
// backward along the island (clockwise) while skirting it.
func traceDifference(start *crossNode, ringAug, islAug []augNode) []ipoint {
	var loop []ipoint
	rn, in := len(ringAug), len(islAug)

	cur := start
	// Iteration cap guards against inconsistent classification on nearly
	// tangent geometry.
	maxSteps := rn + in + 16
	for steps := 0; steps < maxSteps; steps++ {
		cur.used = true
		loop = append(loop, cur.pt)

		// Forward along the ring until the next crossing.
		i := cur.ringIdx
		var next *crossNode
		for k := 1; k <= rn; k++ {
			node := ringAug[(i+k)%rn]
			if node.cross != nil {
				next = node.cross
				break
			}
			loop = append(loop, node.pt)
		}
		if next == nil || next == start {
			return loop
		}
		next.used = true
		loop = append(loop, next.pt)

		// Backward along the island until the next crossing.
		j := next.islIdx
		cur = nil
		for k := 1; k <= in; k++ {
			node := islAug[(j-k+in)%in]
			if node.cross != nil {
				cur = node.cross
				break
			}
			loop = append(loop, node.pt)
		}
		if cur == nil || cur == start {
			return loop
		}
	}
	return loop
}
