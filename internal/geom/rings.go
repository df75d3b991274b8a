package geom

import (
	"context"
	"fmt"

	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/domain"
	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/safety"
)

// RingParams configures the ring-stack builder. Limits bound the offset
// splitting pass and the ring closure traversal; zero-valued limits fall
// back to defaults matching the configuration layer.
type RingParams struct {
	ToolDiameter     float64
	StepoverFraction float64
	Margin           float64
	Tolerance        float64
	MaxPasses        int
	Limits           domain.SafetyLimits
}

// Ring is one offset contour plus its provenance: which pass produced it
// and at what cumulative inset. Rings are immutable once computed.
type Ring struct {
	Loop  domain.Loop
	Pass  int
	Inset float64
}

// RingStack is the nested set of offset rings for one pocket, outermost
// first. Warnings carry non-fatal conditions such as hitting the pass cap.
type RingStack struct {
	Rings    []Ring
	Passes   int
	Warnings []string
}

// BuildRingStack repeatedly insets the boundary (minus islands) until the
// offset collapses or the pass cap is reached. The first inset is
// tool-radius + margin; each subsequent inset adds stepover x tool-diameter.
//
// Collapse is normal termination. Hitting MaxPasses is reported as a
// warning on the stack, never silently truncated.
func BuildRingStack(ctx context.Context, boundary domain.Loop, islands []domain.Loop, p RingParams) (*RingStack, error) {
	if p.ToolDiameter <= 0 {
		return nil, &domain.CoreError{
			Code:    domain.ErrBadRequestParams.Code,
			Message: fmt.Sprintf("%s: tool_diameter must be positive", domain.ErrBadRequestParams.Message),
		}
	}
	if p.StepoverFraction <= 0 || p.StepoverFraction > 1 {
		return nil, &domain.CoreError{
			Code:    domain.ErrBadRequestParams.Code,
			Message: fmt.Sprintf("%s: stepover_fraction must be in (0, 1]", domain.ErrBadRequestParams.Message),
		}
	}
	if p.MaxPasses <= 0 {
		p.MaxPasses = 500
	}
	if p.Tolerance <= 0 {
		p.Tolerance = 0.001
	}
	if p.Limits.MaxDepth <= 0 {
		p.Limits.MaxDepth = 10_000
	}
	if p.Limits.MaxIterations <= 0 {
		p.Limits.MaxIterations = 2_000_000
	}

	bpts := scaleLoop(boundary.Points)
	for i, isl := range islands {
		if !loopInsideLoop(scaleLoop(isl.Points), bpts) {
			return nil, &domain.CoreError{
				Code:    domain.ErrIslandOutside.Code,
				Message: fmt.Sprintf("%s: island %d", domain.ErrIslandOutside.Message, i),
			}
		}
	}

	stack := &RingStack{}
	inset := p.ToolDiameter/2 + p.Margin
	step := p.StepoverFraction * p.ToolDiameter
	prevArea := absFloat(boundary.Area())

	for pass := 0; pass < p.MaxPasses; pass++ {
		if err := safety.Checkpoint(ctx); err != nil {
			return nil, err
		}

		rings, err := offsetPass(boundary, islands, inset, p.Tolerance, p.Limits)
		if err != nil {
			return nil, err
		}
		if len(rings) == 0 {
			stack.Passes = pass
			return stack, nil
		}

		// Ring areas must shrink strictly pass over pass; a non-shrinking
		// pass means the offset has degenerated on pathological geometry.
		total := 0.0
		for _, r := range rings {
			total += absFloat(r.Area())
		}
		if total >= prevArea {
			stack.Passes = pass
			stack.Warnings = append(stack.Warnings,
				fmt.Sprintf("pass %d did not shrink the remaining area; stopping", pass))
			return stack, nil
		}
		prevArea = total

		for _, r := range rings {
			if len(r.Points) < 3 {
				return nil, domain.ErrRingIntegrity
			}
			if err := ringIsClosed(r, p.Tolerance, p.Limits); err != nil {
				return nil, err
			}
			stack.Rings = append(stack.Rings, Ring{Loop: r, Pass: pass, Inset: inset})
		}

		inset += step
	}

	stack.Passes = p.MaxPasses
	stack.Warnings = append(stack.Warnings,
		fmt.Sprintf("maximum passes (%d) reached before the offset collapsed", p.MaxPasses))
	return stack, nil
}

// ringIsClosed verifies that a reconstructed ring is one simple closed
// cycle: vertices collapse onto spatial identities, consecutive identities
// form edges, and the bounded traversal must find exactly one cycle
// spanning every identity. A pinched or doubled-back contour fails here
// instead of reaching the linker.
func ringIsClosed(l domain.Loop, tolerance float64, limits domain.SafetyLimits) error {
	hash := safety.NewSpatialHash(maxFloat(tolerance, 0.1))
	g := safety.NewAdjacencyGraph()
	ids := make([]int, len(l.Points))
	for i, p := range l.Points {
		ids[i] = hash.GetOrAdd(p, tolerance)
	}
	for i := range ids {
		g.AddEdge(ids[i], ids[(i+1)%len(ids)])
	}

	cycles, err := safety.WalkCycles(g, limits)
	if err != nil {
		return err
	}
	if len(cycles) != 1 || len(cycles[0]) != hash.Len() {
		return domain.ErrRingIntegrity
	}
	return nil
}

// offsetPass computes the contour set for one cumulative inset: the inset
// boundary pieces with the grown islands subtracted, plus any grown island
// contours that sit untouched inside a piece.
func offsetPass(boundary domain.Loop, islands []domain.Loop, inset, tolerance float64, limits domain.SafetyLimits) ([]domain.Loop, error) {
	insets, err := OffsetWithLimits([]domain.Loop{boundary}, -inset, tolerance, limits)
	if err != nil {
		return nil, err
	}
	if len(insets) == 0 {
		return nil, nil
	}

	// Islands grow by the same cumulative inset so the tool keeps its
	// clearance from island material on every pass. A positive distance
	// moves island edges away from the island interior, into the pocket.
	var grown [][]ipoint
	if len(islands) > 0 {
		islandLoops, err := OffsetWithLimits(islands, inset, tolerance, limits)
		if err != nil {
			return nil, err
		}
		for _, g := range islandLoops {
			pts := scaleLoop(g.Points)
			if signedArea2(pts) < 0 {
				reverse(pts)
			}
			grown = append(grown, pts)
		}
	}

	var out []domain.Loop
	for _, piece := range insets {
		pieces := [][]ipoint{scaleLoop(piece.Points)}
		for _, isl := range grown {
			var next [][]ipoint
			for _, pp := range pieces {
				next = append(next, subtractIsland(pp, isl)...)
			}
			pieces = next
		}
		for _, pp := range pieces {
			if len(pp) < 3 {
				continue
			}
			cleaned, err := CleanLoop(domain.Loop{Points: unscaleLoop(pp), Role: domain.RoleBoundary}, tolerance)
			if err != nil {
				continue
			}
			out = append(out, cleaned)
		}
	}

	// Emit untouched island contours nested inside a surviving piece: the
	// pass must also cut around the island at this clearance.
	for _, isl := range grown {
		crossed := false
		insideAny := false
		for _, piece := range out {
			ppts := scaleLoop(piece.Points)
			if len(findCrossings(ppts, isl)) > 0 {
				crossed = true
				break
			}
			if loopInsideLoop(isl, ppts) {
				insideAny = true
			}
		}
		if !crossed && insideAny {
			cleaned, err := CleanLoop(domain.Loop{Points: unscaleLoop(isl), Role: domain.RoleIsland}, tolerance)
			if err == nil {
				out = append(out, cleaned)
			}
		}
	}

	return out, nil
}
