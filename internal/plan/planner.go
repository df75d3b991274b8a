package plan

import (
	"context"
	"fmt"

	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/config"
	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/domain"
	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/gcode"
	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/geom"
	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/safety"
)

// Planner generates verified toolpath programs from cleaned boundary loops.
// One Planner is safe for concurrent use: every Plan call owns its own
// working state.
type Planner struct {
	Cfg     config.PlannerConfig
	Machine config.MachineConfig
	Limits  domain.SafetyLimits
}

// New creates a Planner.
func New(cfg config.PlannerConfig, machine config.MachineConfig, limits domain.SafetyLimits) *Planner {
	return &Planner{Cfg: cfg, Machine: machine, Limits: limits}
}

// Plan runs the full pipeline: normalize, clean, offset into rings, apply
// the selected strategy, smooth, assemble Z motion, emit, and measure.
func (p *Planner) Plan(ctx context.Context, req domain.PlanRequest) (*domain.PlanResult, error) {
	if err := p.validate(&req); err != nil {
		return nil, err
	}

	loops, err := geom.NormalizeUnits(req.Loops, req.Units)
	if err != nil {
		return nil, err
	}
	loops, err = geom.CleanLoops(loops, req.SmoothingTol)
	if err != nil {
		return nil, err
	}

	var boundaries, islands []domain.Loop
	for _, l := range loops {
		if l.Role == domain.RoleIsland {
			islands = append(islands, l)
		} else {
			boundaries = append(boundaries, l)
		}
	}
	if len(boundaries) == 0 {
		return nil, domain.ErrNoBoundary
	}

	result := &domain.PlanResult{}
	var moves []domain.ToolpathMove
	ringCount := 0

	for _, boundary := range boundaries {
		if err := safety.Checkpoint(ctx); err != nil {
			return nil, err
		}

		stack, err := geom.BuildRingStack(ctx, boundary, islandsWithin(islands, boundary), geom.RingParams{
			ToolDiameter:     req.ToolDiameter,
			StepoverFraction: req.StepoverFraction,
			Margin:           req.Margin,
			Tolerance:        req.SmoothingTol,
			MaxPasses:        p.Cfg.MaxPasses,
			Limits:           p.Limits,
		})
		if err != nil {
			return nil, err
		}
		result.Warnings = append(result.Warnings, stack.Warnings...)
		ringCount += len(stack.Rings)

		var pocketMoves []domain.ToolpathMove
		switch req.Strategy {
		case domain.StrategySpiral:
			pocketMoves = p.spiralMoves(stack, req)
		case domain.StrategyLanes:
			pocketMoves = p.laneMoves(stack, req)
		default:
			return nil, &domain.CoreError{
				Code:    domain.ErrUnknownStrategy.Code,
				Message: fmt.Sprintf("%s: %q", domain.ErrUnknownStrategy.Message, req.Strategy),
			}
		}
		moves = append(moves, pocketMoves...)
	}

	length, seconds := gcode.MeasurePath(moves, gcode.Kinematics{
		AccelMMPerSec2: p.Machine.AccelMMPerSec2,
		RapidFeed:      p.Machine.RapidFeed,
		DefaultFeed:    req.FeedXY,
	})

	result.Moves = moves
	result.Program = gcode.Emit(moves, gcode.EmitConfig{DefaultFeed: req.FeedXY})
	result.Stats = domain.PlanStats{
		EstimatedTimeSec: seconds,
		MoveCount:        len(moves),
		PathLengthMM:     length,
		RingCount:        ringCount,
	}
	return result, nil
}

func (p *Planner) validate(req *domain.PlanRequest) error {
	var problems []string

	if req.ToolDiameter <= 0 {
		problems = append(problems, "tool_diameter must be positive")
	}
	if req.StepoverFraction <= 0 || req.StepoverFraction > 1 {
		problems = append(problems, "stepover_fraction must be in (0, 1]")
	}
	if req.FeedXY <= 0 {
		problems = append(problems, "feed_xy must be positive")
	}
	if req.CutDepth >= 0 {
		problems = append(problems, "cut_depth must be negative")
	}

	if req.Strategy == "" {
		req.Strategy = domain.StrategySpiral
	}
	if req.PlungeFeed <= 0 {
		req.PlungeFeed = req.FeedXY / 2
	}
	if req.SafeHeight <= 0 {
		req.SafeHeight = p.Machine.SafeHeightMM
	}
	if req.SmoothingTol <= 0 {
		req.SmoothingTol = p.Cfg.MergeToleranceMM
	}

	if len(problems) > 0 {
		return &domain.CoreError{
			Code:    domain.ErrBadRequestParams.Code,
			Message: fmt.Sprintf("%s: %v", domain.ErrBadRequestParams.Message, problems),
		}
	}
	return nil
}

// spiralMoves links the ring stack into one continuous smoothed path and
// wraps it in safe-height approach and retract motion.
func (p *Planner) spiralMoves(stack *geom.RingStack, req domain.PlanRequest) []domain.ToolpathMove {
	rings := make([]domain.Loop, len(stack.Rings))
	for i, r := range stack.Rings {
		rings[i] = r.Loop
		if req.Climb {
			pts := make([]domain.Point, len(r.Loop.Points))
			copy(pts, r.Loop.Points)
			for a, b := 0, len(pts)-1; a < b; a, b = a+1, b-1 {
				pts[a], pts[b] = pts[b], pts[a]
			}
			rings[i] = domain.Loop{Points: pts, Role: r.Loop.Role}
		}
	}

	path := LinkRings(rings)
	if len(path) == 0 {
		return nil
	}
	tags := RingTags(rings)

	xy := smoothPath(path, tags, p.smoothing(req))
	return assemble(path[0], xy, req)
}

// laneMoves cuts the pass-0 clearance contours as serpentine lanes. Each
// disjoint span gets its own approach, plunge, cut, and retract.
func (p *Planner) laneMoves(stack *geom.RingStack, req domain.PlanRequest) []domain.ToolpathMove {
	var contours []domain.Loop
	for _, r := range stack.Rings {
		if r.Pass == 0 {
			contours = append(contours, r.Loop)
		}
	}
	segs := buildLanes(contours, req.StepoverFraction*req.ToolDiameter)

	var moves []domain.ToolpathMove
	for _, seg := range segs {
		moves = append(moves,
			domain.ToolpathMove{Kind: domain.MoveRapid, To: seg.A, Z: req.SafeHeight, RingTag: seg.Row},
			domain.ToolpathMove{Kind: domain.MoveLinear, To: seg.A, Z: req.CutDepth, Feed: req.PlungeFeed, RingTag: seg.Row},
			domain.ToolpathMove{Kind: domain.MoveLinear, To: seg.B, Z: req.CutDepth, RingTag: seg.Row},
			domain.ToolpathMove{Kind: domain.MoveRapid, To: seg.B, Z: req.SafeHeight, RingTag: seg.Row},
		)
	}
	return moves
}

func (p *Planner) smoothing(req domain.PlanRequest) SmoothingParams {
	return SmoothingParams{
		EngagementThresholdDeg: p.Cfg.EngagementThreshold,
		TrochoidRadius:         p.Cfg.TrochoidRadiusMM,
		MinFilletAngleDeg:      p.Cfg.MinFilletAngleDeg,
		MinFilletRadius:        p.Cfg.MinFilletRadiusMM,
		FeedXY:                 req.FeedXY,
		FeedFloorFraction:      p.Cfg.FeedFloorFraction,
		ToolRadius:             req.ToolDiameter / 2,
		Climb:                  req.Climb,
	}
}

// assemble wraps XY cutting moves with the Z motion protocol: rapid to the
// start at safe height, plunge at plunge feed, cut at depth, retract.
func assemble(start domain.Point, xy []pathMove, req domain.PlanRequest) []domain.ToolpathMove {
	if len(xy) == 0 {
		return nil
	}

	moves := []domain.ToolpathMove{
		{Kind: domain.MoveRapid, To: start, Z: req.SafeHeight, RingTag: -1},
		{Kind: domain.MoveLinear, To: start, Z: req.CutDepth, Feed: req.PlungeFeed, RingTag: -1},
	}
	for _, m := range xy {
		move := domain.ToolpathMove{
			Kind:    m.kind,
			To:      m.to,
			Z:       req.CutDepth,
			Feed:    m.feed,
			RingTag: m.tag,
		}
		if m.kind == domain.MoveArcCW || m.kind == domain.MoveArcCCW {
			move.CenterOffset = m.center
			move.HasOffset = true
		}
		moves = append(moves, move)
	}
	last := moves[len(moves)-1].To
	moves = append(moves, domain.ToolpathMove{Kind: domain.MoveRapid, To: last, Z: req.SafeHeight, RingTag: -1})
	return moves
}

// islandsWithin returns the islands whose first vertex lies inside the
// boundary, so multi-pocket requests assign each island to its pocket.
func islandsWithin(islands []domain.Loop, boundary domain.Loop) []domain.Loop {
	var out []domain.Loop
	for _, isl := range islands {
		if len(isl.Points) > 0 && pointInLoop(isl.Points[0], boundary) {
			out = append(out, isl)
		}
	}
	return out
}

// pointInLoop is an even-odd containment test in float millimeters.
func pointInLoop(p domain.Point, l domain.Loop) bool {
	inside := false
	n := len(l.Points)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := l.Points[i], l.Points[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			xc := a.X + (p.Y-a.Y)/(b.Y-a.Y)*(b.X-a.X)
			if p.X < xc {
				inside = !inside
			}
		}
	}
	return inside
}
