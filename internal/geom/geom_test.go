package geom

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/domain"
)

func rect(w, h float64) domain.Loop {
	return domain.Loop{
		Role: domain.RoleBoundary,
		Points: []domain.Point{
			{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h},
		},
	}
}

func square(cx, cy, half float64, role domain.LoopRole) domain.Loop {
	return domain.Loop{
		Role: role,
		Points: []domain.Point{
			{X: cx - half, Y: cy - half}, {X: cx + half, Y: cy - half},
			{X: cx + half, Y: cy + half}, {X: cx - half, Y: cy + half},
		},
	}
}

func TestCleanLoop_TwoPoints(t *testing.T) {
	_, err := CleanLoop(domain.Loop{
		Role:   domain.RoleBoundary,
		Points: []domain.Point{{X: 0, Y: 0}, {X: 10, Y: 0}},
	}, 0.001)
	if !errors.Is(err, domain.ErrDegenerateLoop) {
		t.Fatalf("err = %v, want ErrDegenerateLoop", err)
	}
}

func TestCleanLoop_CollapsedThirdPoint(t *testing.T) {
	// Three points, two coincident: degenerate after dedup.
	_, err := CleanLoop(domain.Loop{
		Role:   domain.RoleBoundary,
		Points: []domain.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10.0001, Y: 0.0001}},
	}, 0.001)
	if err == nil {
		t.Fatal("expected error for collapsed loop, got nil")
	}
}

func TestCleanLoop_ZeroArea(t *testing.T) {
	_, err := CleanLoop(domain.Loop{
		Role:   domain.RoleBoundary,
		Points: []domain.Point{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 10, Y: 0}},
	}, 0.001)
	if !errors.Is(err, domain.ErrZeroAreaLoop) && !errors.Is(err, domain.ErrDegenerateLoop) {
		t.Fatalf("err = %v, want zero-area or degenerate", err)
	}
}

func TestCleanLoop_DropsDuplicateClosingPoint(t *testing.T) {
	l, err := CleanLoop(domain.Loop{
		Role: domain.RoleBoundary,
		Points: []domain.Point{
			{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}, {X: 0, Y: 0},
		},
	}, 0.001)
	if err != nil {
		t.Fatalf("CleanLoop: %v", err)
	}
	if len(l.Points) != 4 {
		t.Errorf("points = %d, want 4", len(l.Points))
	}
}

func TestCleanLoops_NormalizesWinding(t *testing.T) {
	// Boundary given clockwise, island given counter-clockwise.
	boundary := domain.Loop{
		Role:   domain.RoleBoundary,
		Points: []domain.Point{{X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0}},
	}
	island := square(5, 5, 1, domain.RoleIsland)

	out, err := CleanLoops([]domain.Loop{boundary, island}, 0.001)
	if err != nil {
		t.Fatalf("CleanLoops: %v", err)
	}
	if out[0].Area() <= 0 {
		t.Errorf("boundary area = %f, want positive (CCW)", out[0].Area())
	}
	if out[1].Area() >= 0 {
		t.Errorf("island area = %f, want negative (CW)", out[1].Area())
	}
}

func TestNormalizeUnits_Inch(t *testing.T) {
	loops, err := NormalizeUnits([]domain.Loop{rect(1, 2)}, domain.UnitsInch)
	if err != nil {
		t.Fatalf("NormalizeUnits: %v", err)
	}
	got := loops[0].Points[2]
	if got.X != 25.4 || got.Y != 50.8 {
		t.Errorf("corner = %+v, want (25.4, 50.8)", got)
	}
}

func TestNormalizeUnits_Unknown(t *testing.T) {
	_, err := NormalizeUnits([]domain.Loop{rect(1, 1)}, "furlongs")
	if !errors.Is(err, domain.ErrUnknownUnits) {
		t.Fatalf("err = %v, want ErrUnknownUnits", err)
	}
}

func TestOffset_ZeroDistanceIsIdentity(t *testing.T) {
	in := []domain.Loop{rect(100, 60)}
	out, err := Offset(in, 0, 0.001)
	if err != nil {
		t.Fatalf("Offset: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("loops = %d, want 1", len(out))
	}
	for i, p := range out[0].Points {
		if p.Distance(in[0].Points[i]) > 1e-9 {
			t.Errorf("point %d moved: %+v -> %+v", i, in[0].Points[i], p)
		}
	}
}

func TestOffset_InsetShrinksRectangle(t *testing.T) {
	out, err := Offset([]domain.Loop{rect(100, 60)}, -5, 0.001)
	if err != nil {
		t.Fatalf("Offset: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("loops = %d, want 1", len(out))
	}

	wantArea := 90.0 * 50.0
	got := math.Abs(out[0].Area())
	if math.Abs(got-wantArea) > 1.0 {
		t.Errorf("area = %f, want ~%f", got, wantArea)
	}
}

func TestOffset_CollapseReturnsEmptyNotError(t *testing.T) {
	// Inset beyond the half-width collapses the loop entirely.
	out, err := Offset([]domain.Loop{rect(100, 60)}, -31, 0.001)
	if err != nil {
		t.Fatalf("Offset: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("loops = %d, want 0 (collapse)", len(out))
	}
}

func TestOffset_OutsetGrowsRectangle(t *testing.T) {
	out, err := Offset([]domain.Loop{rect(10, 10)}, 2, 0.001)
	if err != nil {
		t.Fatalf("Offset: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("loops = %d, want 1", len(out))
	}
	got := math.Abs(out[0].Area())
	if got <= 100 {
		t.Errorf("area = %f, want > 100", got)
	}
}

func TestOffset_PreservesWinding(t *testing.T) {
	in := rect(20, 20) // CCW
	out, err := Offset([]domain.Loop{in}, -2, 0.001)
	if err != nil {
		t.Fatalf("Offset: %v", err)
	}
	if out[0].Area() <= 0 {
		t.Errorf("offset flipped winding: area = %f", out[0].Area())
	}
}

func TestBuildRingStack_RectangleScenario(t *testing.T) {
	// 100x60 rectangle, 6mm tool, 40% stepover, no margin, no islands.
	// First inset 3mm, step 2.4mm; insets 3, 5.4, ..., 29.4 all survive
	// (half the short side is 30), the next collapses: 12 rings.
	stack, err := BuildRingStack(context.Background(), rect(100, 60), nil, RingParams{
		ToolDiameter:     6,
		StepoverFraction: 0.4,
		Tolerance:        0.001,
		MaxPasses:        500,
	})
	if err != nil {
		t.Fatalf("BuildRingStack: %v", err)
	}
	if len(stack.Rings) != 12 {
		t.Errorf("rings = %d, want 12", len(stack.Rings))
	}
	if len(stack.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", stack.Warnings)
	}
}

func TestBuildRingStack_AreasStrictlyDecrease(t *testing.T) {
	stack, err := BuildRingStack(context.Background(), rect(100, 60), nil, RingParams{
		ToolDiameter:     6,
		StepoverFraction: 0.4,
		Tolerance:        0.001,
	})
	if err != nil {
		t.Fatalf("BuildRingStack: %v", err)
	}
	for i := 1; i < len(stack.Rings); i++ {
		prev := math.Abs(stack.Rings[i-1].Loop.Area())
		cur := math.Abs(stack.Rings[i].Loop.Area())
		if cur >= prev {
			t.Errorf("ring %d area %f >= ring %d area %f", i, cur, i-1, prev)
		}
	}
}

func TestBuildRingStack_MaxPassesWarning(t *testing.T) {
	stack, err := BuildRingStack(context.Background(), rect(100, 60), nil, RingParams{
		ToolDiameter:     6,
		StepoverFraction: 0.4,
		MaxPasses:        3,
	})
	if err != nil {
		t.Fatalf("BuildRingStack: %v", err)
	}
	if len(stack.Rings) != 3 {
		t.Errorf("rings = %d, want 3", len(stack.Rings))
	}
	if len(stack.Warnings) == 0 {
		t.Error("expected a max-passes warning, got none")
	}
}

func TestBuildRingStack_IslandOutsideBoundary(t *testing.T) {
	island := square(200, 200, 5, domain.RoleIsland)
	_, err := BuildRingStack(context.Background(), rect(100, 60), []domain.Loop{island}, RingParams{
		ToolDiameter:     6,
		StepoverFraction: 0.4,
	})
	if !errors.Is(err, domain.ErrIslandOutside) {
		t.Fatalf("err = %v, want ErrIslandOutside", err)
	}
}

func TestBuildRingStack_IslandEmitsInnerContours(t *testing.T) {
	island := square(50, 30, 5, domain.RoleIsland)
	islands, err := CleanLoops([]domain.Loop{island}, 0.001)
	if err != nil {
		t.Fatalf("CleanLoops: %v", err)
	}

	stack, err := BuildRingStack(context.Background(), rect(100, 60), islands, RingParams{
		ToolDiameter:     6,
		StepoverFraction: 0.4,
	})
	if err != nil {
		t.Fatalf("BuildRingStack: %v", err)
	}

	sawIsland := false
	for _, r := range stack.Rings {
		if r.Loop.Role == domain.RoleIsland {
			sawIsland = true
		}
	}
	if !sawIsland {
		t.Error("expected at least one island clearance contour in the stack")
	}
}

func TestBuildRingStack_BadParams(t *testing.T) {
	_, err := BuildRingStack(context.Background(), rect(10, 10), nil, RingParams{
		ToolDiameter:     0,
		StepoverFraction: 0.4,
	})
	if !errors.Is(err, domain.ErrBadRequestParams) {
		t.Fatalf("zero tool diameter: err = %v, want ErrBadRequestParams", err)
	}

	_, err = BuildRingStack(context.Background(), rect(10, 10), nil, RingParams{
		ToolDiameter:     6,
		StepoverFraction: 1.5,
	})
	if !errors.Is(err, domain.ErrBadRequestParams) {
		t.Fatalf("bad stepover: err = %v, want ErrBadRequestParams", err)
	}
}

func TestBuildRingStack_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := BuildRingStack(ctx, rect(100, 60), nil, RingParams{
		ToolDiameter:     6,
		StepoverFraction: 0.4,
	})
	if !errors.Is(err, domain.ErrOperationTimeout) {
		t.Fatalf("err = %v, want ErrOperationTimeout", err)
	}
}

// bowtie has one proper self-crossing at (1, 1).
func bowtie() []ipoint {
	return scaleLoop([]domain.Point{{X: 0, Y: 0}, {X: 2, Y: 2}, {X: 2, Y: 0}, {X: 0, Y: 2}})
}

// comb has two chained self-crossings, so fully splitting it needs two
// rounds of splicing.
func comb() []ipoint {
	return scaleLoop([]domain.Point{
		{X: 0, Y: 0}, {X: 6, Y: 0}, {X: 6, Y: 1}, {X: 3, Y: 1},
		{X: 3, Y: -1}, {X: 2, Y: -1}, {X: 2, Y: 1}, {X: 0, Y: 1},
	})
}

func TestSplitSelfIntersections_Bowtie(t *testing.T) {
	pieces, err := splitSelfIntersections(bowtie(), domain.SafetyLimits{})
	if err != nil {
		t.Fatalf("splitSelfIntersections: %v", err)
	}
	if len(pieces) != 2 {
		t.Fatalf("pieces = %d, want 2", len(pieces))
	}
	for i, p := range pieces {
		if len(p) != 3 {
			t.Errorf("piece %d has %d points, want 3", i, len(p))
		}
	}
}

func TestSplitSelfIntersections_ChainedCrossings(t *testing.T) {
	pieces, err := splitSelfIntersections(comb(), domain.SafetyLimits{})
	if err != nil {
		t.Fatalf("splitSelfIntersections: %v", err)
	}
	if len(pieces) != 3 {
		t.Fatalf("pieces = %d, want 3", len(pieces))
	}
}

func TestSplitSelfIntersections_IterationBudget(t *testing.T) {
	_, err := splitSelfIntersections(bowtie(), domain.SafetyLimits{
		MaxDepth:      64,
		MaxIterations: 1,
	})
	if !errors.Is(err, domain.ErrTraversalBudget) {
		t.Fatalf("err = %v, want ErrTraversalBudget", err)
	}
}

func TestSplitSelfIntersections_DepthBound(t *testing.T) {
	// The comb needs a second splicing round; a depth cap of one must
	// surface a typed overflow, never unbounded work.
	_, err := splitSelfIntersections(comb(), domain.SafetyLimits{
		MaxDepth:      1,
		MaxIterations: 10_000,
	})
	if !errors.Is(err, domain.ErrTraversalDepth) {
		t.Fatalf("err = %v, want ErrTraversalDepth", err)
	}
}

func TestRingIsClosed(t *testing.T) {
	limits := domain.SafetyLimits{MaxDepth: 1000, MaxIterations: 100_000}

	if err := ringIsClosed(rect(10, 10), 0.001, limits); err != nil {
		t.Errorf("simple rectangle: %v", err)
	}

	// A contour that revisits a vertex is two lobes sharing a pinch
	// point, not a single closed ring.
	pinched := domain.Loop{
		Role: domain.RoleBoundary,
		Points: []domain.Point{
			{X: 0, Y: 0}, {X: 2, Y: 2}, {X: 4, Y: 0},
			{X: 0, Y: 0}, {X: -4, Y: 0}, {X: -2, Y: 2},
		},
	}
	if err := ringIsClosed(pinched, 0.001, limits); !errors.Is(err, domain.ErrRingIntegrity) {
		t.Errorf("pinched contour: err = %v, want ErrRingIntegrity", err)
	}
}

func TestSubtractIsland_NoInteraction(t *testing.T) {
	ring := scaleLoop(rect(100, 60).Points)
	island := scaleLoop(square(200, 200, 5, domain.RoleIsland).Points)

	out := subtractIsland(ring, island)
	if len(out) != 1 {
		t.Fatalf("pieces = %d, want 1", len(out))
	}
	if len(out[0]) != len(ring) {
		t.Errorf("piece has %d points, want %d", len(out[0]), len(ring))
	}
}

func TestSubtractIsland_RingInsideIslandVanishes(t *testing.T) {
	ring := scaleLoop(square(50, 50, 2, domain.RoleBoundary).Points)
	island := scaleLoop(square(50, 50, 20, domain.RoleBoundary).Points)

	out := subtractIsland(ring, island)
	if len(out) != 0 {
		t.Errorf("pieces = %d, want 0", len(out))
	}
}

func TestSubtractIsland_EdgeCrossing(t *testing.T) {
	// Island overlapping the right edge of the ring: the result must be a
	// single loop whose area is the ring minus the overlap.
	ring := scaleLoop(rect(100, 60).Points)
	island := scaleLoop(square(100, 30, 10, domain.RoleBoundary).Points)

	out := subtractIsland(ring, island)
	if len(out) != 1 {
		t.Fatalf("pieces = %d, want 1", len(out))
	}

	area := math.Abs(float64(signedArea2(out[0]))) / 2 / (Scale * Scale)
	want := 100.0*60.0 - 10.0*20.0
	if math.Abs(area-want) > 5 {
		t.Errorf("area = %f, want ~%f", area, want)
	}
}
