// Package domain defines the core types for the CAM planning and simulation core.
package domain

import "math"

// Units tags the measurement system of externally supplied geometry or programs.
type Units string

const (
	UnitsMM   Units = "mm"
	UnitsInch Units = "inch"
)

// MMPerInch converts inch coordinates to the internal millimeter space.
const MMPerInch = 25.4

// Point is a 2D coordinate in millimeters.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// Finite reports whether both coordinates are finite numbers.
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// LoopRole distinguishes outer boundaries from island cutouts.
type LoopRole string

const (
	RoleBoundary LoopRole = "boundary"
	RoleIsland   LoopRole = "island"
)

// Loop is a closed contour of at least 3 points. The first and last points
// are implicitly connected.
type Loop struct {
	Points []Point  `json:"points"`
	Role   LoopRole `json:"role"`
}

// Area returns the signed area of the loop. Positive for counter-clockwise
// winding.
func (l Loop) Area() float64 {
	n := len(l.Points)
	if n < 3 {
		return 0
	}
	area := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += l.Points[i].X*l.Points[j].Y - l.Points[j].X*l.Points[i].Y
	}
	return area * 0.5
}

// MoveKind enumerates motion primitives.
type MoveKind string

const (
	MoveRapid  MoveKind = "rapid"
	MoveLinear MoveKind = "linear"
	MoveArcCW  MoveKind = "arc_cw"
	MoveArcCCW MoveKind = "arc_ccw"
)

// ToolpathMove is a single motion primitive in strict execution order.
// Arc moves carry either a center offset (HasOffset) or a signed radius
// (HasRadius); linear and rapid moves carry neither.
type ToolpathMove struct {
	Kind MoveKind `json:"kind"`
	To   Point    `json:"to"`
	Z    float64  `json:"z"`

	CenterOffset Point   `json:"center_offset,omitempty"`
	HasOffset    bool    `json:"has_offset,omitempty"`
	Radius       float64 `json:"radius,omitempty"`
	HasRadius    bool    `json:"has_radius,omitempty"`

	// Feed is an optional per-move feed override in mm/min. Zero means
	// inherit the modal feed.
	Feed float64 `json:"feed,omitempty"`

	// RingTag links the move back to the offset ring or strategy feature
	// that produced it. -1 when untagged.
	RingTag int `json:"ring_tag"`
}

// Plane is the active arc interpolation plane.
type Plane string

const (
	PlaneXY Plane = "XY"
	PlaneXZ Plane = "XZ"
	PlaneYZ Plane = "YZ"
)

// ModalState is the sticky machine context tracked during one simulation or
// emission run. One instance per run; never shared across runs.
type ModalState struct {
	Units      Units
	Plane      Plane
	Absolute   bool
	Feed       float64
	SpindleOn  bool
	SpindleRPM float64
	X, Y, Z    float64
}

// NewModalState returns the conventional power-on state: millimeters,
// XY plane, absolute coordinates, spindle off, tool at origin.
func NewModalState() *ModalState {
	return &ModalState{
		Units:    UnitsMM,
		Plane:    PlaneXY,
		Absolute: true,
	}
}

// Position returns the current tool tip position in the XY plane.
func (m *ModalState) Position() Point {
	return Point{X: m.X, Y: m.Y}
}

// Severity ranks simulation findings.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Rank returns a sortable weight, highest severity first.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// IssueKind enumerates the simulation validation findings.
type IssueKind string

const (
	IssueBelowSafeHeight IssueKind = "below_safe_height"
	IssueRapidNearStock  IssueKind = "rapid_near_stock"
	IssueExcessiveFeed   IssueKind = "excessive_feed"
	IssueSpindleOffCut   IssueKind = "spindle_off_during_cut"
	IssueMalformedLine   IssueKind = "malformed_line"
	IssueUnknownCommand  IssueKind = "unknown_command"
	IssueArcGeometry     IssueKind = "arc_geometry"
)

// SimulationIssue is one structured finding. Issues are append-only during a
// run and never mutated afterwards.
type SimulationIssue struct {
	Kind      IssueKind `json:"kind"`
	Severity  Severity  `json:"severity"`
	MoveIndex int       `json:"move_index"`
	Line      int       `json:"line"`
	Message   string    `json:"message"`
}

// BoundingBox is an axis-aligned extent in millimeters.
type BoundingBox struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MinZ float64 `json:"min_z"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
	MaxZ float64 `json:"max_z"`
}

// Grow extends the box to include the given coordinate.
func (b *BoundingBox) Grow(x, y, z float64) {
	if x < b.MinX {
		b.MinX = x
	}
	if y < b.MinY {
		b.MinY = y
	}
	if z < b.MinZ {
		b.MinZ = z
	}
	if x > b.MaxX {
		b.MaxX = x
	}
	if y > b.MaxY {
		b.MaxY = y
	}
	if z > b.MaxZ {
		b.MaxZ = z
	}
}

// Empty reports whether the box has never been grown.
func (b BoundingBox) Empty() bool {
	return b.MinX > b.MaxX
}

// EmptyBoundingBox returns a box that the first Grow call snaps to.
func EmptyBoundingBox() BoundingBox {
	inf := math.Inf(1)
	return BoundingBox{MinX: inf, MinY: inf, MinZ: inf, MaxX: -inf, MaxY: -inf, MaxZ: -inf}
}

// Strategy selects the toolpath generation strategy. The set is closed.
type Strategy string

const (
	StrategySpiral Strategy = "spiral"
	StrategyLanes  Strategy = "lanes"
)

// PlanRequest is the external planning interface.
type PlanRequest struct {
	Loops            []Loop   `json:"loops"`
	Units            Units    `json:"units"`
	ToolDiameter     float64  `json:"tool_diameter"`
	StepoverFraction float64  `json:"stepover_fraction"`
	Margin           float64  `json:"margin"`
	Strategy         Strategy `json:"strategy"`
	SmoothingTol     float64  `json:"smoothing_tolerance"`
	Climb            bool     `json:"climb"`
	SafeHeight       float64  `json:"safe_height"`
	CutDepth         float64  `json:"cut_depth"`
	FeedXY           float64  `json:"feed_xy"`
	PlungeFeed       float64  `json:"plunge_feed"`
}

// PlanStats summarizes a planned program.
type PlanStats struct {
	EstimatedTimeSec float64 `json:"estimated_time_sec"`
	MoveCount        int     `json:"move_count"`
	PathLengthMM     float64 `json:"path_length_mm"`
	RingCount        int     `json:"ring_count"`
}

// PlanResult is the planner's output: the move list, the emitted program,
// and summary stats.
type PlanResult struct {
	Moves    []ToolpathMove `json:"moves"`
	Program  string         `json:"program"`
	Stats    PlanStats      `json:"stats"`
	Warnings []string       `json:"warnings,omitempty"`
}

// SimRequest is the external simulation interface.
type SimRequest struct {
	ProgramText   string  `json:"program_text"`
	SafeHeight    float64 `json:"safe_height"`
	NominalFeedXY float64 `json:"nominal_feed_xy"`
	NominalFeedZ  float64 `json:"nominal_feed_z"`
}

// SimSummary aggregates a simulation run.
type SimSummary struct {
	EstimatedTimeSec float64     `json:"estimated_time_sec"`
	MoveCount        int         `json:"move_count"`
	Bounds           BoundingBox `json:"bounding_box"`
	ErrorCount       int         `json:"error_count"`
	WarningCount     int         `json:"warning_count"`
}

// SimResult is the simulator's output. A run always completes: malformed
// content becomes issues, and the full reconstructed move list is returned.
type SimResult struct {
	Moves   []ToolpathMove    `json:"moves"`
	Issues  []SimulationIssue `json:"issues"`
	Summary SimSummary        `json:"summary"`
}

// SafetyLimits is the immutable process-wide resource configuration. It is
// set once at startup and read concurrently without locking.
type SafetyLimits struct {
	MaxBytesStandard int     // payload ceiling for standard requests
	MaxBytesElevated int     // payload ceiling for elevated-tier requests
	MaxEntities      int     // loop/point count ceiling
	MaxDepth         int     // traversal depth cap
	MaxIterations    int     // traversal total iteration budget
	TimeoutSec       float64 // wall-clock budget per CPU-bound stage
}

// RunKind distinguishes the two top-level task kinds in run history.
type RunKind string

const (
	RunPlan     RunKind = "plan"
	RunSimulate RunKind = "simulate"
)

// RunRecord is one completed (or failed) top-level task in run history.
type RunRecord struct {
	RunID        string  `json:"run_id"`
	Kind         RunKind `json:"kind"`
	Status       string  `json:"status"`
	MoveCount    int     `json:"move_count"`
	PathLengthMM float64 `json:"path_length_mm"`
	EstTimeSec   float64 `json:"est_time_sec"`
	ErrorCount   int     `json:"error_count"`
	WarningCount int     `json:"warning_count"`
	DurationMS   int64   `json:"duration_ms"`
	CreatedAt    int64   `json:"created_at"`
}
