package plan

import (
	"math"

	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/domain"
)

// SmoothingParams configures fillet smoothing, trochoidal relief, and feed
// tapering. All values come from configuration, never hard-coded.
type SmoothingParams struct {
	// EngagementThresholdDeg: interior corner angles at or below this
	// trigger a trochoidal relief circle. Degrees; smaller angle means a
	// sharper corner and higher tool engagement.
	EngagementThresholdDeg float64
	// TrochoidRadius is the relief circle radius in mm.
	TrochoidRadius float64
	// MinFilletAngleDeg: corners sharper than this get a fillet arc.
	MinFilletAngleDeg float64
	// MinFilletRadius is the smallest permissible fillet radius in mm.
	MinFilletRadius float64
	// FeedXY is the nominal cutting feed in mm/min.
	FeedXY float64
	// FeedFloorFraction bounds tapering: overrides never drop below
	// FeedFloorFraction x FeedXY.
	FeedFloorFraction float64
	// ToolRadius is the reference radius for feed tapering.
	ToolRadius float64
	// Climb mirrors arc directions for climb milling.
	Climb bool
}

// pathMove is an XY-plane motion primitive before Z assembly.
type pathMove struct {
	kind   domain.MoveKind
	to     domain.Point
	center domain.Point // offset from start, arcs only
	feed   float64      // 0 = inherit
	tag    int
}

// smoothPath converts a tagged polyline into XY moves, inserting fillet
// arcs at sharp corners, trochoidal relief circles at high-engagement
// corners, and feed overrides tapered by local radius.
func smoothPath(path []domain.Point, tags []int, p SmoothingParams) []pathMove {
	var moves []pathMove
	if len(path) == 0 {
		return moves
	}

	tagAt := func(i int) int {
		if i < len(tags) {
			return tags[i]
		}
		return -1
	}

	for i := 1; i < len(path); i++ {
		cur := path[i]
		prev := path[i-1]
		if prev.Distance(cur) < 1e-9 {
			continue
		}

		// Corner handling needs the next segment.
		if i+1 < len(path) {
			next := path[i+1]
			angle := cornerAngleDeg(prev, cur, next)

			if angle > 0 && angle <= p.MinFilletAngleDeg {
				fm := filletCorner(prev, cur, next, p, tagAt(i))
				moves = append(moves, fm...)
				if angle <= p.EngagementThresholdDeg {
					// The relief circle must start where the fillet left
					// the tool, not at the trimmed-away corner: a circle
					// anchored elsewhere has unequal start and end radii.
					at := fm[len(fm)-1].to
					moves = append(moves, trochoid(at, prev, p, tagAt(i)))
				}
				continue
			}
			if angle > 0 && angle <= p.EngagementThresholdDeg {
				moves = append(moves,
					pathMove{kind: domain.MoveLinear, to: cur, tag: tagAt(i)},
					trochoid(cur, prev, p, tagAt(i)),
				)
				continue
			}
		}

		moves = append(moves, pathMove{kind: domain.MoveLinear, to: cur, tag: tagAt(i)})
	}
	return moves
}

// cornerAngleDeg returns the interior angle at b in degrees, or -1 when a
// segment is degenerate. 180 means straight through; smaller is sharper.
func cornerAngleDeg(a, b, c domain.Point) float64 {
	v1x, v1y := a.X-b.X, a.Y-b.Y
	v2x, v2y := c.X-b.X, c.Y-b.Y
	l1 := math.Hypot(v1x, v1y)
	l2 := math.Hypot(v2x, v2y)
	if l1 < 1e-9 || l2 < 1e-9 {
		return -1
	}
	cos := (v1x*v2x + v1y*v2y) / (l1 * l2)
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Acos(cos) * 180 / math.Pi
}

// filletCorner replaces the sharp corner at b with a tangent arc of the
// minimum permissible radius: a linear move to the arc start, then the arc
// to the exit point. The trim distance is clamped to half of each adjacent
// segment so fillets never consume a whole segment.
func filletCorner(a, b, c domain.Point, p SmoothingParams, tag int) []pathMove {
	r := p.MinFilletRadius
	angle := cornerAngleDeg(a, b, c) * math.Pi / 180
	if angle <= 0 || angle >= math.Pi {
		return []pathMove{{kind: domain.MoveLinear, to: b, tag: tag}}
	}

	// Distance from the corner to each tangent point.
	trim := r / math.Tan(angle/2)
	maxTrim := math.Min(a.Distance(b), b.Distance(c)) / 2
	if trim > maxTrim {
		trim = maxTrim
		r = trim * math.Tan(angle/2)
	}
	if trim < 1e-6 || r < 1e-6 {
		return []pathMove{{kind: domain.MoveLinear, to: b, tag: tag}}
	}

	entry := pointToward(b, a, trim)
	exit := pointToward(b, c, trim)

	// Arc center sits on the corner bisector at distance r / sin(angle/2).
	bis := bisector(a, b, c)
	centerDist := r / math.Sin(angle/2)
	center := domain.Point{X: b.X + bis.X*centerDist, Y: b.Y + bis.Y*centerDist}

	// Turn direction decides CW vs CCW.
	turn := (b.X-a.X)*(c.Y-b.Y) - (b.Y-a.Y)*(c.X-b.X)
	kind := domain.MoveArcCW
	if turn > 0 {
		kind = domain.MoveArcCCW
	}

	feed := taperedFeed(r, p)
	return []pathMove{
		{kind: domain.MoveLinear, to: entry, tag: tag},
		{
			kind:   kind,
			to:     exit,
			center: domain.Point{X: center.X - entry.X, Y: center.Y - entry.Y},
			feed:   feed,
			tag:    tag,
		},
	}
}

// trochoid is one full relief circle entered and left at the tool's
// current position, with its center pushed back toward the incoming side
// so the nibble relieves the engaged material.
func trochoid(at, from domain.Point, p SmoothingParams, tag int) pathMove {
	r := p.TrochoidRadius
	d := at.Distance(from)
	var ux, uy float64
	if d > 1e-9 {
		ux = (from.X - at.X) / d
		uy = (from.Y - at.Y) / d
	} else {
		ux, uy = -1, 0
	}

	kind := domain.MoveArcCCW
	if p.Climb {
		kind = domain.MoveArcCW
	}

	return pathMove{
		kind:   kind,
		to:     at, // full circle: start == end
		center: domain.Point{X: ux * r, Y: uy * r},
		feed:   taperedFeed(r, p),
		tag:    tag,
	}
}

// taperedFeed reduces the feed proportionally to the local radius, down to
// the configured floor.
func taperedFeed(radius float64, p SmoothingParams) float64 {
	if p.FeedXY <= 0 || p.ToolRadius <= 0 {
		return 0
	}
	frac := radius / p.ToolRadius
	if frac > 1 {
		frac = 1
	}
	floor := p.FeedFloorFraction
	if floor <= 0 || floor > 1 {
		floor = 0.25
	}
	if frac < floor {
		frac = floor
	}
	return p.FeedXY * frac
}

func pointToward(from, to domain.Point, dist float64) domain.Point {
	d := from.Distance(to)
	if d < 1e-9 {
		return from
	}
	return domain.Point{
		X: from.X + (to.X-from.X)/d*dist,
		Y: from.Y + (to.Y-from.Y)/d*dist,
	}
}

// bisector returns the unit interior bisector direction at corner b.
func bisector(a, b, c domain.Point) domain.Point {
	d1 := b.Distance(a)
	d2 := b.Distance(c)
	if d1 < 1e-9 || d2 < 1e-9 {
		return domain.Point{X: 0, Y: 0}
	}
	bx := (a.X-b.X)/d1 + (c.X-b.X)/d2
	by := (a.Y-b.Y)/d1 + (c.Y-b.Y)/d2
	l := math.Hypot(bx, by)
	if l < 1e-9 {
		return domain.Point{X: 0, Y: 0}
	}
	return domain.Point{X: bx / l, Y: by / l}
}
