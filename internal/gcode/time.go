package gcode

import (
	"math"

	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/domain"
)

// Kinematics holds the machine parameters for move-time estimation.
type Kinematics struct {
	AccelMMPerSec2 float64
	RapidFeed      float64 // mm/min
	DefaultFeed    float64 // mm/min, used when a move has no override
}

// moveTime estimates one move's duration with a trapezoidal velocity
// profile: accelerate, cruise, decelerate. Segments too short to reach the
// commanded feed degrade to a triangular profile.
func moveTime(distance, feedMMPerMin, accel float64) float64 {
	if distance <= 0 {
		return 0
	}
	if feedMMPerMin <= 0 || accel <= 0 {
		return 0
	}
	v := feedMMPerMin / 60 // mm/s
	accelDist := v * v / (2 * accel)

	if 2*accelDist <= distance {
		accelTime := v / accel
		cruiseTime := (distance - 2*accelDist) / v
		return 2*accelTime + cruiseTime
	}
	return 2 * math.Sqrt(distance/accel)
}

// moveGeometry returns the path length of a move from the given start
// position. Arc lengths come from the signed sweep, never the chord.
func moveGeometry(fromX, fromY, fromZ float64, m domain.ToolpathMove) float64 {
	start := domain.Point{X: fromX, Y: fromY}
	dz := m.Z - fromZ

	switch m.Kind {
	case domain.MoveArcCW, domain.MoveArcCCW:
		var center domain.Point
		if m.HasOffset {
			center = arcCenterFromOffset(start, m.CenterOffset)
		} else if m.HasRadius {
			c, err := arcCenterFromRadius(start, m.To, m.Radius, m.Kind == domain.MoveArcCW)
			if err != nil {
				return start.Distance(m.To)
			}
			center = c
		} else {
			return start.Distance(m.To)
		}
		planar := arcLength(start, m.To, center, m.Kind == domain.MoveArcCW)
		return math.Hypot(planar, dz)
	default:
		return math.Hypot(start.Distance(m.To), dz)
	}
}

// MeasurePath walks a move list from the first move's start position and
// returns its total length in millimeters and estimated duration in
// seconds. Rapids travel at the rapid feed; cutting moves at their override
// or the default feed.
func MeasurePath(moves []domain.ToolpathMove, kin Kinematics) (lengthMM, seconds float64) {
	if len(moves) == 0 {
		return 0, 0
	}

	x, y := moves[0].To.X, moves[0].To.Y
	z := 0.0
	if moves[0].Kind == domain.MoveRapid {
		// Initial positioning carries no cutting length.
		z = moves[0].Z
	}

	for i, m := range moves {
		if i == 0 && m.Kind == domain.MoveRapid {
			continue
		}
		d := moveGeometry(x, y, z, m)

		feed := m.Feed
		if m.Kind == domain.MoveRapid {
			feed = kin.RapidFeed
		} else if feed <= 0 {
			feed = kin.DefaultFeed
		}

		lengthMM += d
		seconds += moveTime(d, feed, kin.AccelMMPerSec2)

		x, y, z = m.To.X, m.To.Y, m.Z
	}
	return lengthMM, seconds
}
