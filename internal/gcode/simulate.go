package gcode

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/config"
	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/domain"
	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/safety"
)

// Simulator re-parses motion programs and validates them against the
// machine envelope. A Simulator is stateless and safe for concurrent use;
// each run owns a fresh ModalState.
//
// Arc geometry is always interpreted in the XY plane. G18 and G19 update
// the modal plane word, and any arc executed under them is flagged with an
// informational issue and still traced in XY.
type Simulator struct {
	Machine config.MachineConfig
}

// NewSimulator creates a Simulator for the given machine envelope.
func NewSimulator(machine config.MachineConfig) *Simulator {
	return &Simulator{Machine: machine}
}

// simMove pairs a reconstructed move with the modal facts needed for the
// validation pass.
type simMove struct {
	move      domain.ToolpathMove
	line      int
	fromX     float64
	fromY     float64
	fromZ     float64
	spindleOn bool
	feed      float64
}

// Simulate parses program text line by line with full modal tracking and
// returns the reconstructed move list, the ranked issue list, and a
// summary. Malformed content produces issues, never an error: a run always
// completes. The only hard failure is a cancelled or expired context.
func (s *Simulator) Simulate(ctx context.Context, req domain.SimRequest) (*domain.SimResult, error) {
	state := domain.NewModalState()
	safeHeight := req.SafeHeight
	if safeHeight == 0 {
		safeHeight = s.Machine.SafeHeightMM
	}

	var sims []simMove
	var issues []domain.SimulationIssue

	lines := strings.Split(req.ProgramText, "\n")
	for lineNo, raw := range lines {
		if lineNo%256 == 0 {
			if err := safety.Checkpoint(ctx); err != nil {
				return nil, err
			}
		}

		words, err := parseLine(raw)
		if err != nil {
			issues = append(issues, domain.SimulationIssue{
				Kind:      domain.IssueMalformedLine,
				Severity:  domain.SeverityWarning,
				MoveIndex: len(sims),
				Line:      lineNo + 1,
				Message:   fmt.Sprintf("line %d: %v", lineNo+1, err),
			})
			continue
		}
		if len(words) == 0 {
			continue
		}

		newIssues := s.execLine(state, words, lineNo+1, &sims)
		issues = append(issues, newIssues...)
	}

	issues = append(issues, s.validate(sims, safeHeight)...)

	// Rank by severity so the most dangerous finding surfaces first;
	// program order breaks ties.
	sort.SliceStable(issues, func(a, b int) bool {
		if issues[a].Severity.Rank() != issues[b].Severity.Rank() {
			return issues[a].Severity.Rank() < issues[b].Severity.Rank()
		}
		return issues[a].MoveIndex < issues[b].MoveIndex
	})

	moves := make([]domain.ToolpathMove, len(sims))
	bounds := domain.EmptyBoundingBox()
	var totalTime float64
	for i, sm := range sims {
		moves[i] = sm.move
		bounds.Grow(sm.move.To.X, sm.move.To.Y, sm.move.Z)

		d := moveGeometry(sm.fromX, sm.fromY, sm.fromZ, sm.move)
		feed := sm.feed
		if sm.move.Kind == domain.MoveRapid {
			feed = s.Machine.RapidFeed
		} else if feed <= 0 {
			feed = req.NominalFeedXY
		}
		totalTime += moveTime(d, feed, s.Machine.AccelMMPerSec2)
	}

	errCount, warnCount := 0, 0
	for _, is := range issues {
		switch is.Severity {
		case domain.SeverityError:
			errCount++
		case domain.SeverityWarning:
			warnCount++
		}
	}

	return &domain.SimResult{
		Moves:  moves,
		Issues: issues,
		Summary: domain.SimSummary{
			EstimatedTimeSec: totalTime,
			MoveCount:        len(moves),
			Bounds:           bounds,
			ErrorCount:       errCount,
			WarningCount:     warnCount,
		},
	}, nil
}

// execLine applies one line's words to the modal state, appending any
// motion to sims. Mode words and motion may share a line.
func (s *Simulator) execLine(state *domain.ModalState, words []word, line int, sims *[]simMove) []domain.SimulationIssue {
	var issues []domain.SimulationIssue
	motion := -1

	for _, w := range words {
		switch w.letter {
		case 'G':
			switch int(w.value) {
			case 0, 1, 2, 3:
				motion = int(w.value)
			case 17:
				state.Plane = domain.PlaneXY
			case 18:
				state.Plane = domain.PlaneXZ
			case 19:
				state.Plane = domain.PlaneYZ
			case 20:
				state.Units = domain.UnitsInch
			case 21:
				state.Units = domain.UnitsMM
			case 90:
				state.Absolute = true
			case 91:
				state.Absolute = false
			default:
				issues = append(issues, domain.SimulationIssue{
					Kind:      domain.IssueUnknownCommand,
					Severity:  domain.SeverityInfo,
					MoveIndex: len(*sims),
					Line:      line,
					Message:   fmt.Sprintf("line %d: unsupported G%g ignored", line, w.value),
				})
			}
		case 'M':
			switch int(w.value) {
			case 3, 4:
				state.SpindleOn = true
			case 5:
				state.SpindleOn = false
			case 2, 30:
				// Program end; nothing to track.
			default:
				issues = append(issues, domain.SimulationIssue{
					Kind:      domain.IssueUnknownCommand,
					Severity:  domain.SeverityInfo,
					MoveIndex: len(*sims),
					Line:      line,
					Message:   fmt.Sprintf("line %d: unsupported M%g ignored", line, w.value),
				})
			}
		case 'S':
			state.SpindleRPM = w.value
		case 'F':
			state.Feed = s.toMM(state, w.value)
		}
	}

	if motion < 0 {
		return issues
	}

	issues = append(issues, s.execMotion(state, words, motion, line, sims)...)
	return issues
}

// execMotion resolves target coordinates and arc geometry for one motion
// word and appends the reconstructed move.
func (s *Simulator) execMotion(state *domain.ModalState, words []word, motion, line int, sims *[]simMove) []domain.SimulationIssue {
	var issues []domain.SimulationIssue

	tx, ty, tz := state.X, state.Y, state.Z
	if v, ok := findWord(words, 'X'); ok {
		tx = s.resolve(state, state.X, v)
	}
	if v, ok := findWord(words, 'Y'); ok {
		ty = s.resolve(state, state.Y, v)
	}
	if v, ok := findWord(words, 'Z'); ok {
		tz = s.resolve(state, state.Z, v)
	}

	m := domain.ToolpathMove{
		To:      domain.Point{X: tx, Y: ty},
		Z:       tz,
		RingTag: -1,
	}

	switch motion {
	case 0:
		m.Kind = domain.MoveRapid
	case 1:
		m.Kind = domain.MoveLinear
	case 2:
		m.Kind = domain.MoveArcCW
	case 3:
		m.Kind = domain.MoveArcCCW
	}

	if motion == 2 || motion == 3 {
		if state.Plane != domain.PlaneXY {
			issues = append(issues, domain.SimulationIssue{
				Kind:      domain.IssueArcGeometry,
				Severity:  domain.SeverityInfo,
				MoveIndex: len(*sims),
				Line:      line,
				Message:   fmt.Sprintf("line %d: arc under a non-XY plane selection interpreted in XY", line),
			})
		}
		start := state.Position()
		iVal, hasI := findWord(words, 'I')
		jVal, hasJ := findWord(words, 'J')
		rVal, hasR := findWord(words, 'R')

		switch {
		case hasI || hasJ:
			m.CenterOffset = domain.Point{X: s.toMM(state, iVal), Y: s.toMM(state, jVal)}
			m.HasOffset = true
		case hasR:
			r := s.toMM(state, rVal)
			center, err := arcCenterFromRadius(start, m.To, r, motion == 2)
			if err != nil {
				issues = append(issues, domain.SimulationIssue{
					Kind:      domain.IssueArcGeometry,
					Severity:  domain.SeverityError,
					MoveIndex: len(*sims),
					Line:      line,
					Message:   fmt.Sprintf("line %d: %v; treated as a straight move", line, err),
				})
				m.Kind = domain.MoveLinear
			} else {
				m.CenterOffset = domain.Point{X: center.X - start.X, Y: center.Y - start.Y}
				m.HasOffset = true
				m.Radius = r
				m.HasRadius = true
			}
		default:
			issues = append(issues, domain.SimulationIssue{
				Kind:      domain.IssueArcGeometry,
				Severity:  domain.SeverityError,
				MoveIndex: len(*sims),
				Line:      line,
				Message:   fmt.Sprintf("line %d: arc without IJ or R words; treated as a straight move", line),
			})
			m.Kind = domain.MoveLinear
		}
	}

	if m.Kind != domain.MoveRapid && state.Feed > 0 {
		m.Feed = state.Feed
	}

	*sims = append(*sims, simMove{
		move:      m,
		line:      line,
		fromX:     state.X,
		fromY:     state.Y,
		fromZ:     state.Z,
		spindleOn: state.SpindleOn,
		feed:      state.Feed,
	})

	state.X, state.Y, state.Z = tx, ty, tz
	return issues
}

// resolve converts a coordinate word to absolute millimeters.
func (s *Simulator) resolve(state *domain.ModalState, current, v float64) float64 {
	v = s.toMM(state, v)
	if state.Absolute {
		return v
	}
	return current + v
}

func (s *Simulator) toMM(state *domain.ModalState, v float64) float64 {
	if state.Units == domain.UnitsInch {
		return v * domain.MMPerInch
	}
	return v
}

// validate applies the safety rules over the reconstructed moves. Findings
// are collected, never fatal.
func (s *Simulator) validate(sims []simMove, safeHeight float64) []domain.SimulationIssue {
	var issues []domain.SimulationIssue

	stock := s.stockBounds(sims, safeHeight)
	inCut := false

	for i, sm := range sims {
		m := sm.move
		diving := m.Z < safeHeight

		if !diving {
			inCut = false
		} else {
			xyDist := m.To.Distance(domain.Point{X: sm.fromX, Y: sm.fromY})
			plunge := m.Kind == domain.MoveLinear && xyDist < 1e-6 && sm.spindleOn

			switch {
			case plunge:
				inCut = true
			case inCut && m.Kind != domain.MoveRapid:
				// Cutting at depth after a controlled plunge.
			default:
				issues = append(issues, domain.SimulationIssue{
					Kind:      domain.IssueBelowSafeHeight,
					Severity:  domain.SeverityError,
					MoveIndex: i,
					Line:      sm.line,
					Message:   fmt.Sprintf("move %d dives to Z=%.3f below safe height %.3f without a plunge", i, m.Z, safeHeight),
				})
				inCut = true // flag the dive once, not every move after it
			}

			if m.Kind != domain.MoveRapid && !sm.spindleOn {
				issues = append(issues, domain.SimulationIssue{
					Kind:      domain.IssueSpindleOffCut,
					Severity:  domain.SeverityError,
					MoveIndex: i,
					Line:      sm.line,
					Message:   fmt.Sprintf("move %d cuts at Z=%.3f with the spindle off", i, m.Z),
				})
			}
		}

		if m.Kind == domain.MoveRapid && !stock.Empty() && s.rapidNearStock(sm, stock) {
			issues = append(issues, domain.SimulationIssue{
				Kind:      domain.IssueRapidNearStock,
				Severity:  domain.SeverityWarning,
				MoveIndex: i,
				Line:      sm.line,
				Message:   fmt.Sprintf("move %d rapids within %.3fmm of the stock envelope", i, s.Machine.StockClearance),
			})
		}

		if m.Kind != domain.MoveRapid && sm.feed > 0 &&
			(sm.feed < s.Machine.MinFeed || sm.feed > s.Machine.MaxFeed) {
			issues = append(issues, domain.SimulationIssue{
				Kind:      domain.IssueExcessiveFeed,
				Severity:  domain.SeverityWarning,
				MoveIndex: i,
				Line:      sm.line,
				Message:   fmt.Sprintf("move %d feed %.1f outside sane range [%.1f, %.1f]", i, sm.feed, s.Machine.MinFeed, s.Machine.MaxFeed),
			})
		}
	}
	return issues
}

// stockBounds estimates the stock envelope as the bounding box of all
// cutting motion below the safe height.
func (s *Simulator) stockBounds(sims []simMove, safeHeight float64) domain.BoundingBox {
	b := domain.EmptyBoundingBox()
	for _, sm := range sims {
		if sm.move.Kind == domain.MoveRapid {
			continue
		}
		// Only positions actually below the safe plane define stock; the
		// plunge's start point at safe height must not raise the stock top.
		if sm.move.Z < safeHeight {
			b.Grow(sm.move.To.X, sm.move.To.Y, sm.move.Z)
		}
		if sm.fromZ < safeHeight {
			b.Grow(sm.fromX, sm.fromY, sm.fromZ)
		}
	}
	return b
}

// rapidNearStock samples the rapid's segment against the stock box grown
// by the configured clearance.
func (s *Simulator) rapidNearStock(sm simMove, stock domain.BoundingBox) bool {
	c := s.Machine.StockClearance
	grown := domain.BoundingBox{
		MinX: stock.MinX - c, MinY: stock.MinY - c, MinZ: stock.MinZ - c,
		MaxX: stock.MaxX + c, MaxY: stock.MaxY + c, MaxZ: stock.MaxZ + c,
	}

	// Sample the midpoint and endpoint. The start point is skipped so a
	// plain vertical retract out of the cut does not flag itself.
	pts := [][3]float64{
		{(sm.fromX + sm.move.To.X) / 2, (sm.fromY + sm.move.To.Y) / 2, (sm.fromZ + sm.move.Z) / 2},
		{sm.move.To.X, sm.move.To.Y, sm.move.Z},
	}
	for _, p := range pts {
		if p[0] >= grown.MinX && p[0] <= grown.MaxX &&
			p[1] >= grown.MinY && p[1] <= grown.MaxY &&
			p[2] >= grown.MinZ && p[2] <= grown.MaxZ {
			return true
		}
	}
	return false
}
