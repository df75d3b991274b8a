package gcode

import (
	"fmt"
	"strings"

	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/domain"
)

// EmitConfig configures program emission.
type EmitConfig struct {
	// DefaultFeed is applied to cutting moves without a per-move override.
	DefaultFeed float64
	// SpindleRPM for the M3 preamble; 0 emits M3 without an S word.
	SpindleRPM float64
}

// Emit serializes moves into motion-command text, one command per line,
// using only the commands the simplest conforming consumer understands.
// The emitter tracks its own modal state so a mode or feed word is written
// only when it actually changes. Output is deterministic.
func Emit(moves []domain.ToolpathMove, cfg EmitConfig) string {
	var b strings.Builder
	state := domain.NewModalState()

	// Preamble pins down every modal assumption.
	b.WriteString("G21\n")
	b.WriteString("G90\n")
	b.WriteString("G17\n")
	if cfg.SpindleRPM > 0 {
		fmt.Fprintf(&b, "M3 S%.0f\n", cfg.SpindleRPM)
	} else {
		b.WriteString("M3\n")
	}
	state.SpindleOn = true
	state.SpindleRPM = cfg.SpindleRPM

	for _, m := range moves {
		line := make([]string, 0, 6)

		switch m.Kind {
		case domain.MoveRapid:
			line = append(line, "G0")
		case domain.MoveLinear:
			line = append(line, "G1")
		case domain.MoveArcCW:
			line = append(line, "G2")
		case domain.MoveArcCCW:
			line = append(line, "G3")
		default:
			continue
		}

		if m.To.X != state.X || isArc(m.Kind) {
			line = append(line, fmt.Sprintf("X%.3f", m.To.X))
		}
		if m.To.Y != state.Y || isArc(m.Kind) {
			line = append(line, fmt.Sprintf("Y%.3f", m.To.Y))
		}
		if m.Z != state.Z {
			line = append(line, fmt.Sprintf("Z%.3f", m.Z))
		}

		if isArc(m.Kind) {
			if m.HasOffset {
				line = append(line,
					fmt.Sprintf("I%.3f", m.CenterOffset.X),
					fmt.Sprintf("J%.3f", m.CenterOffset.Y))
			} else if m.HasRadius {
				line = append(line, fmt.Sprintf("R%.3f", m.Radius))
			}
		}

		if m.Kind != domain.MoveRapid {
			feed := m.Feed
			if feed <= 0 {
				feed = cfg.DefaultFeed
			}
			if feed > 0 && feed != state.Feed {
				line = append(line, fmt.Sprintf("F%.1f", feed))
				state.Feed = feed
			}
		}

		b.WriteString(strings.Join(line, " "))
		b.WriteByte('\n')

		state.X = m.To.X
		state.Y = m.To.Y
		state.Z = m.Z
	}

	b.WriteString("M5\n")
	return b.String()
}

func isArc(k domain.MoveKind) bool {
	return k == domain.MoveArcCW || k == domain.MoveArcCCW
}
