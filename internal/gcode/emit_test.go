package gcode

import (
	"strings"
	"testing"

	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/domain"
)

func TestEmitPreambleAndPostamble(t *testing.T) {
	program := Emit(nil, EmitConfig{DefaultFeed: 600, SpindleRPM: 12000})
	lines := strings.Split(strings.TrimSpace(program), "\n")

	want := []string{"G21", "G90", "G17", "M3 S12000", "M5"}
	if len(lines) != len(want) {
		t.Fatalf("empty move list emitted %d lines, want %d: %q", len(lines), len(want), program)
	}
	for i, w := range want {
		if lines[i] != w {
			t.Errorf("line %d = %q, want %q", i, lines[i], w)
		}
	}
}

func TestEmitModalFeedOnce(t *testing.T) {
	moves := []domain.ToolpathMove{
		{Kind: domain.MoveLinear, To: domain.Point{X: 10, Y: 0}, Feed: 600, RingTag: -1},
		{Kind: domain.MoveLinear, To: domain.Point{X: 10, Y: 10}, Feed: 600, RingTag: -1},
		{Kind: domain.MoveLinear, To: domain.Point{X: 0, Y: 10}, Feed: 300, RingTag: -1},
	}
	program := Emit(moves, EmitConfig{DefaultFeed: 600})

	if got := strings.Count(program, "F600.0"); got != 1 {
		t.Errorf("F600.0 emitted %d times, want 1:\n%s", got, program)
	}
	if got := strings.Count(program, "F300.0"); got != 1 {
		t.Errorf("F300.0 emitted %d times, want 1:\n%s", got, program)
	}
}

func TestEmitOmitsUnchangedAxes(t *testing.T) {
	moves := []domain.ToolpathMove{
		{Kind: domain.MoveRapid, To: domain.Point{X: 10, Y: 10}, Z: 5, RingTag: -1},
		{Kind: domain.MoveLinear, To: domain.Point{X: 10, Y: 10}, Z: -1, Feed: 150, RingTag: -1},
	}
	program := Emit(moves, EmitConfig{})

	if !strings.Contains(program, "G1 Z-1.000 F150.0\n") {
		t.Errorf("plunge line should carry only Z and F:\n%s", program)
	}
}

func TestEmitArcWords(t *testing.T) {
	moves := []domain.ToolpathMove{
		{Kind: domain.MoveRapid, To: domain.Point{X: 0, Y: 0}, RingTag: -1},
		{Kind: domain.MoveArcCCW, To: domain.Point{X: 10, Y: 0},
			CenterOffset: domain.Point{X: 5, Y: 0}, HasOffset: true, Feed: 600, RingTag: -1},
		{Kind: domain.MoveArcCW, To: domain.Point{X: 0, Y: 0},
			Radius: 5, HasRadius: true, Feed: 600, RingTag: -1},
	}
	program := Emit(moves, EmitConfig{})

	if !strings.Contains(program, "G3 X10.000 Y0.000 I5.000 J0.000") {
		t.Errorf("offset-notation arc missing IJ words:\n%s", program)
	}
	if !strings.Contains(program, "G2 X0.000 Y0.000 R5.000") {
		t.Errorf("radius-notation arc missing R word:\n%s", program)
	}
}
