// Package safety is the cross-cutting geometry safety layer: bounded-size
// ingestion, spatial deduplication, bounded iterative traversal, and
// cooperative timeouts around CPU-bound stages.
package safety

import (
	"fmt"

	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/domain"
)

// Tier selects the payload ceiling applied by the ingestion guard.
type Tier int

const (
	TierStandard Tier = iota
	TierElevated
)

// Guard enforces the process-wide resource ceilings. It holds only the
// immutable SafetyLimits and is safe for concurrent use.
type Guard struct {
	Limits domain.SafetyLimits
}

// NewGuard creates a Guard over the given limits.
func NewGuard(limits domain.SafetyLimits) *Guard {
	return &Guard{Limits: limits}
}

// CheckPayloadSize rejects oversized input before any parsing happens.
// The size must come from a cheap pre-read (Content-Length, len of the raw
// body), never from a materialized model.
func (g *Guard) CheckPayloadSize(size int, tier Tier) error {
	ceiling := g.Limits.MaxBytesStandard
	if tier == TierElevated {
		ceiling = g.Limits.MaxBytesElevated
	}
	if size > ceiling {
		return &domain.CoreError{
			Code:    domain.ErrPayloadTooLarge.Code,
			Message: fmt.Sprintf("%s: %d bytes exceeds ceiling %d", domain.ErrPayloadTooLarge.Message, size, ceiling),
		}
	}
	return nil
}

// CheckEntityCount rejects input whose declared entity count (loops plus
// total points) exceeds the configured ceiling.
func (g *Guard) CheckEntityCount(count int) error {
	if count > g.Limits.MaxEntities {
		return &domain.CoreError{
			Code:    domain.ErrTooManyEntities.Code,
			Message: fmt.Sprintf("%s: %d entities exceeds ceiling %d", domain.ErrTooManyEntities.Message, count, g.Limits.MaxEntities),
		}
	}
	return nil
}

// CheckLoops runs the entity-count check against concrete geometry and
// validates that every coordinate is finite. It runs before the geometric
// model is handed to the offset engine.
func (g *Guard) CheckLoops(loops []domain.Loop) error {
	if len(loops) == 0 {
		return domain.ErrEmptyInput
	}
	total := len(loops)
	for i, l := range loops {
		total += len(l.Points)
		for _, p := range l.Points {
			if !p.Finite() {
				return &domain.CoreError{
					Code:    domain.ErrNonFiniteCoord.Code,
					Message: fmt.Sprintf("%s: loop %d", domain.ErrNonFiniteCoord.Message, i),
				}
			}
		}
	}
	return g.CheckEntityCount(total)
}
