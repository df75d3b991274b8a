package safety

import (
	"math"

	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/domain"
)

// cellKey is a quantized grid coordinate.
type cellKey struct {
	cx, cy int64
}

// SpatialHash deduplicates points by bucketing them into a uniform grid and
// comparing only against candidates in the 3x3 neighborhood of a query cell.
// This keeps repeated GetOrAdd calls O(1) amortized instead of O(n).
//
// A SpatialHash is scoped to one pass and one goroutine; it is not safe for
// concurrent use.
type SpatialHash struct {
	cellSize float64
	cells    map[cellKey][]int
	points   []domain.Point
}

// NewSpatialHash creates a grid with the given cell size in millimeters.
// Cell size should be at least the largest tolerance that will be queried,
// so that a match is always within the adjacent cells.
func NewSpatialHash(cellSize float64) *SpatialHash {
	if cellSize <= 0 {
		cellSize = 0.1
	}
	return &SpatialHash{
		cellSize: cellSize,
		cells:    make(map[cellKey][]int),
	}
}

func (h *SpatialHash) key(p domain.Point) cellKey {
	return cellKey{
		cx: int64(math.Floor(p.X / h.cellSize)),
		cy: int64(math.Floor(p.Y / h.cellSize)),
	}
}

// GetOrAdd returns the identity of an existing point within tolerance of p,
// or registers p under a new identity. Identities are dense indices starting
// at zero, stable for the lifetime of the hash.
func (h *SpatialHash) GetOrAdd(p domain.Point, tolerance float64) int {
	k := h.key(p)
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for _, id := range h.cells[cellKey{k.cx + dx, k.cy + dy}] {
				if h.points[id].Distance(p) <= tolerance {
					return id
				}
			}
		}
	}

	id := len(h.points)
	h.points = append(h.points, p)
	h.cells[k] = append(h.cells[k], id)
	return id
}

// Point returns the registered coordinates for an identity.
func (h *SpatialHash) Point(id int) domain.Point {
	return h.points[id]
}

// Len returns the number of distinct identities registered so far.
func (h *SpatialHash) Len() int {
	return len(h.points)
}
