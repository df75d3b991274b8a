package safety

import (
	"math/rand"
	"testing"

	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/domain"
)

func TestSpatialHash_DuplicatesCollapse(t *testing.T) {
	h := NewSpatialHash(0.1)

	a := h.GetOrAdd(domain.Point{X: 1.0, Y: 2.0}, 0.01)
	b := h.GetOrAdd(domain.Point{X: 1.005, Y: 2.0}, 0.01)
	c := h.GetOrAdd(domain.Point{X: 1.5, Y: 2.0}, 0.01)

	if a != b {
		t.Errorf("near-coincident points got identities %d and %d, want same", a, b)
	}
	if a == c {
		t.Errorf("distant point shares identity %d", c)
	}
	if h.Len() != 2 {
		t.Errorf("Len = %d, want 2", h.Len())
	}
}

func TestSpatialHash_AdjacentCellMatch(t *testing.T) {
	h := NewSpatialHash(0.1)

	// Two points within tolerance but on either side of a cell border.
	a := h.GetOrAdd(domain.Point{X: 0.099, Y: 0}, 0.01)
	b := h.GetOrAdd(domain.Point{X: 0.101, Y: 0}, 0.01)
	if a != b {
		t.Errorf("points straddling a cell border got identities %d and %d, want same", a, b)
	}
}

func TestSpatialHash_NegativeCoordinates(t *testing.T) {
	h := NewSpatialHash(0.1)

	a := h.GetOrAdd(domain.Point{X: -5.0, Y: -3.0}, 0.01)
	b := h.GetOrAdd(domain.Point{X: -5.002, Y: -3.002}, 0.01)
	if a != b {
		t.Errorf("near-coincident negative points got identities %d and %d, want same", a, b)
	}
	if got := h.Point(a); got.Distance(domain.Point{X: -5.0, Y: -3.0}) > 1e-9 {
		t.Errorf("Point(%d) = %+v, want first registration", a, got)
	}
}

func TestSpatialHash_IdentityCountMatchesDistinctPoints(t *testing.T) {
	// Property from the design: the number of identities equals the number
	// of points pairwise farther apart than the tolerance.
	const tol = 0.05
	rng := rand.New(rand.NewSource(42))

	var distinct []domain.Point
	h := NewSpatialHash(0.1)

	for i := 0; i < 500; i++ {
		p := domain.Point{X: rng.Float64() * 10, Y: rng.Float64() * 10}

		found := false
		for _, q := range distinct {
			if q.Distance(p) <= tol {
				found = true
				break
			}
		}
		if !found {
			distinct = append(distinct, p)
		}

		h.GetOrAdd(p, tol)
	}

	// The brute-force count and the grid count can differ only when distinct
	// retention order differs; both use first-wins, so they must agree.
	if h.Len() != len(distinct) {
		t.Errorf("identities = %d, brute-force distinct = %d", h.Len(), len(distinct))
	}
}

func TestSpatialHash_RepeatedQueriesStable(t *testing.T) {
	h := NewSpatialHash(0.1)
	p := domain.Point{X: 3.3, Y: 4.4}

	first := h.GetOrAdd(p, 0.01)
	for i := 0; i < 10; i++ {
		if got := h.GetOrAdd(p, 0.01); got != first {
			t.Fatalf("repeated GetOrAdd returned %d, want %d", got, first)
		}
	}
	if h.Len() != 1 {
		t.Errorf("Len = %d, want 1", h.Len())
	}
}
