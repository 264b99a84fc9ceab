package testutil

import (
	"math"
	"testing"
)

func TestMaxAbsDiff(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{1, 2.5, 2}

	if got := MaxAbsDiff(a, b); got != 1 {
		t.Errorf("MaxAbsDiff = %v, want 1", got)
	}
}

func TestMaxAbsDiffShorterSlice(t *testing.T) {
	a := []float64{1, 2}
	b := []float64{1, 2, 100}

	if got := MaxAbsDiff(a, b); got != 0 {
		t.Errorf("MaxAbsDiff = %v, want 0 over the common prefix", got)
	}
}

func TestMaxAbsDiffIdentical(t *testing.T) {
	a := []float64{0.1, -0.2, 0.3}

	if got := MaxAbsDiff(a, a); got != 0 {
		t.Errorf("MaxAbsDiff = %v, want 0", got)
	}
}

func TestRequireNearlyEqualWithinTolerance(t *testing.T) {
	RequireNearlyEqual(t, 1.0, 1.0+1e-10, 1e-9)
	RequireNearlyEqual(t, -3.5, -3.5, 0)
}

func TestRequireSliceNearlyEqualWithinTolerance(t *testing.T) {
	a := []float64{0, 0.5, -0.5}
	b := []float64{1e-13, 0.5, -0.5 + 1e-13}
	RequireSliceNearlyEqual(t, a, b, 1e-12)
}

func TestRequireFinitePasses(t *testing.T) {
	RequireFinite(t, []float64{0, -1, math.MaxFloat64})
}
