package loudness

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-loudnorm/internal/testutil"
)

func TestGainKnownValues(t *testing.T) {
	tests := []struct {
		name     string
		measured float64
		target   float64
		want     float64
	}{
		{"six dB up", -20, -14, 1.9952623149688795},
		{"on target", -14, -14, 1},
		{"six dB down", -8, -14, 0.5011872336272722},
		{"default target", -23, DefaultTargetLUFS, math.Pow(10, 5.0/20)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Gain(tt.measured, tt.target)
			testutil.RequireNearlyEqual(t, got, tt.want, 1e-12)
		})
	}
}

func TestGainMonotonic(t *testing.T) {
	prev := math.Inf(1)
	for measured := -60.0; measured <= 10; measured += 0.5 {
		g := Gain(measured, -14)
		if g > prev {
			t.Fatalf("Gain(%g) = %v exceeds Gain at louder reading %v", measured, g, prev)
		}

		prev = g
	}
}

func TestGainClamp(t *testing.T) {
	lo := math.Pow(10, DefaultMinGainDB/20)
	hi := math.Pow(10, DefaultMaxGainDB/20)

	testutil.RequireNearlyEqual(t, Gain(-80, -14), hi, 1e-12)
	testutil.RequireNearlyEqual(t, Gain(20, -14), lo, 1e-12)

	for measured := -90.0; measured <= 30; measured += 1.5 {
		g := Gain(measured, -14)
		if g < lo || g > hi {
			t.Fatalf("Gain(%g) = %v outside [%v, %v]", measured, g, lo, hi)
		}
	}
}

func TestGainUnityOnInvalidInput(t *testing.T) {
	for _, measured := range []float64{math.Inf(-1), math.Inf(1), math.NaN()} {
		if g := Gain(measured, -14); g != 1 {
			t.Errorf("Gain(%v, -14) = %v, want 1", measured, g)
		}
	}

	if g := Gain(-23, math.NaN()); g != 1 {
		t.Errorf("Gain(-23, NaN) = %v, want 1", g)
	}

	if g := Gain(Invalid().LUFS, -18); g != 1 {
		t.Errorf("Gain(invalid measurement, -18) = %v, want 1", g)
	}
}

func TestGainRangeCustomBounds(t *testing.T) {
	got := GainRange(-30, -14, -6, 6)
	testutil.RequireNearlyEqual(t, got, math.Pow(10, 6.0/20), 1e-12)

	got = GainRange(-10, -14, -6, 6)
	testutil.RequireNearlyEqual(t, got, math.Pow(10, -4.0/20), 1e-12)
}
