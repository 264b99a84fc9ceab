package loudness

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/core"
)

// Gain-mapping defaults. The reference level matches common playback
// normalization practice; the bounds stop runaway correction on
// near-silent or mis-measured material.
const (
	DefaultTargetLUFS = -18.0
	DefaultMinGainDB  = -24.0
	DefaultMaxGainDB  = 24.0
)

// Gain converts a measured loudness and a target level into a linear gain
// factor, clamping the correction to the default bounds.
func Gain(measuredLUFS, targetLUFS float64) float64 {
	return GainRange(measuredLUFS, targetLUFS, DefaultMinGainDB, DefaultMaxGainDB)
}

// GainRange converts a measured loudness and a target level into a linear
// gain factor with explicit correction bounds in dB. A non-finite measured
// or target value yields unity gain, applying no correction.
func GainRange(measuredLUFS, targetLUFS, minGainDB, maxGainDB float64) float64 {
	if !isFinite(measuredLUFS) || !isFinite(targetLUFS) {
		return 1
	}

	return core.DBToLinear(core.Clamp(targetLUFS-measuredLUFS, minGainDB, maxGainDB))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
