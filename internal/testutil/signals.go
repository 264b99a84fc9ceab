package testutil

import "math"

// Sine generates a deterministic mono sine wave.
func Sine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate

	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}

	return out
}

// InterleavedSine generates frames of an interleaved multi-channel stream
// carrying the same sine tone on every channel.
func InterleavedSine(freqHz, sampleRate, amplitude float64, frames, channels int) []float64 {
	out := make([]float64, frames*channels)
	step := 2 * math.Pi * freqHz / sampleRate

	for i := range frames {
		v := amplitude * math.Sin(step*float64(i))
		for c := range channels {
			out[i*channels+c] = v
		}
	}

	return out
}

// Square generates a square wave alternating between +amplitude and
// -amplitude every half period samples.
func Square(amplitude float64, period, length int) []float64 {
	out := make([]float64, length)

	half := max(period/2, 1)

	for i := range out {
		if (i/half)%2 == 0 {
			out[i] = amplitude
		} else {
			out[i] = -amplitude
		}
	}

	return out
}

// Silence returns n zero samples.
func Silence(n int) []float64 {
	return make([]float64, n)
}

// Impulse generates a unit impulse at the given position.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}

	return out
}
