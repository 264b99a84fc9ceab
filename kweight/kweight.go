package kweight

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
)

const (
	highpassFreq = 38.0
	shelfFreq    = 1500.0
	shelfGainDB  = 4.0
	shelfSlope   = 1.0
)

// HighpassCoefficients returns the first cascade stage for the given sample
// rate: a single-pole high-pass at 38 Hz expressed as a degenerate biquad.
//
// The stage realizes y[n] = alpha*(y[n-1] + x[n] - x[n-1]) with
// alpha = exp(-2*pi*fc/fs), mapped onto section coefficients
// B0 = alpha, B1 = -alpha, A1 = -alpha (B2 = A2 = 0).
//
// An invalid sample rate yields zero coefficients.
func HighpassCoefficients(sampleRate float64) biquad.Coefficients {
	if !validRate(sampleRate) {
		return biquad.Coefficients{}
	}

	alpha := math.Exp(-2 * math.Pi * highpassFreq / sampleRate)

	return biquad.Coefficients{B0: alpha, B1: -alpha, A1: -alpha}
}

// ShelfCoefficients returns the second cascade stage: a high shelf at
// 1500 Hz with +4 dB gain and shelf slope S = 1, normalized by a0.
//
// An invalid sample rate, or one whose Nyquist frequency does not clear
// the shelf center, yields zero coefficients.
func ShelfCoefficients(sampleRate float64) biquad.Coefficients {
	if !validRate(sampleRate) || sampleRate/2 <= shelfFreq {
		return biquad.Coefficients{}
	}

	w0 := 2 * math.Pi * shelfFreq / sampleRate
	cw := math.Cos(w0)
	sw := math.Sin(w0)
	a := math.Pow(10, shelfGainDB/40)
	alpha := sw / 2 * math.Sqrt((a+1/a)*(1/shelfSlope-1)+2)
	beta := 2 * math.Sqrt(a) * alpha

	b0 := a * ((a + 1) + (a-1)*cw + beta)
	b1 := -2 * a * ((a - 1) + (a+1)*cw)
	b2 := a * ((a + 1) + (a-1)*cw - beta)
	a0 := (a + 1) - (a-1)*cw + beta
	a1 := 2 * ((a - 1) - (a+1)*cw)
	a2 := (a + 1) - (a-1)*cw - beta

	return biquad.Coefficients{
		B0: b0 / a0,
		B1: b1 / a0,
		B2: b2 / a0,
		A1: a1 / a0,
		A2: a2 / a0,
	}
}

func validRate(sampleRate float64) bool {
	return sampleRate > 0 && !math.IsNaN(sampleRate) && !math.IsInf(sampleRate, 0)
}

// Filter applies the K-weighting cascade to an interleaved multi-channel
// stream. Each channel owns an independent copy of the cascade state.
type Filter struct {
	sampleRate float64
	channels   int
	chains     []*biquad.Chain
}

// New creates a K-weighting filter for the given sample rate and channel
// count. The sample rate must keep the shelf center below Nyquist.
func New(sampleRate float64, channels int) (*Filter, error) {
	if !validRate(sampleRate) {
		return nil, fmt.Errorf("sample rate must be positive and finite, got %g", sampleRate)
	}

	if sampleRate/2 <= shelfFreq {
		return nil, fmt.Errorf("sample rate must exceed %g Hz, got %g", 2*shelfFreq, sampleRate)
	}

	if channels < 1 {
		return nil, fmt.Errorf("channel count must be at least 1, got %d", channels)
	}

	coeffs := []biquad.Coefficients{
		HighpassCoefficients(sampleRate),
		ShelfCoefficients(sampleRate),
	}

	f := &Filter{
		sampleRate: sampleRate,
		channels:   channels,
		chains:     make([]*biquad.Chain, channels),
	}
	for i := range f.chains {
		f.chains[i] = biquad.NewChain(coeffs)
	}

	return f, nil
}

// SampleRate returns the configured sample rate.
func (f *Filter) SampleRate() float64 { return f.sampleRate }

// Channels returns the configured channel count.
func (f *Filter) Channels() int { return f.channels }

// ProcessBlock filters interleaved frames in-place. A trailing partial
// frame is left untouched. Zero-alloc.
func (f *Filter) ProcessBlock(buf []float64) {
	if f.channels == 1 {
		f.chains[0].ProcessBlock(buf)
		return
	}

	n := len(buf) - len(buf)%f.channels
	for i := 0; i < n; i += f.channels {
		for c, chain := range f.chains {
			buf[i+c] = chain.ProcessSample(buf[i+c])
		}
	}
}

// ProcessBlockTo filters interleaved frames from src into dst, covering
// the shorter of the two slices. A trailing partial frame is copied
// through unfiltered. Zero-alloc.
func (f *Filter) ProcessBlockTo(dst, src []float64) {
	n := min(len(dst), len(src))
	rem := n % f.channels
	n -= rem

	if f.channels == 1 {
		for i := range n {
			dst[i] = f.chains[0].ProcessSample(src[i])
		}
	} else {
		for i := 0; i < n; i += f.channels {
			for c, chain := range f.chains {
				dst[i+c] = chain.ProcessSample(src[i+c])
			}
		}
	}

	copy(dst[n:n+rem], src[n:n+rem])
}

// Reset clears all per-channel filter state.
func (f *Filter) Reset() {
	for _, chain := range f.chains {
		chain.Reset()
	}
}

// Response returns the cascade's complex frequency response at freqHz.
func (f *Filter) Response(freqHz float64) complex128 {
	return f.chains[0].Response(freqHz, f.sampleRate)
}
