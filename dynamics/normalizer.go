package dynamics

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-dsp/dsp/buffer"
	"github.com/cwbudde/algo-dsp/dsp/core"
)

const (
	defaultNormalizerThreshold = 0.95
	defaultNormalizerAttackMs  = 1.0
	defaultNormalizerReleaseMs = 10.0
	defaultNormalizerRampMs    = 100.0

	minNormalizerThreshold = 1e-3
	maxNormalizerThreshold = 1.0
	minNormalizerAttackMs  = 0.01
	maxNormalizerAttackMs  = 100.0
	minNormalizerReleaseMs = 0.1
	maxNormalizerReleaseMs = 5000.0
	minNormalizerRampMs    = 0.0
	maxNormalizerRampMs    = 10000.0

	minNormalizerTargetGain = 1e-6
	maxNormalizerTargetGain = 1e6
)

// Normalizer applies a slowly ramped gain and a soft peak limiter to an
// interleaved stream. Gain updates happen once per frame, the limiter
// envelope follows the per-frame peak across channels with independent
// attack and release time constants.
type Normalizer struct {
	sampleRate float64
	channels   int

	threshold float64
	attackMs  float64
	releaseMs float64
	rampMs    float64

	attackCoeff  float64
	releaseCoeff float64
	rampSteps    int

	// target is the only state shared with the analysis side.
	target atomic.Pointer[float64]
	seen   *float64

	currentGain float64
	rampGoal    float64
	rampLeft    int
	envelope    float64

	pool    *buffer.Pool
	frame   []float64
	pending []byte
}

// NewNormalizer creates a pass-through normalizer for the given stream
// layout. It stays at unity gain until a target is published via
// SetTargetGain.
func NewNormalizer(sampleRate float64, channels int) (*Normalizer, error) {
	if sampleRate <= 0 || !isFinite(sampleRate) {
		return nil, fmt.Errorf("normalizer sample rate must be positive and finite: %f", sampleRate)
	}

	if channels < 1 {
		return nil, fmt.Errorf("normalizer channel count must be at least 1: %d", channels)
	}

	n := &Normalizer{
		sampleRate:  sampleRate,
		channels:    channels,
		threshold:   defaultNormalizerThreshold,
		attackMs:    defaultNormalizerAttackMs,
		releaseMs:   defaultNormalizerReleaseMs,
		rampMs:      defaultNormalizerRampMs,
		currentGain: 1,
		rampGoal:    1,
		envelope:    1,
		pool:        buffer.NewPool(),
		frame:       make([]float64, channels),
		pending:     make([]byte, 0, 32),
	}

	n.recalculate()

	return n, nil
}

// SetThreshold sets the limiter threshold as a fraction of full scale.
func (n *Normalizer) SetThreshold(v float64) error {
	if v < minNormalizerThreshold || v > maxNormalizerThreshold || !isFinite(v) {
		return fmt.Errorf("normalizer threshold must be in [%f, %f]: %f",
			minNormalizerThreshold, maxNormalizerThreshold, v)
	}

	n.threshold = v

	return nil
}

// SetAttack sets the limiter attack time in milliseconds.
func (n *Normalizer) SetAttack(ms float64) error {
	if ms < minNormalizerAttackMs || ms > maxNormalizerAttackMs || !isFinite(ms) {
		return fmt.Errorf("normalizer attack must be in [%f, %f]: %f",
			minNormalizerAttackMs, maxNormalizerAttackMs, ms)
	}

	n.attackMs = ms
	n.recalculate()

	return nil
}

// SetRelease sets the limiter release time in milliseconds.
func (n *Normalizer) SetRelease(ms float64) error {
	if ms < minNormalizerReleaseMs || ms > maxNormalizerReleaseMs || !isFinite(ms) {
		return fmt.Errorf("normalizer release must be in [%f, %f]: %f",
			minNormalizerReleaseMs, maxNormalizerReleaseMs, ms)
	}

	n.releaseMs = ms
	n.recalculate()

	return nil
}

// SetRampTime sets the gain ramp duration in milliseconds. Zero makes the
// gain snap to a newly published target on the next processed frame.
func (n *Normalizer) SetRampTime(ms float64) error {
	if ms < minNormalizerRampMs || ms > maxNormalizerRampMs || !isFinite(ms) {
		return fmt.Errorf("normalizer ramp time must be in [%f, %f]: %f",
			minNormalizerRampMs, maxNormalizerRampMs, ms)
	}

	n.rampMs = ms
	n.recalculate()

	return nil
}

// Threshold returns the limiter threshold as a fraction of full scale.
func (n *Normalizer) Threshold() float64 { return n.threshold }

// Attack returns the limiter attack time in milliseconds.
func (n *Normalizer) Attack() float64 { return n.attackMs }

// Release returns the limiter release time in milliseconds.
func (n *Normalizer) Release() float64 { return n.releaseMs }

// RampTime returns the gain ramp duration in milliseconds.
func (n *Normalizer) RampTime() float64 { return n.rampMs }

// SampleRate returns the stream sample rate in Hz.
func (n *Normalizer) SampleRate() float64 { return n.sampleRate }

// Channels returns the stream channel count.
func (n *Normalizer) Channels() int { return n.channels }

// Gain returns the gain currently applied to the stream.
func (n *Normalizer) Gain() float64 { return n.currentGain }

// Envelope returns the current limiter envelope, 1 when no limiting is in
// effect.
func (n *Normalizer) Envelope() float64 { return n.envelope }

// SetTargetGain publishes the gain the stream should ramp toward. It is
// safe to call while another goroutine is processing audio.
func (n *Normalizer) SetTargetGain(gain float64) error {
	if gain < minNormalizerTargetGain || gain > maxNormalizerTargetGain || !isFinite(gain) {
		return fmt.Errorf("normalizer target gain must be in [%g, %g]: %f",
			minNormalizerTargetGain, maxNormalizerTargetGain, gain)
	}

	v := gain
	n.target.Store(&v)

	return nil
}

// ClearTarget withdraws the published target. The stream snaps back to
// unity gain on the next processed frame.
func (n *Normalizer) ClearTarget() {
	n.target.Store(nil)
}

// Target returns the most recently published target gain, if any.
func (n *Normalizer) Target() (float64, bool) {
	p := n.target.Load()
	if p == nil {
		return 1, false
	}

	return *p, true
}

// Active reports whether processing currently has any effect on the
// stream. Callers may skip Process entirely while it returns false.
func (n *Normalizer) Active() bool {
	if p := n.target.Load(); p != nil && *p != 1 {
		return true
	}

	return n.currentGain != 1 || n.envelope != 1 || n.rampLeft > 0
}

// Flush clears the runtime gain and limiter state after a seek or stream
// discontinuity. The published target survives and is ramped toward again
// as processing resumes.
func (n *Normalizer) Flush() {
	n.currentGain = 1
	n.rampGoal = 1
	n.rampLeft = 0
	n.envelope = 1
	n.seen = nil
	n.pending = n.pending[:0]
}

// Reset prepares the normalizer for a new track: like Flush, but the
// published target is withdrawn as well, since it belongs to the previous
// stream.
func (n *Normalizer) Reset() {
	n.target.Store(nil)
	n.Flush()
}

// ProcessInPlace applies gain and limiting to an interleaved chunk. A
// trailing partial frame is passed through untouched. Empty chunks are
// no-ops.
func (n *Normalizer) ProcessInPlace(buf []float64) {
	n.syncTarget()

	frames := len(buf) / n.channels
	for f := range frames {
		n.stepGain()

		frame := buf[f*n.channels : (f+1)*n.channels]

		peak := 0.0
		for _, s := range frame {
			if a := math.Abs(s * n.currentGain); a > peak {
				peak = a
			}
		}

		n.stepEnvelope(peak)

		scale := n.currentGain * n.envelope
		for i, s := range frame {
			frame[i] = core.Clamp(s*scale, -1, 1)
		}
	}
}

// syncTarget picks up a target published since the previous chunk and arms
// the gain ramp. Pointer identity distinguishes repeated publications.
func (n *Normalizer) syncTarget() {
	p := n.target.Load()
	if p == n.seen {
		return
	}

	n.seen = p

	if p == nil {
		n.currentGain = 1
		n.rampGoal = 1
		n.rampLeft = 0

		return
	}

	if *p == n.currentGain || n.rampSteps == 0 {
		n.currentGain = *p
		n.rampGoal = *p
		n.rampLeft = 0

		return
	}

	n.rampGoal = *p
	n.rampLeft = n.rampSteps
}

func (n *Normalizer) stepGain() {
	if n.rampLeft == 0 {
		return
	}

	n.currentGain += (n.rampGoal - n.currentGain) / float64(n.rampLeft)

	n.rampLeft--
	if n.rampLeft == 0 {
		n.currentGain = n.rampGoal
	}
}

func (n *Normalizer) stepEnvelope(peak float64) {
	want := 1.0
	if peak > n.threshold {
		want = n.threshold / peak
	}

	if want < n.envelope {
		n.envelope = want + (n.envelope-want)*n.attackCoeff
	} else {
		n.envelope = want + (n.envelope-want)*n.releaseCoeff
	}
}

func (n *Normalizer) recalculate() {
	n.attackCoeff = math.Exp(-1.0 / (n.attackMs * 0.001 * n.sampleRate))
	n.releaseCoeff = math.Exp(-1.0 / (n.releaseMs * 0.001 * n.sampleRate))
	n.rampSteps = int(math.Round(n.rampMs * 0.001 * n.sampleRate))
}

func isFinite(v float64) bool {
	return !(math.IsNaN(v) || math.IsInf(v, 0))
}
