package loudness

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/core"

	"github.com/cwbudde/algo-loudnorm/kweight"
)

const (
	blockDuration     = 0.4
	blockOverlap      = 0.75
	shortTermDuration = 3.0

	absoluteThresholdLUFS = -70.0
	relativeGateLU        = -10.0

	// Energy-to-LUFS calibration offset. Omitting it shifts every result
	// by +0.691 LU.
	calibrationDB = -0.691
)

// absoluteThresholdEnergy is the energy-domain absolute gate,
// 10^((-70 + 0.691)/10).
var absoluteThresholdEnergy = core.DBPowerToLinear(absoluteThresholdLUFS - calibrationDB)

// Measurement is the gated loudness result of one analysis session.
// Invalid measurements carry negative infinity.
type Measurement struct {
	LUFS  float64
	Valid bool
}

// Invalid returns the sentinel measurement produced when too little signal
// survives gating.
func Invalid() Measurement {
	return Measurement{LUFS: math.Inf(-1)}
}

// Analyzer accumulates one session of loudness analysis.
type Analyzer struct {
	cfg AnalyzerConfig

	rate     float64 // measurement rate after decimation
	channels int     // measured channel count after downmix
	filter   *kweight.Filter

	blockSize int // frames per 400 ms block at the measurement rate
	hopSize   int // frames per 100 ms hop

	pending    []float64 // sub-frame tail carried between Analyze calls
	strideLeft int       // frames to skip until the next measured frame

	work     []float64 // decimated and weighted staging buffer
	window   []float64 // filtered frames awaiting block completion
	energies []float64 // retained block energies, absolute-gated

	shortRing  []float64 // recent block energies for ShortTerm, ungated
	shortCount int
	shortIdx   int

	lastEnergy float64
	blockSeen  bool

	peaks []float64
}

// NewAnalyzer creates an analyzer for one stream configuration. The
// decimated sample rate must keep the weighting shelf below Nyquist.
func NewAnalyzer(opts ...AnalyzerOption) (*Analyzer, error) {
	cfg := ApplyAnalyzerOptions(opts...)

	rate := cfg.SampleRate / float64(cfg.Stride)

	channels := cfg.Channels
	if cfg.DownmixMono {
		channels = 1
	}

	filter, err := kweight.New(rate, channels)
	if err != nil {
		return nil, fmt.Errorf("loudness: configure weighting filter: %w", err)
	}

	blockSize := max(int(math.Round(rate*blockDuration)), 1)
	hopSize := max(int(math.Round(float64(blockSize)*(1-blockOverlap))), 1)
	ringSize := max(int(math.Round(shortTermDuration*rate/float64(hopSize))), 1)

	return &Analyzer{
		cfg:       cfg,
		rate:      rate,
		channels:  channels,
		filter:    filter,
		blockSize: blockSize,
		hopSize:   hopSize,
		pending:   make([]float64, 0, cfg.Channels),
		window:    make([]float64, 0, blockSize*channels),
		shortRing: make([]float64, ringSize),
		peaks:     make([]float64, cfg.Channels),
	}, nil
}

// SampleRate returns the configured input sample rate.
func (a *Analyzer) SampleRate() float64 { return a.cfg.SampleRate }

// Channels returns the configured input channel count.
func (a *Analyzer) Channels() int { return a.cfg.Channels }

// BlockCount returns the number of blocks retained by the absolute gate.
func (a *Analyzer) BlockCount() int { return len(a.energies) }

// Analyze appends interleaved samples to the session. Chunks may break at
// any boundary; a trailing partial frame is carried into the next call.
// Empty input is a no-op.
func (a *Analyzer) Analyze(samples []float64) {
	if len(samples) == 0 {
		return
	}

	inCh := a.cfg.Channels

	i := 0
	if len(a.pending) > 0 {
		take := min(inCh-len(a.pending), len(samples))
		a.pending = append(a.pending, samples[:take]...)
		i = take

		if len(a.pending) < inCh {
			return
		}

		a.consumeFrames(a.pending)
		a.pending = a.pending[:0]
	}

	whole := i + (len(samples)-i)/inCh*inCh
	if whole > i {
		a.consumeFrames(samples[i:whole])
	}

	if whole < len(samples) {
		a.pending = append(a.pending, samples[whole:]...)
	}
}

// consumeFrames ingests whole frames: peak tracking on the raw input, then
// decimation and optional downmix, then weighting and block integration.
func (a *Analyzer) consumeFrames(frames []float64) {
	inCh := a.cfg.Channels

	for i, v := range frames {
		if abs := math.Abs(v); abs > a.peaks[i%inCh] {
			a.peaks[i%inCh] = abs
		}
	}

	a.work = a.work[:0]

	for start := 0; start < len(frames); start += inCh {
		if a.strideLeft > 0 {
			a.strideLeft--
			continue
		}

		a.strideLeft = a.cfg.Stride - 1

		if a.cfg.DownmixMono {
			sum := 0.0
			for c := range inCh {
				sum += frames[start+c]
			}

			a.work = append(a.work, sum/float64(inCh))
		} else {
			a.work = append(a.work, frames[start:start+inCh]...)
		}
	}

	if len(a.work) == 0 {
		return
	}

	a.filter.ProcessBlock(a.work)
	a.window = append(a.window, a.work...)
	a.drainBlocks()
}

// drainBlocks computes the energy of every completed 400 ms block and
// advances the window by one hop per block.
func (a *Analyzer) drainBlocks() {
	span := a.blockSize * a.channels
	hop := a.hopSize * a.channels

	for len(a.window) >= span {
		sum := 0.0
		for _, s := range a.window[:span] {
			sum += s * s
		}

		a.recordBlock(sum / float64(span))

		n := copy(a.window, a.window[hop:])
		a.window = a.window[:n]
	}
}

func (a *Analyzer) recordBlock(energy float64) {
	a.lastEnergy = energy
	a.blockSeen = true

	a.shortRing[a.shortIdx] = energy
	a.shortIdx = (a.shortIdx + 1) % len(a.shortRing)

	if a.shortCount < len(a.shortRing) {
		a.shortCount++
	}

	if energy >= absoluteThresholdEnergy {
		a.energies = append(a.energies, energy)
	}
}

// Finalize computes the gated loudness of the session so far. It does not
// consume state and may be called repeatedly as more audio arrives.
//
// Fewer than two retained blocks, or a relative gate that removes every
// block, yield the invalid measurement.
func (a *Analyzer) Finalize() Measurement {
	if len(a.energies) < 2 {
		return Invalid()
	}

	sum := 0.0
	for _, e := range a.energies {
		sum += e
	}

	relativeThreshold := sum / float64(len(a.energies)) * core.DBPowerToLinear(relativeGateLU)

	gatedSum := 0.0
	gatedCount := 0

	for _, e := range a.energies {
		if e >= relativeThreshold {
			gatedSum += e
			gatedCount++
		}
	}

	if gatedCount == 0 {
		return Invalid()
	}

	lufs := toLUFS(gatedSum / float64(gatedCount))
	if math.IsInf(lufs, -1) {
		return Invalid()
	}

	return Measurement{LUFS: lufs, Valid: true}
}

// Momentary returns the loudness of the latest completed 400 ms block, or
// negative infinity before the first block completes.
func (a *Analyzer) Momentary() float64 {
	if !a.blockSeen {
		return math.Inf(-1)
	}

	return toLUFS(a.lastEnergy)
}

// ShortTerm returns the mean loudness of the blocks spanning the last
// three seconds, ungated, or negative infinity before the first block.
func (a *Analyzer) ShortTerm() float64 {
	if a.shortCount == 0 {
		return math.Inf(-1)
	}

	sum := 0.0
	for _, e := range a.shortRing[:a.shortCount] {
		sum += e
	}

	return toLUFS(sum / float64(a.shortCount))
}

// Peaks returns the per-channel maximum absolute input amplitude observed
// this session, taken before decimation and weighting.
func (a *Analyzer) Peaks() []float64 {
	p := make([]float64, len(a.peaks))
	copy(p, a.peaks)

	return p
}

// Reset starts a new session. The stream configuration persists.
func (a *Analyzer) Reset() {
	a.filter.Reset()
	a.pending = a.pending[:0]
	a.strideLeft = 0
	a.window = a.window[:0]
	a.energies = nil

	for i := range a.shortRing {
		a.shortRing[i] = 0
	}

	a.shortCount = 0
	a.shortIdx = 0
	a.lastEnergy = 0
	a.blockSeen = false

	for i := range a.peaks {
		a.peaks[i] = 0
	}
}

// toLUFS converts channel-normalized mean-square energy to LUFS. Zero or
// negative energies map to negative infinity, never reaching the logarithm.
func toLUFS(energy float64) float64 {
	if energy <= 0 {
		return math.Inf(-1)
	}

	return core.LinearPowerToDB(energy) + calibrationDB
}
