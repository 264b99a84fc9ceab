package loudness

// AnalyzerConfig holds the construction parameters of an Analyzer.
type AnalyzerConfig struct {
	SampleRate  float64
	Channels    int
	Stride      int
	DownmixMono bool
}

// DefaultAnalyzerConfig returns the default configuration: 48 kHz stereo,
// no decimation, no downmix.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		SampleRate: 48000,
		Channels:   2,
		Stride:     1,
	}
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*AnalyzerConfig)

// WithSampleRate sets the input sample rate in Hz.
// Non-positive values are ignored.
func WithSampleRate(sampleRate float64) AnalyzerOption {
	return func(cfg *AnalyzerConfig) {
		if sampleRate > 0 {
			cfg.SampleRate = sampleRate
		}
	}
}

// WithChannels sets the input channel count.
// Values below 1 are ignored.
func WithChannels(channels int) AnalyzerOption {
	return func(cfg *AnalyzerConfig) {
		if channels >= 1 {
			cfg.Channels = channels
		}
	}
}

// WithStride keeps only every stride-th frame for measurement, trading
// accuracy for compute. The filters and block windows are derived from the
// decimated rate, so blocks still cover 400 ms of real time.
// Values below 1 are ignored.
func WithStride(stride int) AnalyzerOption {
	return func(cfg *AnalyzerConfig) {
		if stride >= 1 {
			cfg.Stride = stride
		}
	}
}

// WithDownmixMono folds every measured frame into the average of its
// channels before filtering.
func WithDownmixMono(enabled bool) AnalyzerOption {
	return func(cfg *AnalyzerConfig) {
		cfg.DownmixMono = enabled
	}
}

// ApplyAnalyzerOptions resolves the default configuration with the given
// options. Nil options are skipped.
func ApplyAnalyzerOptions(opts ...AnalyzerOption) AnalyzerConfig {
	cfg := DefaultAnalyzerConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}
