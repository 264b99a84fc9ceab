// Package loudness measures the perceived loudness of decoded PCM streams
// with a simplified EBU R128 / ITU-R BS.1770 pipeline: K-weighting, 400 ms
// blocks at 75 % overlap, an absolute -70 LUFS gate applied as blocks
// complete, and a -10 LU relative gate applied on finalization.
//
// An Analyzer covers one analysis session. Feed it interleaved samples with
// Analyze in chunks of any size, read the gated result with Finalize, and
// call Reset to start over for the next source. Momentary, ShortTerm, and
// Peaks expose live values while a session runs. The analysis path is
// synchronous and an Analyzer must not be shared between goroutines.
//
// Block energies are normalized by both block length and channel count, so
// results are comparable across channel layouts but deviate from strict
// BS.1770 channel-weighted summation.
package loudness
