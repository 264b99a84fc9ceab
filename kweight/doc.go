// Package kweight implements the two-stage K-weighting pre-filter applied
// before loudness measurement: a single-pole high-pass that removes DC and
// low-frequency rumble, followed by a high-frequency shelving boost that
// approximates the ear's increased sensitivity to upper-mid content.
//
// The cascade runs channel-independently on interleaved frames. Filter
// state persists across calls so a stream can be fed in chunks of any
// size; Reset restarts the cold-start transient.
package kweight
