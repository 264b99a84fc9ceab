// Package dynamics provides the real-time playback side of loudness
// normalization: a gain stage that ramps toward a target published by an
// analysis pass, followed by a soft peak limiter.
//
// A Normalizer is bound to one playback stream. All Process methods and the
// lifecycle methods (Flush, Reset) belong to the audio callback context;
// SetTargetGain and ClearTarget may be called concurrently from any
// goroutine, the handoff is a single atomic pointer swap.
package dynamics
