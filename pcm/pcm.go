// Package pcm converts packed little-endian sample formats to and from
// float64 sample values in the nominal range [-1, 1).
//
// The package handles raw sample encoding only. Interleaving, channel
// layout, and container parsing are the caller's concern; Decode and
// Encode treat their input as a flat run of samples.
package pcm

import (
	"errors"
	"math"
)

// Format identifies the packed encoding of a PCM sample stream.
type Format int

const (
	// S16LE is signed 16-bit little-endian integer PCM.
	S16LE Format = iota
	// S24LE is signed 24-bit little-endian integer PCM, packed in 3 bytes.
	S24LE
	// S32LE is signed 32-bit little-endian integer PCM.
	S32LE
	// F32LE is 32-bit little-endian IEEE 754 float PCM.
	F32LE
)

// ErrUnsupportedFormat is returned for Format values this package cannot
// convert. Streaming callers should treat it as a pass-through signal
// rather than a fatal condition.
var ErrUnsupportedFormat = errors.New("unsupported sample format")

// Full-scale divisors for the integer formats.
const (
	scale16 = 32768.0
	scale24 = 8388608.0
	scale32 = 2147483648.0
)

// String returns a short name for the format.
func (f Format) String() string {
	switch f {
	case S16LE:
		return "s16le"
	case S24LE:
		return "s24le"
	case S32LE:
		return "s32le"
	case F32LE:
		return "f32le"
	default:
		return "unknown"
	}
}

// BytesPerSample returns the packed width of one sample in bytes,
// or 0 if the format is not supported.
func (f Format) BytesPerSample() int {
	switch f {
	case S16LE:
		return 2
	case S24LE:
		return 3
	case S32LE, F32LE:
		return 4
	default:
		return 0
	}
}

// Valid reports whether f is a format this package can convert.
func (f Format) Valid() bool {
	return f.BytesPerSample() != 0
}

// FrameBytes returns the packed size of one frame (one sample per channel),
// or 0 if the format is not supported or channels is not positive.
func FrameBytes(f Format, channels int) int {
	if channels <= 0 {
		return 0
	}

	return f.BytesPerSample() * channels
}

// Decode converts packed samples from src into dst and returns the number
// of samples written. Conversion stops at the first incomplete sample in
// src or when dst is full, whichever comes first; trailing partial bytes
// are left for the caller to carry into the next chunk. An unsupported
// format decodes nothing and returns ErrUnsupportedFormat.
func Decode(dst []float64, src []byte, f Format) (int, error) {
	width := f.BytesPerSample()
	if width == 0 {
		return 0, ErrUnsupportedFormat
	}

	n := len(src) / width
	if n > len(dst) {
		n = len(dst)
	}

	switch f {
	case S16LE:
		for i := range n {
			o := 2 * i
			v := int16(uint16(src[o]) | uint16(src[o+1])<<8)
			dst[i] = float64(v) / scale16
		}
	case S24LE:
		for i := range n {
			o := 3 * i
			v := int32(uint32(src[o])<<8 | uint32(src[o+1])<<16 | uint32(src[o+2])<<24)
			dst[i] = float64(v>>8) / scale24
		}
	case S32LE:
		for i := range n {
			o := 4 * i
			v := int32(uint32(src[o]) | uint32(src[o+1])<<8 | uint32(src[o+2])<<16 | uint32(src[o+3])<<24)
			dst[i] = float64(v) / scale32
		}
	case F32LE:
		for i := range n {
			o := 4 * i
			bits := uint32(src[o]) | uint32(src[o+1])<<8 | uint32(src[o+2])<<16 | uint32(src[o+3])<<24
			dst[i] = float64(math.Float32frombits(bits))
		}
	}

	return n, nil
}

// Encode converts float64 samples from src into packed form in dst and
// returns the number of samples written. Integer formats are rounded and
// clamped to their representable range; F32LE values are written as-is.
// Conversion stops when dst cannot hold another full sample. An
// unsupported format encodes nothing and returns ErrUnsupportedFormat.
func Encode(dst []byte, src []float64, f Format) (int, error) {
	width := f.BytesPerSample()
	if width == 0 {
		return 0, ErrUnsupportedFormat
	}

	n := len(dst) / width
	if n > len(src) {
		n = len(src)
	}

	switch f {
	case S16LE:
		for i := range n {
			o := 2 * i
			v := quantize(src[i], scale16, -32768, 32767)
			dst[o] = byte(v)
			dst[o+1] = byte(v >> 8)
		}
	case S24LE:
		for i := range n {
			o := 3 * i
			v := quantize(src[i], scale24, -8388608, 8388607)
			dst[o] = byte(v)
			dst[o+1] = byte(v >> 8)
			dst[o+2] = byte(v >> 16)
		}
	case S32LE:
		for i := range n {
			o := 4 * i
			v := quantize(src[i], scale32, -2147483648, 2147483647)
			dst[o] = byte(v)
			dst[o+1] = byte(v >> 8)
			dst[o+2] = byte(v >> 16)
			dst[o+3] = byte(v >> 24)
		}
	case F32LE:
		for i := range n {
			o := 4 * i
			bits := math.Float32bits(float32(src[i]))
			dst[o] = byte(bits)
			dst[o+1] = byte(bits >> 8)
			dst[o+2] = byte(bits >> 16)
			dst[o+3] = byte(bits >> 24)
		}
	}

	return n, nil
}

// quantize scales a sample to integer full scale, rounds to nearest, and
// clamps to [lo, hi].
func quantize(s, scale float64, lo, hi int64) int64 {
	v := int64(math.Round(s * scale))
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
