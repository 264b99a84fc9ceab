package dynamics

import (
	"bytes"
	"errors"
	"testing"

	"github.com/cwbudde/algo-loudnorm/internal/testutil"
	"github.com/cwbudde/algo-loudnorm/pcm"
)

func encodeSine(t *testing.T, format pcm.Format, frames, channels int, amplitude float64) []byte {
	t.Helper()

	samples := testutil.InterleavedSine(1000, 48000, amplitude, frames, channels)

	out := make([]byte, len(samples)*format.BytesPerSample())
	if _, err := pcm.Encode(out, samples, format); err != nil {
		t.Fatalf("pcm.Encode() error = %v", err)
	}

	return out
}

func TestProcessBytesPassThroughRoundTrip(t *testing.T) {
	src := encodeSine(t, pcm.S16LE, 200, 2, 0.25)

	n, err := NewNormalizer(48000, 2)
	if err != nil {
		t.Fatalf("NewNormalizer() error = %v", err)
	}

	dst := make([]byte, len(src))

	wrote, err := n.ProcessBytes(dst, src, pcm.S16LE)
	if err != nil {
		t.Fatalf("ProcessBytes() error = %v", err)
	}

	if wrote != len(src) {
		t.Fatalf("wrote %d bytes, want %d", wrote, len(src))
	}

	// Quantized values survive decode, unity gain, and re-encode exactly.
	if !bytes.Equal(dst, src) {
		t.Errorf("pass-through altered the byte stream")
	}
}

func TestProcessBytesChunkInvariance(t *testing.T) {
	src := encodeSine(t, pcm.S16LE, 200, 2, 0.25)

	whole, err := NewNormalizer(48000, 2)
	if err != nil {
		t.Fatalf("NewNormalizer() error = %v", err)
	}

	if err := whole.SetRampTime(0); err != nil {
		t.Fatalf("SetRampTime() error = %v", err)
	}

	if err := whole.SetTargetGain(1.5); err != nil {
		t.Fatalf("SetTargetGain() error = %v", err)
	}

	want := make([]byte, len(src))

	wrote, err := whole.ProcessBytes(want, src, pcm.S16LE)
	if err != nil {
		t.Fatalf("ProcessBytes() error = %v", err)
	}

	want = want[:wrote]

	// 7-byte chunks split every frame across call boundaries.
	chunked, err := NewNormalizer(48000, 2)
	if err != nil {
		t.Fatalf("NewNormalizer() error = %v", err)
	}

	if err := chunked.SetRampTime(0); err != nil {
		t.Fatalf("SetRampTime() error = %v", err)
	}

	if err := chunked.SetTargetGain(1.5); err != nil {
		t.Fatalf("SetTargetGain() error = %v", err)
	}

	var got []byte

	scratch := make([]byte, len(src)+8)
	for start := 0; start < len(src); start += 7 {
		end := min(start+7, len(src))

		m, err := chunked.ProcessBytes(scratch, src[start:end], pcm.S16LE)
		if err != nil {
			t.Fatalf("ProcessBytes() error = %v", err)
		}

		got = append(got, scratch[:m]...)
	}

	if len(got) != len(want) {
		t.Fatalf("chunked output %d bytes, want %d", len(got), len(want))
	}

	if !bytes.Equal(got, want) {
		t.Errorf("chunked output differs from whole-buffer output")
	}
}

func TestProcessBytesAppliesGain(t *testing.T) {
	n, err := NewNormalizer(48000, 1)
	if err != nil {
		t.Fatalf("NewNormalizer() error = %v", err)
	}

	if err := n.SetRampTime(0); err != nil {
		t.Fatalf("SetRampTime() error = %v", err)
	}

	if err := n.SetTargetGain(2); err != nil {
		t.Fatalf("SetTargetGain() error = %v", err)
	}

	src := []byte{0xE8, 0x03, 0x18, 0xFC} // 1000, -1000
	dst := make([]byte, len(src))

	wrote, err := n.ProcessBytes(dst, src, pcm.S16LE)
	if err != nil {
		t.Fatalf("ProcessBytes() error = %v", err)
	}

	want := []byte{0xD0, 0x07, 0x30, 0xF8} // 2000, -2000
	if wrote != len(want) || !bytes.Equal(dst[:wrote], want) {
		t.Errorf("ProcessBytes() = % X, want % X", dst[:wrote], want)
	}
}

func TestProcessBytesFloatFormat(t *testing.T) {
	n, err := NewNormalizer(48000, 1)
	if err != nil {
		t.Fatalf("NewNormalizer() error = %v", err)
	}

	if err := n.SetRampTime(0); err != nil {
		t.Fatalf("SetRampTime() error = %v", err)
	}

	if err := n.SetTargetGain(0.5); err != nil {
		t.Fatalf("SetTargetGain() error = %v", err)
	}

	src := make([]byte, 4)
	if _, err := pcm.Encode(src, []float64{0.5}, pcm.F32LE); err != nil {
		t.Fatalf("pcm.Encode() error = %v", err)
	}

	dst := make([]byte, 4)
	if _, err := n.ProcessBytes(dst, src, pcm.F32LE); err != nil {
		t.Fatalf("ProcessBytes() error = %v", err)
	}

	got := make([]float64, 1)
	if _, err := pcm.Decode(got, dst, pcm.F32LE); err != nil {
		t.Fatalf("pcm.Decode() error = %v", err)
	}

	if got[0] != 0.25 {
		t.Errorf("halved sample = %v, want 0.25", got[0])
	}
}

func TestProcessBytesUnsupportedFormat(t *testing.T) {
	n, err := NewNormalizer(48000, 2)
	if err != nil {
		t.Fatalf("NewNormalizer() error = %v", err)
	}

	if err := n.SetTargetGain(2); err != nil {
		t.Fatalf("SetTargetGain() error = %v", err)
	}

	src := []byte{1, 2, 3, 4, 5, 6}
	dst := make([]byte, len(src))

	wrote, err := n.ProcessBytes(dst, src, pcm.Format(99))
	if !errors.Is(err, pcm.ErrUnsupportedFormat) {
		t.Fatalf("ProcessBytes() error = %v, want ErrUnsupportedFormat", err)
	}

	if wrote != len(src) || !bytes.Equal(dst, src) {
		t.Errorf("pass-through copy = % X (%d bytes), want verbatim src", dst[:wrote], wrote)
	}
}

func TestProcessBytesEmptyChunk(t *testing.T) {
	n, err := NewNormalizer(48000, 2)
	if err != nil {
		t.Fatalf("NewNormalizer() error = %v", err)
	}

	wrote, err := n.ProcessBytes(nil, nil, pcm.S16LE)
	if err != nil {
		t.Fatalf("ProcessBytes() error = %v", err)
	}

	if wrote != 0 {
		t.Errorf("wrote %d bytes for an empty chunk", wrote)
	}
}

func TestProcessBytesShortDst(t *testing.T) {
	n, err := NewNormalizer(48000, 1)
	if err != nil {
		t.Fatalf("NewNormalizer() error = %v", err)
	}

	src := encodeSine(t, pcm.S16LE, 4, 1, 0.25)

	if _, err := n.ProcessBytes(make([]byte, 2), src, pcm.S16LE); err == nil {
		t.Fatalf("ProcessBytes() with short dst succeeded, want error")
	}

	// The failed call must not have consumed anything.
	dst := make([]byte, len(src))

	wrote, err := n.ProcessBytes(dst, src, pcm.S16LE)
	if err != nil {
		t.Fatalf("ProcessBytes() retry error = %v", err)
	}

	if wrote != len(src) || !bytes.Equal(dst, src) {
		t.Errorf("retry after short dst lost data")
	}
}

func TestProcessBytesFlushDropsPartialFrame(t *testing.T) {
	n, err := NewNormalizer(48000, 2)
	if err != nil {
		t.Fatalf("NewNormalizer() error = %v", err)
	}

	src := encodeSine(t, pcm.S16LE, 2, 2, 0.25)
	dst := make([]byte, len(src))

	// Feed all but the last byte: one frame emitted, three bytes pending.
	wrote, err := n.ProcessBytes(dst, src[:len(src)-1], pcm.S16LE)
	if err != nil {
		t.Fatalf("ProcessBytes() error = %v", err)
	}

	if wrote != 4 {
		t.Fatalf("wrote %d bytes, want 4 with a pending partial frame", wrote)
	}

	n.Flush()

	// After a seek the stale partial frame must not prefix the new data.
	wrote, err = n.ProcessBytes(dst, src, pcm.S16LE)
	if err != nil {
		t.Fatalf("ProcessBytes() error = %v", err)
	}

	if wrote != len(src) || !bytes.Equal(dst[:wrote], src) {
		t.Errorf("post-Flush output corrupted by stale carry")
	}
}
