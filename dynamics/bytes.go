package dynamics

import (
	"fmt"

	"github.com/cwbudde/algo-loudnorm/pcm"
)

// ProcessBytes applies gain and limiting to a raw PCM chunk and writes the
// processed bytes to dst, returning the number of bytes written. Chunks may
// split frames at arbitrary byte offsets: a trailing partial frame is
// carried into the next call, so output can lag input by up to one frame.
// dst needs room for the carried frame plus every whole frame in src.
//
// An unrecognized format degrades to a verbatim copy of src into dst and
// reports pcm.ErrUnsupportedFormat, keeping playback alive without
// normalization.
func (n *Normalizer) ProcessBytes(dst, src []byte, format pcm.Format) (int, error) {
	if !format.Valid() {
		return copy(dst, src), pcm.ErrUnsupportedFormat
	}

	if len(src) == 0 {
		return 0, nil
	}

	frameBytes := pcm.FrameBytes(format, n.channels)

	head := 0
	if len(n.pending) > 0 {
		head = min(frameBytes-len(n.pending), len(src))
	}

	completes := len(n.pending) > 0 && len(n.pending)+head == frameBytes

	whole := (len(src) - head) / frameBytes * frameBytes

	need := whole
	if completes {
		need += frameBytes
	}

	if len(dst) < need {
		return 0, fmt.Errorf("normalizer output buffer too small: %d < %d", len(dst), need)
	}

	wrote := 0

	if len(n.pending) > 0 {
		n.pending = append(n.pending, src[:head]...)
		src = src[head:]

		if !completes {
			return 0, nil
		}

		if _, err := pcm.Decode(n.frame, n.pending, format); err != nil {
			return 0, err
		}

		n.ProcessInPlace(n.frame)

		if _, err := pcm.Encode(dst, n.frame, format); err != nil {
			return 0, err
		}

		wrote = frameBytes
		n.pending = n.pending[:0]
	}

	if whole > 0 {
		scratch := n.pool.Get(whole / format.BytesPerSample())

		if _, err := pcm.Decode(scratch.Samples(), src[:whole], format); err != nil {
			n.pool.Put(scratch)
			return wrote, err
		}

		n.ProcessInPlace(scratch.Samples())

		if _, err := pcm.Encode(dst[wrote:wrote+whole], scratch.Samples(), format); err != nil {
			n.pool.Put(scratch)
			return wrote, err
		}

		n.pool.Put(scratch)

		wrote += whole
	}

	n.pending = append(n.pending, src[whole:]...)

	return wrote, nil
}
