package i2s

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// inputResampler converts captured wire-rate audio to the input rate and
// buffers output between reads.
type inputResampler struct {
	from, to uint32
	rs       resampling.Resampler
	in       []float64
	pending  []int16
}

func newInputResampler(from, to uint32) (*inputResampler, error) {
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(from),
		OutputRate: float64(to),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("resampler %d->%d: %w", from, to, err)
	}
	return &inputResampler{from: from, to: to, rs: rs}, nil
}

// rawFor is how many wire samples yield about n output samples.
func (r *inputResampler) rawFor(n int) int {
	return int((uint64(n)*uint64(r.from) + uint64(r.to) - 1) / uint64(r.to))
}

func (r *inputResampler) ready(n int) bool { return len(r.pending) >= n }

func (r *inputResampler) push(raw Frame) error {
	r.in = r.in[:0]
	for _, v := range raw {
		r.in = append(r.in, float64(v)/32768.0)
	}
	out, err := r.rs.Process(r.in)
	if err != nil {
		return err
	}
	for _, s := range out {
		switch {
		case s >= 1.0:
			r.pending = append(r.pending, 32767)
		case s <= -1.0:
			r.pending = append(r.pending, -32768)
		default:
			r.pending = append(r.pending, int16(s*32767.0))
		}
	}
	return nil
}

func (r *inputResampler) pop(dst Frame) {
	n := copy(dst, r.pending)
	r.pending = append(r.pending[:0], r.pending[n:]...)
}
