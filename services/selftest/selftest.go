// Package selftest generates test tones and drives them through the audio
// output; it also measures microphone level for bring-up checks.
package selftest

import (
	"context"
	"math"
	"time"

	"voicehal/errcode"
	"voicehal/services/hal/audio/i2s"
	"voicehal/x/timex"

	"github.com/rs/zerolog"
)

// Amplitude is the peak of generated tones, one below full scale.
const Amplitude = 32766

// GenerateTone fills frame with a sine of freq Hz sampled at rate Hz.
// Phase restarts at zero for every frame.
func GenerateTone(freq float64, rate uint32, frame i2s.Frame) {
	if rate == 0 {
		clear(frame)
		return
	}
	w := 2 * math.Pi * freq / float64(rate)
	for i := range frame {
		frame[i] = int16(math.Round(Amplitude * math.Sin(w*float64(i))))
	}
}

// Writer accepts frames; codec.Output satisfies it.
type Writer interface {
	Write(f i2s.Frame, timeout time.Duration) (int, error)
}

// Reader yields frames; codec.Input satisfies it.
type Reader interface {
	Read(timeout time.Duration) (i2s.Frame, error)
}

type Step struct {
	Freq     float64
	Duration time.Duration
}

// DefaultSteps is the 440/880/1320 Hz sweep.
var DefaultSteps = []Step{
	{Freq: 440, Duration: 2 * time.Second},
	{Freq: 880, Duration: 2 * time.Second},
	{Freq: 1320, Duration: 2 * time.Second},
}

type StepReport struct {
	Freq    float64       `json:"freq_hz"`
	Frames  int           `json:"frames"`
	Bytes   int           `json:"bytes"`
	Errors  int           `json:"errors"`
	LastErr string        `json:"last_error,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
	Played  time.Duration `json:"played"` // audio time of the frames written
}

// Harness plays Steps through Out. Each step writes enough frames to cover
// its duration at Rate; the transport paces the writes.
type Harness struct {
	Out          Writer
	Rate         uint32
	FrameSamples int           // 0 means i2s.DefaultFrameSamples
	Steps        []Step        // nil means DefaultSteps
	Pause        time.Duration // between steps
	WriteTimeout time.Duration // 0 means one second
	Log          zerolog.Logger
}

// Run plays every step. Timeouts and busy writes are counted and skipped;
// any other write error stops the run.
func (h *Harness) Run(ctx context.Context) ([]StepReport, error) {
	n := h.FrameSamples
	if n <= 0 {
		n = i2s.DefaultFrameSamples
	}
	steps := h.Steps
	if steps == nil {
		steps = DefaultSteps
	}
	timeout := h.WriteTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	if h.Out == nil || h.Rate == 0 {
		return nil, errcode.New(errcode.InvalidParams, "selftest.run", "output and rate required")
	}

	frame := make(i2s.Frame, n)
	reports := make([]StepReport, 0, len(steps))
	for i, st := range steps {
		GenerateTone(st.Freq, h.Rate, frame)
		total := int((st.Duration.Seconds()*float64(h.Rate) + float64(n) - 1) / float64(n))
		rep := StepReport{Freq: st.Freq}
		start := time.Now()

		h.Log.Info().
			Float64("freq", st.Freq).
			Int("frames", total).
			Msg("Playing tone")
		for f := 0; f < total; f++ {
			if err := ctx.Err(); err != nil {
				rep.Elapsed = time.Since(start)
				return append(reports, rep), err
			}
			w, err := h.Out.Write(frame, timeout)
			rep.Bytes += w
			if err != nil {
				rep.Errors++
				rep.LastErr = err.Error()
				if c := errcode.Of(err); c != errcode.Timeout && c != errcode.Busy {
					rep.Elapsed = time.Since(start)
					return append(reports, rep), err
				}
				h.Log.Warn().Err(err).Msg("Write failed, retrying")
				continue
			}
			rep.Frames++
		}
		rep.Elapsed = time.Since(start)
		rep.Played = timex.FrameDuration(rep.Frames*n, h.Rate)
		reports = append(reports, rep)

		if h.Pause > 0 && i < len(steps)-1 {
			select {
			case <-time.After(h.Pause):
			case <-ctx.Done():
				return reports, ctx.Err()
			}
		}
	}
	return reports, nil
}

// Level summarises captured audio.
type Level struct {
	Samples int     `json:"samples"`
	Peak    int     `json:"peak"`
	RMS     float64 `json:"rms"`
	DBFS    float64 `json:"dbfs"` // RMS relative to full scale; -Inf for silence
}

// MeasureInput reads frames from in and reports peak and RMS level.
func MeasureInput(ctx context.Context, in Reader, frames int, timeout time.Duration) (Level, error) {
	var (
		lv    Level
		sumSq float64
	)
	for i := 0; i < frames; i++ {
		if err := ctx.Err(); err != nil {
			return lv, err
		}
		f, err := in.Read(timeout)
		if err != nil {
			return lv, err
		}
		for _, s := range f {
			v := int(s)
			if v < 0 {
				v = -v
			}
			if v > lv.Peak {
				lv.Peak = v
			}
			sumSq += float64(s) * float64(s)
		}
		lv.Samples += len(f)
	}
	if lv.Samples > 0 {
		lv.RMS = math.Sqrt(sumSq / float64(lv.Samples))
	}
	lv.DBFS = 20 * math.Log10(lv.RMS/32768)
	return lv, nil
}
