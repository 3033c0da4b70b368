package selftest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"voicehal/errcode"
	"voicehal/services/hal/audio/i2s"
)

func TestGenerateTone(t *testing.T) {
	f := make(i2s.Frame, 1024)
	GenerateTone(440, 16000, f)
	for _, i := range []int{0, 1, 9, 100, 1023} {
		want := int16(math.Round(32766 * math.Sin(2*math.Pi*440*float64(i)/16000)))
		if f[i] != want {
			t.Fatalf("sample %d = %d, want %d", i, f[i], want)
		}
	}
	// quarter period of 4 kHz at 16 kHz lands on the peak
	GenerateTone(4000, 16000, f)
	if f[1] != Amplitude || f[3] != -Amplitude {
		t.Fatalf("peaks %d %d", f[1], f[3])
	}
}

func TestTonePeriodAndPeak(t *testing.T) {
	cases := []struct {
		freq float64
		rate uint32
	}{
		{440, 16000}, {880, 16000}, {1320, 24000}, {1000, 8000}, {3000, 44100}, {100, 48000},
	}
	f := make(i2s.Frame, 8192)
	for _, c := range cases {
		GenerateTone(c.freq, c.rate, f)
		period := float64(c.rate) / c.freq
		want := int(math.Round(period))

		var rising []int
		peak := 0
		for i, v := range f {
			if i > 0 && f[i-1] < 0 && v >= 0 {
				rising = append(rising, i)
			}
			peak = max(peak, int(math.Abs(float64(v))))
		}
		if len(rising) < 2 {
			t.Fatalf("%v Hz @ %d: only %d rising crossings", c.freq, c.rate, len(rising))
		}
		for k := 1; k < len(rising); k++ {
			if gap := rising[k] - rising[k-1]; gap < want-1 || gap > want+1 {
				t.Fatalf("%v Hz @ %d: period %d samples, want %d±1", c.freq, c.rate, gap, want)
			}
		}
		if peak > math.MaxInt16 || peak < int(Amplitude*math.Cos(math.Pi/period)) {
			t.Fatalf("%v Hz @ %d: peak %d", c.freq, c.rate, peak)
		}
	}
}

func TestRunReportsPlayedTime(t *testing.T) {
	h := &Harness{Out: &fakeOut{}, Rate: 16000, FrameSamples: 160,
		Steps: []Step{{Freq: 440, Duration: 50 * time.Millisecond}}}
	reps, err := h.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if reps[0].Frames != 5 || reps[0].Played != 50*time.Millisecond {
		t.Fatalf("report %+v", reps[0])
	}
}

type fakeOut struct {
	writes int
	failAt map[int]error
}

func (o *fakeOut) Write(f i2s.Frame, _ time.Duration) (int, error) {
	o.writes++
	if err := o.failAt[o.writes]; err != nil {
		return 0, err
	}
	return len(f) * 2, nil
}

func TestRunSteps(t *testing.T) {
	out := &fakeOut{failAt: map[int]error{2: errcode.New(errcode.Timeout, "w", "dma")}}
	h := &Harness{Out: out, Rate: 16000, Steps: []Step{
		{Freq: 440, Duration: 256 * time.Millisecond}, // 4 frames
		{Freq: 880, Duration: 100 * time.Millisecond}, // 2 frames, rounded up
	}}
	reps, err := h.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(reps) != 2 {
		t.Fatalf("%d reports", len(reps))
	}
	if reps[0].Frames != 3 || reps[0].Errors != 1 || reps[0].Bytes != 3*2048 {
		t.Fatalf("step 0 %+v", reps[0])
	}
	if reps[1].Frames != 2 || reps[1].Freq != 880 {
		t.Fatalf("step 1 %+v", reps[1])
	}
}

func TestRunStopsOnHardError(t *testing.T) {
	boom := errors.New("port gone")
	h := &Harness{Out: &fakeOut{failAt: map[int]error{1: boom}}, Rate: 16000}
	reps, err := h.Run(context.Background())
	if !errors.Is(err, boom) || len(reps) != 1 || reps[0].Errors != 1 {
		t.Fatalf("reps %+v err %v", reps, err)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := &Harness{Out: &fakeOut{}, Rate: 16000}
	if _, err := h.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("want canceled, got %v", err)
	}
}

type fakeIn struct{ f i2s.Frame }

func (in fakeIn) Read(time.Duration) (i2s.Frame, error) { return in.f, nil }

func TestMeasureInput(t *testing.T) {
	f := make(i2s.Frame, 1024)
	GenerateTone(4000, 16000, f)
	lv, err := MeasureInput(context.Background(), fakeIn{f}, 3, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if lv.Samples != 3072 || lv.Peak != Amplitude {
		t.Fatalf("level %+v", lv)
	}
	// samples alternate 0, A, 0, -A: RMS is A/sqrt(2)
	if want := Amplitude / math.Sqrt2; math.Abs(lv.RMS-want) > 1 {
		t.Fatalf("rms %.1f, want %.1f", lv.RMS, want)
	}

	silent, _ := MeasureInput(context.Background(), fakeIn{make(i2s.Frame, 8)}, 1, time.Second)
	if silent.Peak != 0 || !math.IsInf(silent.DBFS, -1) {
		t.Fatalf("silence %+v", silent)
	}
}
