package codec

import (
	"sync"
	"time"

	"voicehal/errcode"
	"voicehal/services/hal/audio/i2s"
	"voicehal/x/mathx"

	"github.com/rs/zerolog"
)

// base is the no-codec transport holder shared by Duplex and Simplex.
type base struct {
	name string
	cfg  i2s.Config
	tr   *i2s.Driver
	log  zerolog.Logger

	out *softOutput
	in  *input
}

func newBase(name string, cfg i2s.Config, deps Deps, vol int) base {
	b := base{name: name, cfg: cfg, tr: deps.Transport, log: deps.Log}
	if cfg.HasOutput() {
		b.out = &softOutput{tr: deps.Transport, volume: mathx.Clamp(vol, 0, 100)}
	}
	if cfg.HasInput() {
		b.in = &input{tr: deps.Transport, rate: cfg.RateIn}
	}
	return b
}

func (b *base) Name() string           { return b.name }
func (b *base) Transport() *i2s.Driver { return b.tr }
func (b *base) Start() error           { return b.tr.Configure(b.cfg) }
func (b *base) Stop() error            { return b.tr.Teardown() }
func (b *base) Close() error           { return b.Stop() }

// No enable line: output is live whenever it exists.
func (b *base) EnableOutput(bool) error {
	if b.out == nil {
		return errcode.New(errcode.CapabilityAbsent, "codec.enable_output", b.name+" has no output")
	}
	return nil
}
func (b *base) OutputEnabled() bool { return b.out != nil }

func (b *base) Output() (Output, error) {
	if b.out == nil {
		return nil, errcode.New(errcode.CapabilityAbsent, "codec.output", b.name+" has no output")
	}
	return b.out, nil
}

func (b *base) Input() (Input, error) {
	if b.in == nil {
		return nil, errcode.New(errcode.CapabilityAbsent, "codec.input", b.name+" has no input")
	}
	return b.in, nil
}

// Duplex drives both directions over one transport.
type Duplex struct{ base }

func (*Duplex) Variant() Variant { return VariantDuplex }

// Simplex drives one direction; the other accessor reports absence.
type Simplex struct{ base }

func (*Simplex) Variant() Variant { return VariantSimplex }

// softOutput applies volume and mute in software before the transport.
type softOutput struct {
	tr *i2s.Driver

	mu     sync.Mutex
	volume int
	muted  bool

	wmu     sync.Mutex // guards scratch
	scratch i2s.Frame
}

func (o *softOutput) Write(f i2s.Frame, timeout time.Duration) (int, error) {
	o.mu.Lock()
	vol, muted := o.volume, o.muted
	o.mu.Unlock()
	if vol == 100 && !muted {
		return o.tr.Write(f, timeout)
	}
	if len(f) == 0 {
		return o.tr.Write(f, timeout)
	}

	if !o.wmu.TryLock() {
		return 0, errcode.New(errcode.Busy, "speaker.write", "concurrent write")
	}
	defer o.wmu.Unlock()
	if cap(o.scratch) < len(f) {
		o.scratch = make(i2s.Frame, len(f))
	}
	s := o.scratch[:len(f)]
	if muted {
		clear(s)
	} else {
		for i, v := range f {
			s[i] = int16(int32(v) * int32(vol) / 100)
		}
	}
	return o.tr.Write(s, timeout)
}

func (o *softOutput) SetVolume(v int) error {
	o.mu.Lock()
	o.volume = mathx.Clamp(v, 0, 100)
	o.mu.Unlock()
	return nil
}

func (o *softOutput) Volume() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

func (o *softOutput) SetMute(m bool) error {
	o.mu.Lock()
	o.muted = m
	o.mu.Unlock()
	return nil
}

func (o *softOutput) Muted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.muted
}

type input struct {
	tr   *i2s.Driver
	rate uint32
}

func (in *input) Read(timeout time.Duration) (i2s.Frame, error) { return in.tr.Read(timeout) }
func (in *input) SampleRate() uint32                            { return in.rate }
