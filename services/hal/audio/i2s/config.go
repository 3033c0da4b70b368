package i2s

import (
	"slices"

	"voicehal/errcode"
	"voicehal/services/hal/internal/core"
	"voicehal/types"
)

const (
	DefaultFrameSamples = 1024
	MaxFrameSamples     = 4096
)

// SupportedRates lists the sample rates the transport accepts.
var SupportedRates = []uint32{8000, 11025, 16000, 22050, 24000, 32000, 44100, 48000}

// Pins names the transport pin roles. Unwired roles are types.NC.
type Pins struct {
	MCLK, BCLK, WS types.Pin
	DIn, DOut      types.Pin
}

// Config is one transport configuration. Zero FrameSamples means
// DefaultFrameSamples.
type Config struct {
	RateIn, RateOut uint32
	BitDepth        uint8
	Duplex          bool
	FrameSamples    int
	Pins            Pins
}

// Frame is one transport buffer of signed 16-bit samples.
type Frame []int16

// Wiring is how the data pins are connected.
type Wiring uint8

const (
	WiringNone Wiring = iota
	WiringOutputOnly
	WiringInputOnly
	WiringHalfDuplex // DIn == DOut
	WiringFullDuplex
)

func (w Wiring) String() string {
	switch w {
	case WiringOutputOnly:
		return "output_only"
	case WiringInputOnly:
		return "input_only"
	case WiringHalfDuplex:
		return "half_duplex"
	case WiringFullDuplex:
		return "full_duplex"
	}
	return "none"
}

// Wiring derives the data-pin topology from which roles are NC.
func (p Pins) Wiring() Wiring {
	in, out := p.DIn.Valid(), p.DOut.Valid()
	switch {
	case in && out && p.DIn == p.DOut:
		return WiringHalfDuplex
	case in && out:
		return WiringFullDuplex
	case out:
		return WiringOutputOnly
	case in:
		return WiringInputOnly
	}
	return WiringNone
}

func (c Config) withDefaults() Config {
	if c.FrameSamples == 0 {
		c.FrameSamples = DefaultFrameSamples
	}
	return c
}

// HasOutput reports whether the configuration drives a speaker path.
func (c Config) HasOutput() bool { return c.Pins.DOut.Valid() }

// HasInput reports whether the configuration captures audio.
func (c Config) HasInput() bool { return c.Pins.DIn.Valid() }

// WireRate is the BCLK/WS rate: the output rate when an output exists.
func (c Config) WireRate() uint32 {
	if c.HasOutput() {
		return c.RateOut
	}
	return c.RateIn
}

// Resampled reports whether captured audio is rate-converted to RateIn.
func (c Config) Resampled() bool {
	return c.HasInput() && c.HasOutput() && c.RateIn != c.RateOut
}

// BytesPerSample on the wire.
func (c Config) BytesPerSample() int { return int(c.BitDepth / 8) }

func (c Config) validate() error {
	const op = "i2s.configure"
	switch c.BitDepth {
	case 16, 32:
	default:
		return errcode.New(errcode.InvalidParams, op, "bit depth must be 16 or 32")
	}
	if !c.Pins.BCLK.Valid() || !c.Pins.WS.Valid() {
		return errcode.New(errcode.InvalidParams, op, "bclk and ws required")
	}
	w := c.Pins.Wiring()
	switch {
	case w == WiringNone:
		return errcode.New(errcode.InvalidParams, op, "no data pin")
	case c.Duplex && (w == WiringOutputOnly || w == WiringInputOnly):
		return errcode.New(errcode.InvalidParams, op, "duplex needs din and dout")
	case !c.Duplex && (w == WiringHalfDuplex || w == WiringFullDuplex):
		return errcode.New(errcode.InvalidParams, op, "simplex with both data pins")
	}
	if c.FrameSamples < 0 || c.FrameSamples > MaxFrameSamples {
		return errcode.New(errcode.InvalidParams, op, "frame size out of range")
	}
	if c.HasOutput() && !slices.Contains(SupportedRates, c.RateOut) {
		return errcode.New(errcode.UnsupportedRate, op, "output rate")
	}
	if c.HasInput() && !slices.Contains(SupportedRates, c.RateIn) {
		return errcode.New(errcode.UnsupportedRate, op, "input rate")
	}
	return nil
}

func (c Config) wire() core.I2SConfig {
	var dirs core.Dir
	if c.HasOutput() {
		dirs |= core.DirOut
	}
	if c.HasInput() {
		dirs |= core.DirIn
	}
	return core.I2SConfig{
		MCLK:      c.Pins.MCLK,
		BCLK:      c.Pins.BCLK,
		WS:        c.Pins.WS,
		SDI:       c.Pins.DIn,
		SDO:       c.Pins.DOut,
		Rate:      c.WireRate(),
		BitDepth:  c.BitDepth,
		Dirs:      dirs,
		DMABufLen: c.FrameSamples,
	}
}
