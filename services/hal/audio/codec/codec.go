// Package codec wraps the audio transport in one of a closed set of board
// variants, chosen once from the board descriptor.
package codec

import (
	"time"

	"voicehal/errcode"
	"voicehal/services/hal/audio/i2s"
	"voicehal/services/hal/internal/core"
	"voicehal/types"
	"voicehal/x/mathx"

	"github.com/rs/zerolog"
	"tinygo.org/x/drivers"
)

// DefaultVolume is the speaker volume after bring-up.
const DefaultVolume = 70

// Variant tags the concrete codec type.
type Variant uint8

const (
	VariantDuplex Variant = iota
	VariantSimplex
	VariantAmpGated
	VariantExternal
)

func (v Variant) String() string {
	switch v {
	case VariantDuplex:
		return "duplex"
	case VariantSimplex:
		return "simplex"
	case VariantAmpGated:
		return "amp_gated"
	case VariantExternal:
		return "external"
	}
	return "unknown"
}

// Codec is the capability contract shared by every variant.
type Codec interface {
	Name() string
	Variant() Variant
	Start() error
	Stop() error
	// Close stops the codec and releases pins it claimed.
	Close() error
	EnableOutput(on bool) error
	OutputEnabled() bool
	Transport() *i2s.Driver
	Output() (Output, error)
	Input() (Input, error)
}

// Output is the speaker path.
type Output interface {
	Write(f i2s.Frame, timeout time.Duration) (int, error)
	SetVolume(v int) error
	Volume() int
	SetMute(mute bool) error
	Muted() bool
}

// Input is the microphone path.
type Input interface {
	Read(timeout time.Duration) (i2s.Frame, error)
	SampleRate() uint32
}

// Spec is the audio section of a board descriptor.
type Spec struct {
	External  bool
	Transport i2s.Config

	AmpPin       types.Pin
	AmpActiveLow bool

	CodecAddr uint16
	Volume    *int // nil means DefaultVolume
}

// Deps are the resources a variant may need.
type Deps struct {
	Transport *i2s.Driver
	Pins      core.PinClaimer
	CodecBus  drivers.I2C // External only
	Log       zerolog.Logger
}

// AmpOwner is the pin owner name used for the amplifier gate.
const AmpOwner = "audio.amp"

// Select builds the variant the spec describes. Nothing is started.
func Select(spec Spec, deps Deps) (Codec, error) {
	if deps.Transport == nil {
		return nil, errcode.New(errcode.InvalidParams, "codec.select", "no transport")
	}
	vol := DefaultVolume
	if spec.Volume != nil {
		vol = mathx.Clamp(*spec.Volume, 0, 100)
	}

	var c Codec
	switch {
	case spec.External:
		if deps.CodecBus == nil {
			return nil, errcode.New(errcode.InvalidParams, "codec.select", "external codec without i2c bus")
		}
		c = newExternal(spec, deps, vol)
	case spec.Transport.Duplex:
		c = &Duplex{base: newBase("duplex", spec.Transport, deps, vol)}
	default:
		c = &Simplex{base: newBase("simplex", spec.Transport, deps, vol)}
	}

	if !spec.AmpPin.Valid() {
		return c, nil
	}
	if deps.Pins == nil {
		return nil, errcode.New(errcode.InvalidParams, "codec.select", "amplifier pin without claimer")
	}
	g, err := newGated(c, spec.AmpPin, spec.AmpActiveLow, deps)
	if err != nil {
		return nil, err
	}
	return g, nil
}
