package codec

import (
	"sync"

	"voicehal/errcode"
	"voicehal/services/hal/audio/i2s"
	"voicehal/services/hal/internal/core"
	"voicehal/types"

	"github.com/rs/zerolog"
)

// Gated puts an amplifier enable line in front of another variant. The
// line starts disabled; audio written before EnableOutput(true) is dropped
// by the amplifier.
type Gated struct {
	inner Codec
	pins  core.PinClaimer
	pinN  types.Pin
	gpio  core.GPIOHandle
	inv   bool
	log   zerolog.Logger

	mu      sync.Mutex
	enabled bool
}

func newGated(inner Codec, pin types.Pin, activeLow bool, deps Deps) (*Gated, error) {
	g, err := deps.Pins.ClaimPin(AmpOwner, pin)
	if err != nil {
		return nil, err
	}
	if err := g.ConfigureOutput(activeLow); err != nil {
		deps.Pins.ReleasePins(AmpOwner, pin)
		return nil, err
	}
	return &Gated{inner: inner, pins: deps.Pins, pinN: pin, gpio: g, inv: activeLow, log: deps.Log}, nil
}

func (g *Gated) Name() string           { return "amp_gated(" + g.inner.Name() + ")" }
func (g *Gated) Variant() Variant       { return VariantAmpGated }
func (g *Gated) Transport() *i2s.Driver { return g.inner.Transport() }

// Start brings up the inner variant. On failure the amplifier is forced
// off.
func (g *Gated) Start() error {
	if err := g.inner.Start(); err != nil {
		g.set(false)
		return err
	}
	return nil
}

// Stop silences the amplifier before the transport goes away.
func (g *Gated) Stop() error {
	g.set(false)
	return g.inner.Stop()
}

func (g *Gated) Close() error {
	err := g.Stop()
	g.pins.ReleasePins(AmpOwner, g.pinN)
	return err
}

func (g *Gated) EnableOutput(on bool) error {
	if _, err := g.inner.Output(); err != nil {
		return err
	}
	if on {
		if _, ok := g.Transport().Config(); !ok {
			return errcode.New(errcode.NotConfigured, "codec.enable_output", "transport not started")
		}
	}
	g.set(on)
	return nil
}

func (g *Gated) OutputEnabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled
}

func (g *Gated) Output() (Output, error) { return g.inner.Output() }
func (g *Gated) Input() (Input, error)   { return g.inner.Input() }

func (g *Gated) set(on bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gpio.Set(on != g.inv)
	if g.enabled != on {
		g.log.Debug().Bool("on", on).Msg("Amplifier gate")
	}
	g.enabled = on
}
