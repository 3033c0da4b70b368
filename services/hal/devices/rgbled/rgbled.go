// Package rgbled drives an addressable RGB indicator. Every pixel shows the
// same colour.
package rgbled

import (
	"sync"

	"voicehal/services/hal/internal/core"
	"voicehal/types"
)

const Owner = "rgb_indicator"

// Opener opens a pixel strip on a claimed pin.
type Opener interface {
	Pixels(pin types.Pin, count int) (core.PixelStrip, error)
}

type Device struct {
	pins  core.PinClaimer
	pin   types.Pin
	strip core.PixelStrip

	mu    sync.Mutex
	color types.RGB
	buf   []types.RGB
}

// New claims pin, opens count pixels and blanks them.
func New(pins core.PinClaimer, open Opener, pin types.Pin, count int) (*Device, error) {
	if count <= 0 {
		count = 1
	}
	if _, err := pins.ClaimPin(Owner, pin); err != nil {
		return nil, err
	}
	strip, err := open.Pixels(pin, count)
	if err != nil {
		pins.ReleasePins(Owner, pin)
		return nil, err
	}
	d := &Device{pins: pins, pin: pin, strip: strip, buf: make([]types.RGB, count)}
	if err := d.SetColor(types.RGB{}); err != nil {
		pins.ReleasePins(Owner, pin)
		return nil, err
	}
	return d, nil
}

// SetColor shows c. The stored colour only changes if the write succeeds.
func (d *Device) SetColor(c types.RGB) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.buf {
		d.buf[i] = c
	}
	if err := d.strip.WriteColors(d.buf); err != nil {
		return err
	}
	d.color = c
	return nil
}

// Color returns the colour currently shown.
func (d *Device) Color() types.RGB {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.color
}

func (d *Device) Close() error {
	err := d.SetColor(types.RGB{})
	d.pins.ReleasePins(Owner, d.pin)
	return err
}
