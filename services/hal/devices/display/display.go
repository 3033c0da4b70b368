// Package display controls the panel backlight. Rendering is not handled
// here.
package display

import (
	"sync"

	"voicehal/services/hal/internal/core"
	"voicehal/types"
)

const Owner = "display"

type Config struct {
	Backlight     types.Pin
	Invert        bool
	Width, Height int
}

type Device struct {
	cfg  Config
	pins core.PinClaimer
	gpio core.GPIOHandle

	mu sync.Mutex
	on bool
}

// New claims the backlight pin and leaves the backlight off.
func New(pins core.PinClaimer, cfg Config) (*Device, error) {
	g, err := pins.ClaimPin(Owner, cfg.Backlight)
	if err != nil {
		return nil, err
	}
	if err := g.ConfigureOutput(cfg.Invert); err != nil {
		pins.ReleasePins(Owner, cfg.Backlight)
		return nil, err
	}
	return &Device{cfg: cfg, pins: pins, gpio: g}, nil
}

func (d *Device) Size() (w, h int) { return d.cfg.Width, d.cfg.Height }

func (d *Device) SetBacklight(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gpio.Set(on != d.cfg.Invert)
	d.on = on
}

func (d *Device) Backlight() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.on
}

func (d *Device) Close() error {
	d.SetBacklight(false)
	d.pins.ReleasePins(Owner, d.cfg.Backlight)
	return nil
}
