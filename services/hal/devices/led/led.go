// Package led drives a single on/off status LED.
package led

import (
	"sync"

	"voicehal/services/hal/internal/core"
	"voicehal/types"
)

const Owner = "status_led"

type Device struct {
	pins core.PinClaimer
	pin  types.Pin
	gpio core.GPIOHandle
	inv  bool

	mu sync.Mutex
	on bool
}

// New claims pin and drives the LED off.
func New(pins core.PinClaimer, pin types.Pin, activeLow bool) (*Device, error) {
	g, err := pins.ClaimPin(Owner, pin)
	if err != nil {
		return nil, err
	}
	if err := g.ConfigureOutput(activeLow); err != nil {
		pins.ReleasePins(Owner, pin)
		return nil, err
	}
	return &Device{pins: pins, pin: pin, gpio: g, inv: activeLow}, nil
}

func (d *Device) Set(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gpio.Set(on != d.inv)
	d.on = on
}

func (d *Device) On() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.on
}

func (d *Device) Toggle() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.on = !d.on
	d.gpio.Set(d.on != d.inv)
}

func (d *Device) Close() error {
	d.Set(false)
	d.pins.ReleasePins(Owner, d.pin)
	return nil
}
