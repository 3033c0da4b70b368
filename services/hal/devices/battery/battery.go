// Package battery reads a cell voltage through a resistor divider on an
// ADC pin.
package battery

import (
	"sync"

	"voicehal/services/hal/internal/core"
	"voicehal/types"
	"voicehal/x/mathx"
)

const Owner = "battery"

// Config describes the divider and the usable voltage window.
type Config struct {
	Pin types.Pin
	// Cell voltage = pin voltage * DividerNum / DividerDen. Zero means 2/1.
	DividerNum, DividerDen  int32
	EmptyMilliV, FullMilliV int32 // default 3300 / 4200
	Samples                 int   // averaged per reading, default 4
}

type ADCOpener interface {
	ADC(pin types.Pin) (core.ADCHandle, error)
}

type Device struct {
	cfg  Config
	adc  core.ADCHandle
	pins core.PinClaimer

	mu sync.Mutex
}

func New(pins core.PinClaimer, open ADCOpener, cfg Config) (*Device, error) {
	if cfg.DividerNum <= 0 || cfg.DividerDen <= 0 {
		cfg.DividerNum, cfg.DividerDen = 2, 1
	}
	if cfg.EmptyMilliV == 0 {
		cfg.EmptyMilliV = 3300
	}
	if cfg.FullMilliV == 0 {
		cfg.FullMilliV = 4200
	}
	if cfg.Samples <= 0 {
		cfg.Samples = 4
	}
	if _, err := pins.ClaimPin(Owner, cfg.Pin); err != nil {
		return nil, err
	}
	adc, err := open.ADC(cfg.Pin)
	if err != nil {
		pins.ReleasePins(Owner, cfg.Pin)
		return nil, err
	}
	return &Device{cfg: cfg, adc: adc, pins: pins}, nil
}

// Read samples the ADC and converts to cell millivolts and a 0..100
// charge estimate.
func (d *Device) Read() (types.BatteryReading, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var sum int64
	for i := 0; i < d.cfg.Samples; i++ {
		mv, err := d.adc.ReadMilliV()
		if err != nil {
			return types.BatteryReading{}, err
		}
		sum += int64(mv)
	}
	pin := mathx.RoundDiv(sum, int64(d.cfg.Samples))
	cell := int32(mathx.RoundDiv(pin*int64(d.cfg.DividerNum), int64(d.cfg.DividerDen)))
	return types.BatteryReading{
		MilliV:     cell,
		Percentage: mathx.Percent(cell, d.cfg.EmptyMilliV, d.cfg.FullMilliV),
	}, nil
}

func (d *Device) Close() error {
	d.pins.ReleasePins(Owner, d.cfg.Pin)
	return nil
}
