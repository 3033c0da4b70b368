//go:build !board_xiao_sense && !board_max98357_test && !board_es8311_dev

package setups

import (
	"time"

	"voicehal/services/hal"
	"voicehal/services/hal/audio/i2s"
	"voicehal/types"
)

// Selected is the host demo board: full-duplex audio behind a gated
// amplifier with every indicator wired to simulated pins.
var Selected = hal.Descriptor{
	Name: "host-demo",
	Audio: hal.AudioDesc{
		Duplex:   true,
		RateIn:   16000,
		RateOut:  16000,
		BitDepth: 16,
		Pins:     i2s.Pins{MCLK: nc, BCLK: 2, WS: 3, DIn: 4, DOut: 5},
		Amp:      true,
		AmpPin:   6,
	},
	I2C: []hal.I2CBusDesc{
		{ID: "i2c0", SDA: 8, SCL: 9, Hz: 400_000},
	},
	Buttons: []hal.ButtonDesc{
		{Kind: types.ButtonBoot, Pin: 0, ActiveLow: true, Debounce: 20 * time.Millisecond},
		{Kind: types.ButtonVolumeUp, Pin: 10, ActiveLow: true},
		{Kind: types.ButtonVolumeDown, Pin: 11, ActiveLow: true},
	},
	RGB:       hal.RGBDesc{Present: true, Pin: 20, Count: 1},
	StatusLED: hal.StatusLEDDesc{Present: true, Pin: 21},
	Battery:   hal.BatteryDesc{Present: true, Pin: 22, DividerNum: 2, DividerDen: 1},
	Display:   hal.DisplayDesc{Present: true, Backlight: 23, Width: 240, Height: 240},
}
