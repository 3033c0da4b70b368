//go:build board_es8311_dev

package setups

import (
	"voicehal/services/hal"
	"voicehal/services/hal/audio/i2s"
	"voicehal/types"
)

// Selected is the ES8311 development board: full duplex through the
// external codec, PA enable on GPIO 46 and an SPI panel.
var Selected = hal.Descriptor{
	Name: "es8311-dev",
	Audio: hal.AudioDesc{
		Codec:     hal.CodecExternal,
		Duplex:    true,
		RateIn:    16000,
		RateOut:   16000,
		BitDepth:  16,
		Pins:      i2s.Pins{MCLK: 38, BCLK: 14, WS: 13, DIn: 12, DOut: 45},
		Amp:       true,
		AmpPin:    46,
		CodecBus:  "i2c0",
		CodecAddr: 0x18,
		Volume:    volume(60),
	},
	I2C: []hal.I2CBusDesc{
		{ID: "i2c0", SDA: 1, SCL: 2, Hz: 100_000},
	},
	SPI: []hal.SPIBusDesc{
		{ID: "spi0", SCK: 8, MOSI: 9, MISO: nc, CS: 11, Hz: 40_000_000},
	},
	Buttons: []hal.ButtonDesc{
		{Kind: types.ButtonBoot, Pin: 0, ActiveLow: true},
		{Kind: types.ButtonVolumeUp, Pin: 40, ActiveLow: true},
		{Kind: types.ButtonVolumeDown, Pin: 39, ActiveLow: true},
	},
	StatusLED: hal.StatusLEDDesc{Present: true, Pin: 21},
	Display:   hal.DisplayDesc{Present: true, Backlight: 47, Width: 240, Height: 240},
}
