//go:build board_xiao_sense

package setups

import (
	"voicehal/services/hal"
	"voicehal/services/hal/audio/i2s"
	"voicehal/types"
)

// Selected is the Seeed XIAO ESP32S3 Sense with a MAX98357A on the shared
// I2S data line. The amplifier SD pin gates output.
var Selected = hal.Descriptor{
	Name: "seeed-xiao-esp32s3-sense",
	Audio: hal.AudioDesc{
		Duplex:   true,
		RateIn:   16000,
		RateOut:  24000,
		BitDepth: 16,
		// DIN and DOUT share GPIO6.
		Pins:   i2s.Pins{MCLK: nc, BCLK: 5, WS: 4, DIn: 6, DOut: 6},
		Amp:    true,
		AmpPin: 7,
	},
	I2C: []hal.I2CBusDesc{
		{ID: "i2c0", SDA: 2, SCL: 3, Hz: 100_000},
	},
	Buttons: []hal.ButtonDesc{
		{Kind: types.ButtonBoot, Pin: 1, ActiveLow: true},
	},
	Camera: hal.CameraDesc{
		Present: true,
		Pins: types.CameraPins{
			PWDN: 15, Reset: 16, XCLK: 14, SIOD: 17, SIOC: 18,
			D:     [8]types.Pin{46, 45, 42, 41, 40, 39, 20, 19}, // D0..D7
			VSync: 47, HRef: 38, PCLK: 37,
		},
	},
	RGB:       hal.RGBDesc{Present: true, Pin: 48, Count: 1},
	StatusLED: hal.StatusLEDDesc{Present: true, Pin: 21},
	Battery:   hal.BatteryDesc{Present: true, Pin: 44, DividerNum: 2, DividerDen: 1},
}
