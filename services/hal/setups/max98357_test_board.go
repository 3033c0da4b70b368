//go:build board_max98357_test

package setups

import (
	"voicehal/services/hal"
	"voicehal/services/hal/audio/i2s"
	"voicehal/types"
)

// Selected is the bare amplifier test rig: output only, 44.1 kHz, no
// enable line.
var Selected = hal.Descriptor{
	Name: "max98357-test",
	Audio: hal.AudioDesc{
		RateIn:   44100,
		RateOut:  44100,
		BitDepth: 16,
		Pins:     i2s.Pins{MCLK: nc, BCLK: 8, WS: 6, DIn: nc, DOut: 5},
		AmpPin:   nc,
	},
	Buttons: []hal.ButtonDesc{
		{Kind: types.ButtonBoot, Pin: 0, ActiveLow: true},
	},
}
