package types

// ------------------------
// Capability kinds
// ------------------------

type Kind string

const (
	KindAudio        Kind = "audio"
	KindButton       Kind = "button"
	KindDisplay      Kind = "display"
	KindCamera       Kind = "camera"
	KindRGBIndicator Kind = "rgb_indicator"
	KindStatusLED    Kind = "status_led"
	KindBattery      Kind = "battery"
)

// ButtonKind names the physical buttons a board may carry.
type ButtonKind string

const (
	ButtonBoot       ButtonKind = "boot"
	ButtonVolumeUp   ButtonKind = "volume_up"
	ButtonVolumeDown ButtonKind = "volume_down"
)

// ------------------------
// Pins
// ------------------------

// Pin is a board GPIO number. NC marks a function that is not wired.
type Pin int16

const NC Pin = -1

// Valid reports whether p names a real pin.
func (p Pin) Valid() bool { return p >= 0 }

// CameraPins is the parallel DVP camera wiring. SIOD/SIOC carry the sensor's
// SCCB control bus.
type CameraPins struct {
	PWDN, Reset       Pin
	XCLK              Pin
	SIOD, SIOC        Pin
	D                 [8]Pin
	VSync, HRef, PCLK Pin
}

// All lists every wired camera pin.
func (c CameraPins) All() []Pin {
	out := make([]Pin, 0, 16)
	for _, p := range []Pin{c.PWDN, c.Reset, c.XCLK, c.SIOD, c.SIOC, c.VSync, c.HRef, c.PCLK} {
		if p.Valid() {
			out = append(out, p)
		}
	}
	for _, p := range c.D {
		if p.Valid() {
			out = append(out, p)
		}
	}
	return out
}

// Complete reports whether the pins needed to stream frames are all wired.
func (c CameraPins) Complete() bool {
	for _, p := range []Pin{c.XCLK, c.SIOD, c.SIOC, c.VSync, c.HRef, c.PCLK} {
		if !p.Valid() {
			return false
		}
	}
	for _, p := range c.D {
		if !p.Valid() {
			return false
		}
	}
	return true
}
