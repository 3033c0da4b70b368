package hal

import (
	"fmt"
	"time"

	"voicehal/errcode"
	"voicehal/services/hal/audio/i2s"
	"voicehal/types"
)

// -----------------------------------------------------------------------------
// Board descriptor
// -----------------------------------------------------------------------------

// Descriptor is the static description of one board revision. It is chosen
// at build time (see package setups) and never changes at runtime. Every
// pin field must be set explicitly; types.NC marks an unwired role.
type Descriptor struct {
	Name string

	Audio AudioDesc

	I2C []I2CBusDesc
	SPI []SPIBusDesc

	Buttons []ButtonDesc

	Camera    CameraDesc
	RGB       RGBDesc
	StatusLED StatusLEDDesc
	Battery   BatteryDesc
	Display   DisplayDesc
}

type CodecKind uint8

const (
	CodecNone     CodecKind = iota // I2S straight to mic and amplifier
	CodecExternal                  // ES8311 on I2C
)

type AudioDesc struct {
	Codec        CodecKind
	Duplex       bool
	RateIn       uint32
	RateOut      uint32
	BitDepth     uint8
	FrameSamples int
	Pins         i2s.Pins

	Amp          bool
	AmpPin       types.Pin
	AmpActiveLow bool

	CodecBus  string // I2C bus id
	CodecAddr uint16 // 0 means the ES8311 default
	Volume    *int   // boot volume; nil keeps the codec default
}

type I2CBusDesc struct {
	ID       string
	SDA, SCL types.Pin
	Hz       uint32
}

type SPIBusDesc struct {
	ID                  string
	SCK, MOSI, MISO, CS types.Pin
	Hz                  uint32
}

type ButtonDesc struct {
	Kind      types.ButtonKind
	Pin       types.Pin
	ActiveLow bool
	Debounce  time.Duration
	LongPress time.Duration
}

type CameraDesc struct {
	Present bool
	Pins    types.CameraPins
	Timeout time.Duration
}

type RGBDesc struct {
	Present bool
	Pin     types.Pin
	Count   int
}

type StatusLEDDesc struct {
	Present   bool
	Pin       types.Pin
	ActiveLow bool
}

type BatteryDesc struct {
	Present                 bool
	Pin                     types.Pin
	DividerNum, DividerDen  int32
	EmptyMilliV, FullMilliV int32
}

type DisplayDesc struct {
	Present       bool
	Backlight     types.Pin
	Invert        bool
	Width, Height int
}

// -----------------------------------------------------------------------------
// Validation
// -----------------------------------------------------------------------------

func invalid(format string, args ...any) error {
	return errcode.New(errcode.InvalidParams, "descriptor", fmt.Sprintf(format, args...))
}

// Validate checks that every present peripheral has its required pins and
// that the audio wiring is consistent.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return invalid("board name required")
	}

	i2cIDs := map[string]bool{}
	for _, b := range d.I2C {
		if b.ID == "" || !b.SDA.Valid() || !b.SCL.Valid() {
			return invalid("i2c bus %q: id, sda and scl required", b.ID)
		}
		if i2cIDs[b.ID] {
			return invalid("i2c bus %q declared twice", b.ID)
		}
		i2cIDs[b.ID] = true
	}
	spiIDs := map[string]bool{}
	for _, b := range d.SPI {
		if b.ID == "" || !b.SCK.Valid() {
			return invalid("spi bus %q: id and sck required", b.ID)
		}
		if spiIDs[b.ID] {
			return invalid("spi bus %q declared twice", b.ID)
		}
		spiIDs[b.ID] = true
	}

	a := d.Audio
	if !a.Pins.BCLK.Valid() || !a.Pins.WS.Valid() {
		return invalid("audio: bclk and ws required")
	}
	if !a.Pins.DIn.Valid() && !a.Pins.DOut.Valid() {
		return invalid("audio: din or dout required")
	}
	if a.Duplex && (!a.Pins.DIn.Valid() || !a.Pins.DOut.Valid()) {
		return invalid("audio: duplex requires din and dout")
	}
	if a.Amp && !a.AmpPin.Valid() {
		return invalid("audio: amplifier pin required")
	}
	if a.Volume != nil && (*a.Volume < 0 || *a.Volume > 100) {
		return invalid("audio: volume %d out of range", *a.Volume)
	}
	if a.Codec == CodecExternal && !i2cIDs[a.CodecBus] {
		return invalid("audio: codec bus %q not declared", a.CodecBus)
	}

	seen := map[types.ButtonKind]bool{}
	for _, b := range d.Buttons {
		if !b.Pin.Valid() {
			return invalid("button %s: pin required", b.Kind)
		}
		if seen[b.Kind] {
			return invalid("button %s declared twice", b.Kind)
		}
		seen[b.Kind] = true
	}

	if d.Camera.Present && !d.Camera.Pins.Complete() {
		return invalid("camera: incomplete pin set")
	}
	if d.RGB.Present && (!d.RGB.Pin.Valid() || d.RGB.Count < 1) {
		return invalid("rgb indicator: pin and count required")
	}
	if d.StatusLED.Present && !d.StatusLED.Pin.Valid() {
		return invalid("status led: pin required")
	}
	if d.Battery.Present && !d.Battery.Pin.Valid() {
		return invalid("battery: adc pin required")
	}
	if d.Display.Present && !d.Display.Backlight.Valid() {
		return invalid("display: backlight pin required")
	}
	return nil
}

func (a AudioDesc) transport() i2s.Config {
	return i2s.Config{
		RateIn:       a.RateIn,
		RateOut:      a.RateOut,
		BitDepth:     a.BitDepth,
		Duplex:       a.Duplex,
		FrameSamples: a.FrameSamples,
		Pins:         a.Pins,
	}
}
