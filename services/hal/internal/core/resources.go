package core

import (
	"context"
	"time"

	"voicehal/types"

	"tinygo.org/x/drivers"
)

// ---- GPIO handles ----

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

type GPIOHandle interface {
	Number() int
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(bool)
	Get() bool
	Toggle()
}

// ---- Shared buses ----

type BusKind uint8

const (
	BusI2C BusKind = iota
	BusSPI
)

func (k BusKind) String() string {
	switch k {
	case BusI2C:
		return "i2c"
	case BusSPI:
		return "spi"
	}
	return "unknown"
}

// BusConfig names a bus and its pins. I2C uses SDA/SCL; SPI uses
// SCK/SDO/SDI/CS.
type BusConfig struct {
	Kind BusKind
	ID   string
	Hz   uint32

	SDA, SCL          types.Pin
	SCK, SDO, SDI, CS types.Pin
}

// Pins lists the wired pins the bus occupies.
func (c BusConfig) Pins() []types.Pin {
	var all []types.Pin
	switch c.Kind {
	case BusI2C:
		all = []types.Pin{c.SDA, c.SCL}
	case BusSPI:
		all = []types.Pin{c.SCK, c.SDO, c.SDI, c.CS}
	}
	out := all[:0]
	for _, p := range all {
		if p.Valid() {
			out = append(out, p)
		}
	}
	return out
}

// BusHandle is an initialized bus. Exactly one of I2C/SPI is set.
type BusHandle struct {
	Kind BusKind
	ID   string
	I2C  drivers.I2C
	SPI  drivers.SPI
}

// ---- I2S ----

// Dir is a bitmask of active audio directions.
type Dir uint8

const (
	DirOut Dir = 1 << iota
	DirIn
)

func (d Dir) Has(x Dir) bool { return d&x != 0 }

// I2SConfig is the wire-level setup handed to the platform. One BCLK/WS
// pair runs at Rate for both directions.
type I2SConfig struct {
	MCLK, BCLK, WS types.Pin
	SDI, SDO       types.Pin
	Rate           uint32
	BitDepth       uint8
	Dirs           Dir

	// DMA descriptor chain: DMABufs buffers of DMABufLen samples each.
	DMABufs   int
	DMABufLen int
}

// I2SPort moves raw little-endian sample bytes. Write and Read block until
// all of p is transferred or timeout elapses; a negative timeout waits
// forever.
type I2SPort interface {
	Write(p []byte, timeout time.Duration) (int, error)
	Read(p []byte, timeout time.Duration) (int, error)
	Close() error
}

// ---- Simple peripherals ----

// ADCHandle reads a pin voltage in millivolts.
type ADCHandle interface {
	ReadMilliV() (int32, error)
}

// PixelStrip drives addressable RGB LEDs.
type PixelStrip interface {
	WriteColors(c []types.RGB) error
}

// CameraSensor is a frame source. Capture must honour ctx.
type CameraSensor interface {
	Init() error
	Capture(ctx context.Context) ([]byte, error)
	Close() error
}

// PinClaimer hands out exclusive GPIOs. *provider.Registry satisfies it.
type PinClaimer interface {
	ClaimPin(owner string, pin types.Pin) (GPIOHandle, error)
	ReleasePins(owner string, pins ...types.Pin)
}
