package core

import (
	"voicehal/types"

	"tinygo.org/x/drivers"
)

// Platform opens raw peripherals. It does no ownership bookkeeping; the
// provider registry claims pins before calling in.
type Platform interface {
	Name() string

	// GPIO returns the handle for pin, or false if the pin does not exist.
	GPIO(pin types.Pin) (GPIOHandle, bool)

	OpenI2C(cfg BusConfig) (drivers.I2C, error)
	OpenSPI(cfg BusConfig) (drivers.SPI, error)
	OpenI2S(cfg I2SConfig) (I2SPort, error)

	ADC(pin types.Pin) (ADCHandle, error)
	Pixels(pin types.Pin, count int) (PixelStrip, error)
	Camera(pins types.CameraPins) (CameraSensor, error)
}
