//go:build tinygo && atsamd21

package provider

import (
	"errors"
	"image/color"

	"voicehal/errcode"
	"voicehal/services/hal/internal/core"
	"voicehal/types"

	"machine"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/ws2812"
)

// MCU is the SAMD21 platform. The chip has one I2S peripheral and one
// SERCOM each wired as I2C0/SPI0 by the board package.
type MCU struct{}

func NewMCU() *MCU {
	machine.InitADC()
	return &MCU{}
}

func (MCU) Name() string { return "atsamd21" }

// ----------------------------- GPIO ------------------------------------------

type mcuGPIO struct {
	p machine.Pin
	n int
}

func (g *mcuGPIO) Number() int { return g.n }

func (g *mcuGPIO) ConfigureInput(pull core.Pull) error {
	var mode machine.PinMode
	switch pull {
	case core.PullUp:
		mode = machine.PinInputPullup
	case core.PullDown:
		mode = machine.PinInputPulldown
	default:
		mode = machine.PinInput
	}
	g.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (g *mcuGPIO) ConfigureOutput(initial bool) error {
	g.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	g.p.Set(initial)
	return nil
}

func (g *mcuGPIO) Set(b bool) { g.p.Set(b) }
func (g *mcuGPIO) Get() bool  { return g.p.Get() }
func (g *mcuGPIO) Toggle() {
	if g.p.Get() {
		g.p.Low()
	} else {
		g.p.High()
	}
}

// SAMD21 port A and B: 0..63.
func (MCU) GPIO(pin types.Pin) (core.GPIOHandle, bool) {
	if !pin.Valid() || pin > 63 {
		return nil, false
	}
	return &mcuGPIO{p: machine.Pin(pin), n: int(pin)}, true
}

// ----------------------------- buses -----------------------------------------

func (MCU) OpenI2C(cfg core.BusConfig) (drivers.I2C, error) {
	if cfg.ID != "i2c0" {
		return nil, errcode.UnknownBus
	}
	hz := cfg.Hz
	if hz == 0 {
		hz = 400_000
	}
	err := machine.I2C0.Configure(machine.I2CConfig{
		SDA:       machine.Pin(cfg.SDA),
		SCL:       machine.Pin(cfg.SCL),
		Frequency: hz,
	})
	if err != nil {
		return nil, err
	}
	return machine.I2C0, nil
}

func (MCU) OpenSPI(cfg core.BusConfig) (drivers.SPI, error) {
	if cfg.ID != "spi0" {
		return nil, errcode.UnknownBus
	}
	err := machine.SPI0.Configure(machine.SPIConfig{
		SCK:       machine.Pin(cfg.SCK),
		SDO:       machine.Pin(cfg.SDO),
		SDI:       machine.Pin(cfg.SDI),
		Frequency: cfg.Hz,
	})
	if err != nil {
		return nil, err
	}
	return machine.SPI0, nil
}

// ----------------------------- I2S -------------------------------------------

// mcuI2S pumps the descriptor rings through the blocking machine calls.
type mcuI2S struct {
	*pumps
	outWords, inWords []uint16
}

func (MCU) OpenI2S(cfg core.I2SConfig) (core.I2SPort, error) {
	if cfg.BitDepth != 16 {
		return nil, errcode.New(errcode.InvalidParams, "i2s.open", "16-bit only")
	}
	mode := machine.I2SModeSource
	switch {
	case cfg.Dirs.Has(core.DirOut) && cfg.Dirs.Has(core.DirIn):
		mode = machine.I2SModeSourceReceiver
	case cfg.Dirs.Has(core.DirIn):
		mode = machine.I2SModeReceiver
	}
	mc := machine.I2SConfig{
		SCK:             machine.Pin(cfg.BCLK),
		WS:              machine.Pin(cfg.WS),
		Mode:            mode,
		Standard:        machine.I2StandardPhilips,
		ClockSource:     machine.I2SClockSourceInternal,
		DataFormat:      machine.I2SDataFormat16bit,
		AudioFrequency:  cfg.Rate,
		MainClockOutput: cfg.MCLK.Valid(),
	}
	if cfg.SDO.Valid() {
		mc.SDO = machine.Pin(cfg.SDO)
	}
	if cfg.SDI.Valid() {
		mc.SDI = machine.Pin(cfg.SDI)
	}
	machine.I2S0.Configure(mc)
	if err := machine.I2S0.SetSampleFrequency(cfg.Rate); err != nil {
		return nil, errcode.Wrap(errcode.UnsupportedRate, "i2s.open", err)
	}
	machine.I2S0.Enable(true)

	blen := cfg.DMABufLen
	if blen <= 0 {
		blen = DefaultDMABufLen
	}
	p := &mcuI2S{outWords: make([]uint16, blen), inWords: make([]uint16, blen)}
	var out func([]byte)
	var in func([]byte) (int, error)
	if cfg.Dirs.Has(core.DirOut) {
		out = p.writeWords
	}
	if cfg.Dirs.Has(core.DirIn) {
		in = p.readWords
	}
	p.pumps = startPumps(ringSize(cfg), blen*2, out, in)
	return p, nil
}

func (p *mcuI2S) writeWords(raw []byte) {
	words := p.outWords[:len(raw)/2]
	for i := range words {
		words[i] = uint16(raw[2*i]) | uint16(raw[2*i+1])<<8
	}
	machine.I2S0.WriteMono(words)
}

func (p *mcuI2S) readWords(raw []byte) (int, error) {
	words := p.inWords[:len(raw)/2]
	n, err := machine.I2S0.ReadMono(words)
	if err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		raw[2*i] = byte(words[i])
		raw[2*i+1] = byte(words[i] >> 8)
	}
	return 2 * n, nil
}

// Close joins the pumps before disabling the peripheral, so a reconfigured
// port never shares I2S0 with a stale pump.
func (p *mcuI2S) Close() error {
	p.pumps.stop()
	machine.I2S0.Enable(false)
	return nil
}

// ----------------------------- ADC / pixels / camera -------------------------

type mcuADC struct{ a machine.ADC }

func (a mcuADC) ReadMilliV() (int32, error) {
	// Get is scaled to 16 bits against the 3.3V reference.
	return int32(uint32(a.a.Get()) * 3300 / 65535), nil
}

func (MCU) ADC(pin types.Pin) (core.ADCHandle, error) {
	a := machine.ADC{Pin: machine.Pin(pin)}
	a.Configure(machine.ADCConfig{})
	return mcuADC{a: a}, nil
}

type mcuPixels struct {
	dev ws2812.Device
	buf []color.RGBA
}

func (p *mcuPixels) WriteColors(c []types.RGB) error {
	n := min(len(c), len(p.buf))
	for i := 0; i < n; i++ {
		p.buf[i] = color.RGBA{R: c[i].R, G: c[i].G, B: c[i].B}
	}
	return p.dev.WriteColors(p.buf[:n])
}

func (MCU) Pixels(pin types.Pin, count int) (core.PixelStrip, error) {
	mp := machine.Pin(pin)
	mp.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &mcuPixels{dev: ws2812.New(mp), buf: make([]color.RGBA, count)}, nil
}

var errNoDVP = errors.New("camera: no parallel capture interface")

func (MCU) Camera(types.CameraPins) (core.CameraSensor, error) { return nil, errNoDVP }

var _ core.Platform = MCU{}
