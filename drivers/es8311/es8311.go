// Package es8311 drives the Everest ES8311 mono audio codec over I2C.
//
// The codec runs as an I2S slave: BCLK and WS come from the MCU, MCLK either
// from the MCLK pin (256·fs) or derived from BCLK. Configure must be called
// before the MCU starts the I2S clocks.
//
// NOTE: I2C.Tx MUST perform a write followed by a repeated-start read when both
// w and r are provided.
package es8311

import (
	"errors"
	"fmt"
	"time"

	"tinygo.org/x/drivers"
)

// Address is the default 7-bit address (CE pin low).
const Address = 0x18

// Chip ID as read from registers 0xFD/0xFE.
const (
	ChipID1 = 0x83
	ChipID2 = 0x11
)

// Registers.
const (
	regReset    = 0x00
	regClkMgr1  = 0x01
	regClkMgr2  = 0x02
	regClkMgr3  = 0x03
	regClkMgr4  = 0x04
	regClkMgr5  = 0x05
	regClkMgr6  = 0x06
	regClkMgr7  = 0x07
	regClkMgr8  = 0x08
	regSDPIn    = 0x09
	regSDPOut   = 0x0A
	regSystem0D = 0x0D
	regSystem0E = 0x0E
	regSystem12 = 0x12
	regSystem13 = 0x13
	regSystem14 = 0x14
	regADC17    = 0x17
	regADC1C    = 0x1C
	regDAC31    = 0x31
	regDACVol   = 0x32
	regDAC37    = 0x37
	regGPIO44   = 0x44
	regChipID1  = 0xFD
	regChipID2  = 0xFE

	dacMuteBits = 0x60
)

var (
	ErrChipID = errors.New("es8311: unexpected chip id")
	ErrFormat = errors.New("es8311: unsupported bit depth")
)

// Config describes the stream the codec should expect.
type Config struct {
	// Address defaults to 0x18 if zero.
	Address uint16
	// SampleRate is informational when MCLK = 256·fs; the divider set is the
	// same for every supported rate.
	SampleRate uint32
	// BitDepth is 16 or 32.
	BitDepth uint8
	// MCLKFromBCLK derives MCLK internally when no MCLK pin is wired.
	MCLKFromBCLK bool
	// Mic enables the ADC path.
	Mic bool
	// Volume 0..100 applied after power-up.
	Volume int
}

// Device wraps an I2C connection to an ES8311.
type Device struct {
	bus     drivers.I2C
	Address uint16

	w      [2]byte
	r      [1]byte
	volume int
}

// New creates a Device. It does not touch the bus.
func New(bus drivers.I2C) *Device {
	return &Device{bus: bus, Address: Address}
}

// Probe reads the chip ID registers.
func (d *Device) Probe() error {
	id1, err := d.read(regChipID1)
	if err != nil {
		return err
	}
	id2, err := d.read(regChipID2)
	if err != nil {
		return err
	}
	if id1 != ChipID1 || id2 != ChipID2 {
		return fmt.Errorf("%w: %#02x%02x", ErrChipID, id1, id2)
	}
	return nil
}

// Configure resets the codec and programs clocks, serial format, power and
// initial volume. Any failed write aborts the sequence.
func (d *Device) Configure(cfg Config) error {
	if cfg.Address != 0 {
		d.Address = cfg.Address
	}
	var wl byte
	switch cfg.BitDepth {
	case 16:
		wl = 3 << 2
	case 32:
		wl = 4 << 2
	default:
		return ErrFormat
	}
	if err := d.Probe(); err != nil {
		return err
	}

	clk1 := byte(0x3F)
	if cfg.MCLKFromBCLK {
		clk1 |= 0x80
	}

	if err := d.write(regReset, 0x1F); err != nil {
		return err
	}
	time.Sleep(20 * time.Millisecond)

	seq := [][2]byte{
		{regReset, 0x00},
		{regReset, 0x80}, // power on, slave mode
		{regClkMgr1, clk1},
		// 256·fs dividers: prediv 1, mult 1, osr 0x10, bclk div 4, lrck 256
		{regClkMgr2, 0x00},
		{regClkMgr3, 0x10},
		{regClkMgr4, 0x10},
		{regClkMgr5, 0x00},
		{regClkMgr6, 0x03},
		{regClkMgr7, 0x00},
		{regClkMgr8, 0xFF},
		{regSDPIn, wl},
		{regSDPOut, wl},
		{regSystem0D, 0x01},
		{regSystem0E, 0x02},
		{regSystem12, 0x00},
		{regSystem13, 0x10},
		{regADC1C, 0x6A},
		{regDAC37, 0x08},
		{regGPIO44, 0x08},
	}
	if cfg.Mic {
		seq = append(seq, [2]byte{regSystem14, 0x1A}, [2]byte{regADC17, 0xBF})
	} else {
		seq = append(seq, [2]byte{regSystem14, 0x00}, [2]byte{regADC17, 0x00})
	}
	for _, rv := range seq {
		if err := d.write(rv[0], rv[1]); err != nil {
			return err
		}
	}
	if err := d.SetMute(false); err != nil {
		return err
	}
	return d.SetVolume(cfg.Volume)
}

// SetVolume maps 0..100 onto the DAC volume register.
func (d *Device) SetVolume(v int) error {
	v = max(0, min(100, v))
	if err := d.write(regDACVol, VolumeReg(v)); err != nil {
		return err
	}
	d.volume = v
	return nil
}

func (d *Device) Volume() int { return d.volume }

// SetMute toggles the DAC soft mute bits.
func (d *Device) SetMute(mute bool) error {
	v, err := d.read(regDAC31)
	if err != nil {
		return err
	}
	if mute {
		v |= dacMuteBits
	} else {
		v &^= dacMuteBits
	}
	return d.write(regDAC31, v)
}

// Standby mutes the DAC and powers down the analog blocks.
func (d *Device) Standby() error {
	for _, rv := range [][2]byte{
		{regDACVol, 0x00},
		{regADC17, 0x00},
		{regSystem0E, 0xFF},
		{regSystem12, 0x02},
		{regSystem14, 0x00},
		{regSystem0D, 0xFA},
		{regReset, 0x00},
		{regClkMgr1, 0x00},
	} {
		if err := d.write(rv[0], rv[1]); err != nil {
			return err
		}
	}
	return nil
}

// VolumeReg converts a 0..100 volume into the 0x32 register value.
func VolumeReg(v int) byte {
	if v <= 0 {
		return 0
	}
	if v >= 100 {
		return 0xFF
	}
	return byte(v*256/100 - 1)
}

func (d *Device) write(reg, val byte) error {
	d.w[0] = reg
	d.w[1] = val
	if err := d.bus.Tx(d.Address, d.w[:2], nil); err != nil {
		return fmt.Errorf("es8311: write %#02x: %w", reg, err)
	}
	return nil
}

func (d *Device) read(reg byte) (byte, error) {
	d.w[0] = reg
	if err := d.bus.Tx(d.Address, d.w[:1], d.r[:1]); err != nil {
		return 0, fmt.Errorf("es8311: read %#02x: %w", reg, err)
	}
	return d.r[0], nil
}
