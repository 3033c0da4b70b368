//go:build !tinygo

package provider

import (
	"context"
	"errors"
	"sync"
	"time"

	"voicehal/services/hal/internal/core"
	"voicehal/types"

	"tinygo.org/x/drivers"
)

// HostPlatform simulates a board for host builds and tests.
type HostPlatform struct {
	mu sync.Mutex

	maxPin  types.Pin
	pins    map[types.Pin]*HostPin
	i2c     map[string]*HostI2C
	spi     map[string]*HostSPI
	adc     map[types.Pin]*HostADC
	pixels  map[types.Pin]*HostPixels
	i2s     []*SimI2S
	cam     *HostCamera
	i2sOpts SimOptions

	FailI2S    error // returned by OpenI2S when set
	FailCamera error // returned by Camera when set
}

type HostOption func(*HostPlatform)

// WithMaxPin sets the highest valid GPIO number (default 48).
func WithMaxPin(n types.Pin) HostOption { return func(h *HostPlatform) { h.maxPin = n } }

// WithI2CDevice preloads a register map at addr on bus id.
func WithI2CDevice(bus string, addr uint16, regs map[byte]byte) HostOption {
	return func(h *HostPlatform) { h.I2C(bus).Attach(addr, regs) }
}

// WithSim sets options for every SimI2S the platform opens.
func WithSim(o SimOptions) HostOption { return func(h *HostPlatform) { h.i2sOpts = o } }

// WithCamera installs a camera sensor.
func WithCamera(c *HostCamera) HostOption { return func(h *HostPlatform) { h.cam = c } }

func NewHost(opts ...HostOption) *HostPlatform {
	h := &HostPlatform{
		maxPin: 48,
		pins:   make(map[types.Pin]*HostPin),
		i2c:    make(map[string]*HostI2C),
		spi:    make(map[string]*HostSPI),
		adc:    make(map[types.Pin]*HostADC),
		pixels: make(map[types.Pin]*HostPixels),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *HostPlatform) Name() string { return "host" }

func (h *HostPlatform) GPIO(pin types.Pin) (core.GPIOHandle, bool) {
	p := h.Pin(pin)
	return p, p != nil
}

// Pin returns the simulated pin, or nil when out of range.
func (h *HostPlatform) Pin(pin types.Pin) *HostPin {
	if !pin.Valid() || pin > h.maxPin {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.pins[pin]
	if !ok {
		p = &HostPin{number: int(pin)}
		h.pins[pin] = p
	}
	return p
}

// I2C returns (creating if needed) the simulated bus id.
func (h *HostPlatform) I2C(id string) *HostI2C {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.i2c[id]
	if !ok {
		b = &HostI2C{devs: make(map[uint16]map[byte]byte)}
		h.i2c[id] = b
	}
	return b
}

func (h *HostPlatform) OpenI2C(cfg core.BusConfig) (drivers.I2C, error) {
	return h.I2C(cfg.ID), nil
}

func (h *HostPlatform) OpenSPI(cfg core.BusConfig) (drivers.SPI, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := &HostSPI{}
	h.spi[cfg.ID] = s
	return s, nil
}

func (h *HostPlatform) OpenI2S(cfg core.I2SConfig) (core.I2SPort, error) {
	if h.FailI2S != nil {
		return nil, h.FailI2S
	}
	s := NewSimI2S(cfg, h.i2sOpts)
	h.mu.Lock()
	h.i2s = append(h.i2s, s)
	h.mu.Unlock()
	return s, nil
}

// LastI2S returns the most recently opened simulated port.
func (h *HostPlatform) LastI2S() *SimI2S {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.i2s) == 0 {
		return nil
	}
	return h.i2s[len(h.i2s)-1]
}

func (h *HostPlatform) ADC(pin types.Pin) (core.ADCHandle, error) {
	return h.ADCPin(pin), nil
}

// ADCPin returns the simulated converter on pin.
func (h *HostPlatform) ADCPin(pin types.Pin) *HostADC {
	h.mu.Lock()
	defer h.mu.Unlock()
	a, ok := h.adc[pin]
	if !ok {
		a = &HostADC{}
		h.adc[pin] = a
	}
	return a
}

func (h *HostPlatform) Pixels(pin types.Pin, count int) (core.PixelStrip, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	px := &HostPixels{n: count}
	h.pixels[pin] = px
	return px, nil
}

// PixelsAt returns the strip opened on pin, if any.
func (h *HostPlatform) PixelsAt(pin types.Pin) *HostPixels {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pixels[pin]
}

func (h *HostPlatform) Camera(pins types.CameraPins) (core.CameraSensor, error) {
	if h.FailCamera != nil {
		return nil, h.FailCamera
	}
	if h.cam == nil {
		return nil, errors.New("no sensor on host")
	}
	return h.cam, nil
}

// ----------------------------- GPIO ------------------------------------------

// HostPin is an in-memory GPIO.
type HostPin struct {
	mu      sync.RWMutex
	number  int
	level   bool
	modeOut bool
	pull    core.Pull
}

func (p *HostPin) Number() int { return p.number }

func (p *HostPin) ConfigureInput(pull core.Pull) error {
	p.mu.Lock()
	p.modeOut = false
	p.pull = pull
	if pull == core.PullUp {
		p.level = true
	}
	p.mu.Unlock()
	return nil
}

func (p *HostPin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.modeOut = true
	p.level = initial
	p.mu.Unlock()
	return nil
}

func (p *HostPin) Set(level bool) {
	p.mu.Lock()
	p.level = level
	p.mu.Unlock()
}

func (p *HostPin) Get() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.level
}

func (p *HostPin) Toggle() {
	p.mu.Lock()
	p.level = !p.level
	p.mu.Unlock()
}

// IsOutput reports the configured direction.
func (p *HostPin) IsOutput() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.modeOut
}

// ----------------------------- I2C -------------------------------------------

var errNACK = errors.New("i2c: nack")

// HostI2C is a register-map I2C bus: a write of [reg, v...] stores values
// from reg onwards, a write of [reg] followed by a read returns them.
type HostI2C struct {
	mu    sync.Mutex
	devs  map[uint16]map[byte]byte
	txs   int
	fails map[uint16]error
}

// Attach places a device at addr.
func (b *HostI2C) Attach(addr uint16, regs map[byte]byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := make(map[byte]byte, len(regs))
	for k, v := range regs {
		m[k] = v
	}
	b.devs[addr] = m
}

// Fail makes every transaction to addr return err (nil clears).
func (b *HostI2C) Fail(addr uint16, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fails == nil {
		b.fails = make(map[uint16]error)
	}
	if err == nil {
		delete(b.fails, addr)
		return
	}
	b.fails[addr] = err
}

// Reg reads back a register.
func (b *HostI2C) Reg(addr uint16, reg byte) (byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.devs[addr]
	if !ok {
		return 0, false
	}
	v, ok := d[reg]
	return v, ok
}

// Transactions counts completed Tx calls.
func (b *HostI2C) Transactions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.txs
}

func (b *HostI2C) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fails[addr]; err != nil {
		return err
	}
	d, ok := b.devs[addr]
	if !ok {
		return errNACK
	}
	b.txs++
	if len(w) == 0 {
		for i := range r {
			r[i] = 0
		}
		return nil
	}
	reg := w[0]
	for i, v := range w[1:] {
		d[reg+byte(i)] = v
	}
	for i := range r {
		r[i] = d[reg+byte(i)]
	}
	return nil
}

// ----------------------------- SPI -------------------------------------------

// HostSPI records outbound bytes and reads back zeros.
type HostSPI struct {
	mu  sync.Mutex
	out []byte
}

func (s *HostSPI) Tx(w, r []byte) error {
	s.mu.Lock()
	s.out = append(s.out, w...)
	s.mu.Unlock()
	for i := range r {
		r[i] = 0
	}
	return nil
}

func (s *HostSPI) Transfer(b byte) (byte, error) {
	return 0, s.Tx([]byte{b}, nil)
}

// Written returns everything sent so far.
func (s *HostSPI) Written() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.out...)
}

// ----------------------------- ADC / pixels ----------------------------------

// HostADC returns a settable voltage.
type HostADC struct {
	mu  sync.Mutex
	mV  int32
	err error
}

func (a *HostADC) Set(mV int32) { a.mu.Lock(); a.mV = mV; a.mu.Unlock() }

func (a *HostADC) SetErr(err error) { a.mu.Lock(); a.err = err; a.mu.Unlock() }

func (a *HostADC) ReadMilliV() (int32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mV, a.err
}

// HostPixels remembers the last colours written.
type HostPixels struct {
	mu     sync.Mutex
	n      int
	last   []types.RGB
	writes int
}

func (p *HostPixels) WriteColors(c []types.RGB) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = append(p.last[:0], c...)
	p.writes++
	return nil
}

// Last returns a copy of the last frame written.
func (p *HostPixels) Last() []types.RGB {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]types.RGB(nil), p.last...)
}

// ----------------------------- camera ----------------------------------------

// HostCamera produces a fixed frame after Delay.
type HostCamera struct {
	Delay   time.Duration
	Frame   []byte
	InitErr error

	mu       sync.Mutex
	captures int
}

func (c *HostCamera) Init() error { return c.InitErr }

func (c *HostCamera) Capture(ctx context.Context) ([]byte, error) {
	t := time.NewTimer(c.Delay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	c.mu.Lock()
	c.captures++
	c.mu.Unlock()
	if c.Frame == nil {
		return []byte{0xFF, 0xD8, 0xFF, 0xD9}, nil // empty JPEG
	}
	return append([]byte(nil), c.Frame...), nil
}

func (c *HostCamera) Close() error { return nil }

// Captures counts completed captures.
func (c *HostCamera) Captures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.captures
}
