// Package i2s is the audio transport: blocking, frame-sized writes and reads
// over a DMA-backed I2S port, with one active configuration at a time.
package i2s

import (
	"encoding/binary"
	"sync"
	"time"

	"voicehal/errcode"
	"voicehal/services/hal/internal/core"
	"voicehal/x/timex"

	"github.com/rs/zerolog"
)

// Forever disables the timeout on Write and Read.
const Forever = timex.Forever

// PortOpener claims transport pins and opens the hardware port.
// *provider.Registry satisfies it.
type PortOpener interface {
	OpenI2S(owner string, cfg core.I2SConfig) (core.I2SPort, error)
	ReleaseI2S(owner string, cfg core.I2SConfig)
}

// Driver owns one I2S peripheral.
type Driver struct {
	opener PortOpener
	owner  string
	log    zerolog.Logger

	life       sync.Mutex // serialises Configure and Teardown
	mu         sync.Mutex // guards the fields below
	cfg        Config
	configured bool
	wire       core.I2SConfig
	port       core.I2SPort

	// Per-direction exclusion. In half-duplex wiring inL points at outLock.
	outLock, inLock sync.Mutex
	inL             *sync.Mutex

	bufs *buffers
	rs   *inputResampler
}

// buffers belong to one configuration; a call that outlives it keeps its own.
type buffers struct {
	w []byte // under outLock
	r []byte // under the input lock
}

func New(opener PortOpener, owner string, log zerolog.Logger) *Driver {
	d := &Driver{opener: opener, owner: owner, log: log}
	d.inL = &d.inLock
	return d
}

// Configure applies cfg. Re-applying the active configuration is a no-op;
// a different one fails with configuration_conflict until Teardown.
func (d *Driver) Configure(cfg Config) error {
	cfg = cfg.withDefaults()

	d.life.Lock()
	defer d.life.Unlock()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.configured {
		if cfg == d.cfg {
			return nil
		}
		return errcode.New(errcode.ConfigurationConflict, "i2s.configure", "transport already configured")
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	wire := cfg.wire()
	port, err := d.opener.OpenI2S(d.owner, wire)
	if err != nil {
		if c := errcode.Of(err); c != errcode.Error {
			return errcode.Wrap(c, "i2s.configure", err)
		}
		return errcode.Wrap(errcode.Transport, "i2s.configure", err)
	}

	var rs *inputResampler
	if cfg.Resampled() {
		rs, err = newInputResampler(cfg.RateOut, cfg.RateIn)
		if err != nil {
			_ = port.Close()
			d.opener.ReleaseI2S(d.owner, wire)
			return errcode.Wrap(errcode.InvalidParams, "i2s.configure", err)
		}
	}

	d.cfg, d.wire, d.port, d.rs = cfg, wire, port, rs
	d.configured = true
	if cfg.Pins.Wiring() == WiringHalfDuplex {
		d.inL = &d.outLock
	} else {
		d.inL = &d.inLock
	}
	d.bufs = &buffers{w: make([]byte, cfg.FrameSamples*cfg.BytesPerSample())}

	d.log.Info().
		Str("wiring", cfg.Pins.Wiring().String()).
		Uint32("rate_in", cfg.RateIn).
		Uint32("rate_out", cfg.RateOut).
		Uint8("bits", cfg.BitDepth).
		Int("frame", cfg.FrameSamples).
		Bool("resampled", cfg.Resampled()).
		Msg("I2S configured")
	return nil
}

// Config returns the active configuration.
func (d *Driver) Config() (Config, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg, d.configured
}

type session struct {
	cfg  Config
	port core.I2SPort
	lock *sync.Mutex
	bufs *buffers
	rs   *inputResampler
}

func (d *Driver) session(op string, out bool) (session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.configured {
		return session{}, errcode.New(errcode.NotConfigured, op, "")
	}
	s := session{cfg: d.cfg, port: d.port, lock: &d.outLock, bufs: d.bufs, rs: d.rs}
	if out && !d.cfg.HasOutput() {
		return session{}, errcode.New(errcode.CapabilityAbsent, op, "no output direction")
	}
	if !out {
		if !d.cfg.HasInput() {
			return session{}, errcode.New(errcode.CapabilityAbsent, op, "no input direction")
		}
		s.lock = d.inL
	}
	return s, nil
}

// Write blocks until the DMA ring accepts frame or timeout elapses. It
// returns the bytes queued: len(frame) * BitDepth/8.
func (d *Driver) Write(frame Frame, timeout time.Duration) (int, error) {
	const op = "i2s.write"
	if len(frame) == 0 {
		return 0, errcode.New(errcode.InvalidFrame, op, "empty frame")
	}
	s, err := d.session(op, true)
	if err != nil {
		return 0, err
	}
	if len(frame) > s.cfg.FrameSamples {
		return 0, errcode.New(errcode.InvalidFrame, op, "frame larger than transport buffer")
	}
	if !s.lock.TryLock() {
		return 0, errcode.New(errcode.Busy, op, "concurrent write")
	}
	defer s.lock.Unlock()

	bps := s.cfg.BytesPerSample()
	buf := s.bufs.w[:len(frame)*bps]
	encode(buf, frame, bps)
	n, err := s.port.Write(buf, timeout)
	if err != nil {
		return n, errcode.Wrap(errcode.Of(err), op, err)
	}
	return n, nil
}

// Read blocks until one frame of FrameSamples samples at RateIn is
// captured or timeout elapses.
func (d *Driver) Read(timeout time.Duration) (Frame, error) {
	const op = "i2s.read"
	s, err := d.session(op, false)
	if err != nil {
		return nil, err
	}
	if !s.lock.TryLock() {
		return nil, errcode.New(errcode.Busy, op, "concurrent read")
	}
	defer s.lock.Unlock()

	out := make(Frame, s.cfg.FrameSamples)
	if s.rs == nil {
		if err := d.readRaw(s, out, timeout); err != nil {
			return nil, errcode.Wrap(errcode.Of(err), op, err)
		}
		return out, nil
	}

	deadline, bounded := timex.Deadline(timeout)
	raw := make(Frame, s.rs.rawFor(len(out)))
	for !s.rs.ready(len(out)) {
		left := Forever
		if bounded {
			left = time.Until(deadline)
			if left < 0 {
				left = 0
			}
		}
		if err := d.readRaw(s, raw, left); err != nil {
			return nil, errcode.Wrap(errcode.Of(err), op, err)
		}
		if err := s.rs.push(raw); err != nil {
			return nil, errcode.Wrap(errcode.Transport, op, err)
		}
	}
	s.rs.pop(out)
	return out, nil
}

func (d *Driver) readRaw(s session, dst Frame, timeout time.Duration) error {
	bps := s.cfg.BytesPerSample()
	need := len(dst) * bps
	if cap(s.bufs.r) < need {
		s.bufs.r = make([]byte, need)
	}
	buf := s.bufs.r[:need]
	if _, err := s.port.Read(buf, timeout); err != nil {
		return err
	}
	decode(dst, buf, bps)
	return nil
}

// Teardown closes the port and releases the pins. In-flight calls are woken
// and waited for. Calling it again is a no-op.
func (d *Driver) Teardown() error {
	d.life.Lock()
	defer d.life.Unlock()
	d.mu.Lock()
	if !d.configured {
		d.mu.Unlock()
		return nil
	}
	d.configured = false
	port, wire := d.port, d.wire
	d.port = nil
	d.mu.Unlock()

	err := port.Close()

	d.outLock.Lock()
	d.inLock.Lock()
	d.inLock.Unlock()
	d.outLock.Unlock()

	d.opener.ReleaseI2S(d.owner, wire)

	d.mu.Lock()
	d.cfg, d.rs, d.bufs = Config{}, nil, nil
	d.mu.Unlock()
	d.log.Info().Msg("I2S torn down")
	return err
}

// 32-bit slots carry the sample left-justified.
func encode(dst []byte, f Frame, bps int) {
	if bps == 4 {
		for i, v := range f {
			binary.LittleEndian.PutUint32(dst[4*i:], uint32(int32(v)<<16))
		}
		return
	}
	for i, v := range f {
		binary.LittleEndian.PutUint16(dst[2*i:], uint16(v))
	}
}

func decode(dst Frame, src []byte, bps int) {
	if bps == 4 {
		for i := range dst {
			dst[i] = int16(int32(binary.LittleEndian.Uint32(src[4*i:])) >> 16)
		}
		return
	}
	for i := range dst {
		dst[i] = int16(binary.LittleEndian.Uint16(src[2*i:]))
	}
}
