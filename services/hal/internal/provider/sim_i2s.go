//go:build !tinygo

package provider

import (
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"

	"voicehal/errcode"
	"voicehal/services/hal/internal/core"
	"voicehal/x/dmaring"
)

// SimOptions tune the simulated I2S clock.
type SimOptions struct {
	// Paced moves bytes at the wire rate. Unpaced drains and fills the
	// rings completely on every tick.
	Paced bool
	// Tick is the clock granularity. Default 1ms.
	Tick time.Duration
	// Source yields captured sample n. Default silence.
	Source func(n uint64) int16
	// Sink sees every chunk clocked out of the TX ring.
	Sink func(p []byte)
}

// SimI2S emulates a DMA-backed I2S peripheral: Write/Read block on the
// descriptor rings while a clock goroutine plays and captures.
type SimI2S struct {
	cfg  core.I2SConfig
	opts SimOptions
	bps  int

	tx, rx *dmaring.Ring

	stalled atomic.Bool
	closed  atomic.Bool
	played  atomic.Uint64
	nextIn  uint64

	quit chan struct{}
	wg   sync.WaitGroup
}

func NewSimI2S(cfg core.I2SConfig, opts SimOptions) *SimI2S {
	if opts.Tick <= 0 {
		opts.Tick = time.Millisecond
	}
	s := &SimI2S{
		cfg:  cfg,
		opts: opts,
		bps:  int(cfg.BitDepth / 8),
		quit: make(chan struct{}),
	}
	size := ringSize(cfg)
	if cfg.Dirs.Has(core.DirOut) {
		s.tx = dmaring.New(size)
	}
	if cfg.Dirs.Has(core.DirIn) {
		s.rx = dmaring.New(size)
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Config returns the wire configuration the port was opened with.
func (s *SimI2S) Config() core.I2SConfig { return s.cfg }

// Stall freezes the clock so the rings stop moving.
func (s *SimI2S) Stall() { s.stalled.Store(true) }

// Resume restarts a stalled clock.
func (s *SimI2S) Resume() { s.stalled.Store(false) }

// Played counts bytes clocked out.
func (s *SimI2S) Played() uint64 { return s.played.Load() }

func (s *SimI2S) Write(p []byte, timeout time.Duration) (int, error) {
	if s.tx == nil {
		return 0, errcode.New(errcode.CapabilityAbsent, "sim.write", "no output direction")
	}
	if s.closed.Load() {
		return 0, errcode.New(errcode.NotConfigured, "sim.write", "closed")
	}
	n, err := s.tx.WriteAll(p, timeout)
	return n, portErr("sim.write", err)
}

func (s *SimI2S) Read(p []byte, timeout time.Duration) (int, error) {
	if s.rx == nil {
		return 0, errcode.New(errcode.CapabilityAbsent, "sim.read", "no input direction")
	}
	if s.closed.Load() {
		return 0, errcode.New(errcode.NotConfigured, "sim.read", "closed")
	}
	n, err := s.rx.ReadFull(p, timeout)
	return n, portErr("sim.read", err)
}

func (s *SimI2S) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.quit)
	if s.tx != nil {
		s.tx.Close()
	}
	if s.rx != nil {
		s.rx.Close()
	}
	s.wg.Wait()
	return nil
}

func (s *SimI2S) run() {
	defer s.wg.Done()
	t := time.NewTicker(s.opts.Tick)
	defer t.Stop()

	budget := ringSize(s.cfg)
	if s.opts.Paced {
		perTick := int(uint64(s.cfg.Rate) * uint64(s.opts.Tick) / uint64(time.Second))
		budget = max(perTick, 1) * s.bps
	}
	scratch := make([]byte, budget)

	for {
		select {
		case <-s.quit:
			return
		case <-t.C:
		}
		if s.stalled.Load() {
			continue
		}
		switch {
		case s.tx == nil:
		case s.opts.Sink != nil:
			if n := s.tx.ReadInto(scratch); n > 0 {
				s.played.Add(uint64(n))
				s.opts.Sink(scratch[:n])
			}
		default:
			s.played.Add(uint64(s.tx.Discard(budget)))
		}
		if s.rx != nil {
			n := min(budget, s.rx.Space())
			n -= n % s.bps
			s.capture(scratch[:n])
			s.rx.WriteFrom(scratch[:n])
		}
	}
}

func (s *SimI2S) capture(p []byte) {
	for i := 0; i+s.bps <= len(p); i += s.bps {
		var v int16
		if s.opts.Source != nil {
			v = s.opts.Source(s.nextIn)
		}
		s.nextIn++
		if s.bps == 4 {
			binary.LittleEndian.PutUint32(p[i:], uint32(int32(v)<<16))
		} else {
			binary.LittleEndian.PutUint16(p[i:], uint16(v))
		}
	}
}
