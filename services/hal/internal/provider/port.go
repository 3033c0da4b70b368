package provider

import (
	"errors"
	"sync"
	"time"

	"voicehal/errcode"
	"voicehal/services/hal/internal/core"
	"voicehal/x/dmaring"
)

// DMA defaults: 4 descriptors of 1024 samples.
const (
	DefaultDMABufs   = 4
	DefaultDMABufLen = 1024
)

// ringSize is the descriptor chain size in bytes, rounded up to a power of
// two.
func ringSize(cfg core.I2SConfig) int {
	bufs, blen := cfg.DMABufs, cfg.DMABufLen
	if bufs <= 0 {
		bufs = DefaultDMABufs
	}
	if blen <= 0 {
		blen = DefaultDMABufLen
	}
	n := bufs * blen * int(cfg.BitDepth/8)
	size := 2
	for size < n {
		size <<= 1
	}
	return size
}

// portErr maps ring errors onto transport codes.
func portErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, dmaring.ErrTimeout):
		return errcode.Wrap(errcode.Timeout, op, err)
	case errors.Is(err, dmaring.ErrClosed):
		return errcode.Wrap(errcode.NotConfigured, op, err)
	}
	return errcode.Wrap(errcode.Transport, op, err)
}

// pumpPoll bounds how long the playback pump waits for queued bytes before
// rechecking for close.
const pumpPoll = 20 * time.Millisecond

// pumps moves bytes between the rings and a peripheral with blocking
// transfers. Nil out or in leaves that direction absent.
type pumps struct {
	tx, rx *dmaring.Ring
	quit   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

func startPumps(size, chunk int, out func([]byte), in func([]byte) (int, error)) *pumps {
	p := &pumps{quit: make(chan struct{})}
	if out != nil {
		p.tx = dmaring.New(size)
		p.wg.Add(1)
		go p.playback(make([]byte, chunk), out)
	}
	if in != nil {
		p.rx = dmaring.New(size)
		p.wg.Add(1)
		go p.record(make([]byte, chunk), in)
	}
	return p
}

func (p *pumps) playback(raw []byte, out func([]byte)) {
	defer p.wg.Done()
	for {
		n, err := p.tx.ReadFull(raw, pumpPoll)
		if errors.Is(err, dmaring.ErrClosed) {
			return
		}
		// Whole 16-bit words only.
		if n &^= 1; n > 0 {
			out(raw[:n])
		}
	}
}

func (p *pumps) record(raw []byte, in func([]byte) (int, error)) {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		default:
		}
		n, err := in(raw)
		if err != nil {
			continue
		}
		// A full ring drops the newest capture.
		p.rx.WriteFrom(raw[:n])
	}
}

func (p *pumps) Write(b []byte, timeout time.Duration) (int, error) {
	if p.tx == nil {
		return 0, errcode.CapabilityAbsent
	}
	n, err := p.tx.WriteAll(b, timeout)
	return n, portErr("i2s.write", err)
}

func (p *pumps) Read(b []byte, timeout time.Duration) (int, error) {
	if p.rx == nil {
		return 0, errcode.CapabilityAbsent
	}
	n, err := p.rx.ReadFull(b, timeout)
	return n, portErr("i2s.read", err)
}

// stop wakes ring waiters and returns once both pumps have exited. The
// peripheral must keep clocking until then so an in-flight transfer ends.
func (p *pumps) stop() {
	p.once.Do(func() {
		close(p.quit)
		if p.tx != nil {
			p.tx.Close()
		}
		if p.rx != nil {
			p.rx.Close()
		}
	})
	p.wg.Wait()
}
