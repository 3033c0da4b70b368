package provider

import (
	"time"

	"voicehal/errcode"

	"tinygo.org/x/drivers"
)

const i2cTimeout = 250 * time.Millisecond

// request posted to the per-bus worker
type i2cReq struct {
	addr uint16
	w, r []byte
	done chan error // buffered(1); worker replies best-effort
}

// i2cOwner serialises every transaction on one bus through a single
// goroutine, so drivers sharing the bus never interleave.
type i2cOwner struct {
	hw   drivers.I2C
	reqs chan i2cReq
	quit chan struct{}
}

func newI2COwner(hw drivers.I2C) *i2cOwner {
	o := &i2cOwner{
		hw:   hw,
		reqs: make(chan i2cReq, 16),
		quit: make(chan struct{}),
	}
	go o.loop()
	return o
}

func (o *i2cOwner) loop() {
	for {
		select {
		case req := <-o.reqs:
			err := o.hw.Tx(req.addr, req.w, req.r)
			select {
			case req.done <- err:
			default:
			}
		case <-o.quit:
			return
		}
	}
}

func (o *i2cOwner) stop() {
	select {
	case <-o.quit:
	default:
		close(o.quit)
	}
}

// serialI2C adapts the owner to drivers.I2C with a per-call timeout.
type serialI2C struct {
	o       *i2cOwner
	timeout time.Duration // 0 => no deadline
}

var _ drivers.I2C = (*serialI2C)(nil)

func (d *serialI2C) Tx(addr uint16, w, r []byte) error {
	req := i2cReq{addr: addr, w: w, r: r, done: make(chan error, 1)}

	if d.timeout <= 0 {
		select {
		case d.o.reqs <- req:
		case <-d.o.quit:
			return errcode.NotConfigured
		}
		return <-req.done
	}

	t := time.NewTimer(d.timeout)
	defer t.Stop()
	select {
	case d.o.reqs <- req:
	case <-t.C:
		return errcode.Busy
	case <-d.o.quit:
		return errcode.NotConfigured
	}
	select {
	case err := <-req.done:
		return err
	case <-t.C:
		return errcode.Timeout
	}
}
