// Package camera wraps a frame sensor with a bounded, single-flight capture.
package camera

import (
	"context"
	"sync"
	"time"

	"voicehal/errcode"
	"voicehal/services/hal/internal/core"
	"voicehal/types"
)

const (
	Owner          = "camera"
	DefaultTimeout = 3 * time.Second
)

type Opener interface {
	Camera(pins types.CameraPins) (core.CameraSensor, error)
}

type Device struct {
	pins    core.PinClaimer
	wiring  types.CameraPins
	sensor  core.CameraSensor
	timeout time.Duration

	busy sync.Mutex

	mu   sync.Mutex
	last []byte
}

// New claims every camera pin, opens and initialises the sensor.
func New(pins core.PinClaimer, open Opener, wiring types.CameraPins, timeout time.Duration) (*Device, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	claimed := wiring.All()
	if err := claimAll(pins, claimed); err != nil {
		return nil, err
	}
	s, err := open.Camera(wiring)
	if err == nil {
		err = s.Init()
	}
	if err != nil {
		pins.ReleasePins(Owner, claimed...)
		return nil, err
	}
	return &Device{pins: pins, wiring: wiring, sensor: s, timeout: timeout}, nil
}

type multiClaimer interface {
	ClaimPins(owner string, pins ...types.Pin) error
}

func claimAll(pins core.PinClaimer, list []types.Pin) error {
	if mc, ok := pins.(multiClaimer); ok {
		return mc.ClaimPins(Owner, list...)
	}
	for i, p := range list {
		if _, err := pins.ClaimPin(Owner, p); err != nil {
			pins.ReleasePins(Owner, list[:i]...)
			return err
		}
	}
	return nil
}

// Capture grabs one frame, bounded by the device timeout and ctx. A
// second caller while a capture runs gets busy.
func (d *Device) Capture(ctx context.Context) ([]byte, error) {
	if !d.busy.TryLock() {
		return nil, errcode.New(errcode.Busy, "camera.capture", "capture in progress")
	}
	defer d.busy.Unlock()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	frame, err := d.sensor.Capture(ctx)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errcode.Wrap(errcode.Timeout, "camera.capture", err)
		}
		return nil, errcode.Wrap(errcode.Transport, "camera.capture", err)
	}
	d.mu.Lock()
	d.last = frame
	d.mu.Unlock()
	return frame, nil
}

// Last returns the most recent frame.
func (d *Device) Last() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

func (d *Device) Close() error {
	err := d.sensor.Close()
	d.pins.ReleasePins(Owner, d.wiring.All()...)
	return err
}
