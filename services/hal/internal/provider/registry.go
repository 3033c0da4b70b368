// Package provider owns board resources: shared buses and exclusive pin
// claims. Every peripheral is opened through a Registry so descriptor
// conflicts surface as errors instead of two drivers fighting over a pin.
package provider

import (
	"fmt"
	"sync"

	"voicehal/errcode"
	"voicehal/services/hal/internal/core"
	"voicehal/types"
)

type busKey struct {
	kind core.BusKind
	id   string
}

// Registry tracks pin ownership and initialized buses on top of a Platform.
type Registry struct {
	mu   sync.Mutex
	plat core.Platform

	pinOwners map[types.Pin]string // pin -> owner
	buses     map[busKey]core.BusHandle
	i2cOwners []*i2cOwner
}

func New(p core.Platform) *Registry {
	return &Registry{
		plat:      p,
		pinOwners: make(map[types.Pin]string),
		buses:     make(map[busKey]core.BusHandle),
	}
}

func (r *Registry) Platform() core.Platform { return r.plat }

// InitializeBus claims the bus pins and opens the bus. Calling it twice for
// the same bus is a programming error and panics.
func (r *Registry) InitializeBus(cfg core.BusConfig) (core.BusHandle, error) {
	key := busKey{cfg.Kind, cfg.ID}
	r.mu.Lock()
	if _, dup := r.buses[key]; dup {
		r.mu.Unlock()
		panic(fmt.Sprintf("provider: %s bus %q initialized twice", cfg.Kind, cfg.ID))
	}
	r.mu.Unlock()

	op := cfg.Kind.String() + "." + cfg.ID
	owner := "bus:" + op
	pins := cfg.Pins()
	if cfg.Kind == core.BusI2C && len(pins) != 2 {
		return core.BusHandle{}, errcode.New(errcode.BusInit, op, "sda and scl required")
	}
	if err := r.ClaimPins(owner, pins...); err != nil {
		return core.BusHandle{}, errcode.Wrap(errcode.BusInit, op, err)
	}

	h := core.BusHandle{Kind: cfg.Kind, ID: cfg.ID}
	switch cfg.Kind {
	case core.BusI2C:
		raw, err := r.plat.OpenI2C(cfg)
		if err != nil {
			r.ReleasePins(owner, pins...)
			return core.BusHandle{}, errcode.Wrap(errcode.BusInit, op, err)
		}
		o := newI2COwner(raw)
		h.I2C = &serialI2C{o: o, timeout: i2cTimeout}
		r.mu.Lock()
		r.i2cOwners = append(r.i2cOwners, o)
		r.mu.Unlock()
	case core.BusSPI:
		spi, err := r.plat.OpenSPI(cfg)
		if err != nil {
			r.ReleasePins(owner, pins...)
			return core.BusHandle{}, errcode.Wrap(errcode.BusInit, op, err)
		}
		h.SPI = spi
	default:
		r.ReleasePins(owner, pins...)
		return core.BusHandle{}, errcode.New(errcode.BusInit, op, "unknown bus kind")
	}

	r.mu.Lock()
	r.buses[key] = h
	r.mu.Unlock()
	return h, nil
}

// Bus looks up an initialized bus.
func (r *Registry) Bus(kind core.BusKind, id string) (core.BusHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.buses[busKey{kind, id}]
	if !ok {
		return core.BusHandle{}, errcode.New(errcode.UnknownBus, kind.String()+"."+id, "not initialized")
	}
	return h, nil
}

// ClaimPin claims a single pin for GPIO use.
func (r *Registry) ClaimPin(owner string, pin types.Pin) (core.GPIOHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !pin.Valid() {
		return nil, errcode.UnknownPin
	}
	g, ok := r.plat.GPIO(pin)
	if !ok {
		return nil, errcode.UnknownPin
	}
	if cur, inUse := r.pinOwners[pin]; inUse {
		return nil, pinConflict(pin, cur, owner)
	}
	r.pinOwners[pin] = owner
	return g, nil
}

// ClaimPins claims every wired pin for owner, or none of them. NC entries
// are skipped. A pin listed twice is a conflict.
func (r *Registry) ClaimPins(owner string, pins ...types.Pin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[types.Pin]bool, len(pins))
	for _, p := range pins {
		if !p.Valid() {
			continue
		}
		if _, ok := r.plat.GPIO(p); !ok {
			return errcode.UnknownPin
		}
		if cur, inUse := r.pinOwners[p]; inUse {
			return pinConflict(p, cur, owner)
		}
		if seen[p] {
			return pinConflict(p, owner, owner)
		}
		seen[p] = true
	}
	for p := range seen {
		r.pinOwners[p] = owner
	}
	return nil
}

// ReleasePins frees pins held by owner. Pins held by someone else are left
// alone.
func (r *Registry) ReleasePins(owner string, pins ...types.Pin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pins {
		if cur, ok := r.pinOwners[p]; ok && cur == owner {
			delete(r.pinOwners, p)
		}
	}
}

// OwnerOf reports who holds pin.
func (r *Registry) OwnerOf(pin types.Pin) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.pinOwners[pin]
	return o, ok
}

// OpenI2S claims the transport pins for owner and opens the port. On
// failure nothing stays claimed.
func (r *Registry) OpenI2S(owner string, cfg core.I2SConfig) (core.I2SPort, error) {
	pins := []types.Pin{cfg.MCLK, cfg.BCLK, cfg.WS, cfg.SDO}
	if cfg.SDI != cfg.SDO {
		pins = append(pins, cfg.SDI)
	}
	if err := r.ClaimPins(owner, pins...); err != nil {
		return nil, err
	}
	port, err := r.plat.OpenI2S(cfg)
	if err != nil {
		r.ReleasePins(owner, pins...)
		return nil, err
	}
	return port, nil
}

// ReleaseI2S undoes OpenI2S's pin claims. The caller closes the port.
func (r *Registry) ReleaseI2S(owner string, cfg core.I2SConfig) {
	r.ReleasePins(owner, cfg.MCLK, cfg.BCLK, cfg.WS, cfg.SDO, cfg.SDI)
}

// Close stops background bus workers.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.i2cOwners {
		o.stop()
	}
	r.i2cOwners = nil
}

func pinConflict(p types.Pin, cur, want string) error {
	return fmt.Errorf("pin %d held by %s, wanted by %s: %w", p, cur, want, errcode.PinInUse)
}
