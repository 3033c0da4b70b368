// Package button polls a GPIO push button and turns debounced levels into
// pressed, released, click and long-press events.
package button

import (
	"context"
	"sync"
	"time"

	"voicehal/services/hal/internal/core"
	"voicehal/types"
	"voicehal/x/timex"
)

const (
	DefaultPoll      = 5 * time.Millisecond
	DefaultDebounce  = 30 * time.Millisecond
	DefaultLongPress = time.Second
)

type Config struct {
	Kind      types.ButtonKind
	Pin       types.Pin
	ActiveLow bool
	Debounce  time.Duration
	LongPress time.Duration
	Poll      time.Duration
}

// Device is one button. Events are delivered to emit from the polling
// goroutine.
type Device struct {
	cfg  Config
	gpio core.GPIOHandle
	pins core.PinClaimer
	emit func(types.ButtonEvent)

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	pressed bool
}

func owner(k types.ButtonKind) string { return "button." + string(k) }

// New claims the button pin and configures it as an input.
func New(pins core.PinClaimer, cfg Config, emit func(types.ButtonEvent)) (*Device, error) {
	if cfg.Poll <= 0 {
		cfg.Poll = DefaultPoll
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.LongPress <= 0 {
		cfg.LongPress = DefaultLongPress
	}
	g, err := pins.ClaimPin(owner(cfg.Kind), cfg.Pin)
	if err != nil {
		return nil, err
	}
	pull := core.PullDown
	if cfg.ActiveLow {
		pull = core.PullUp
	}
	if err := g.ConfigureInput(pull); err != nil {
		pins.ReleasePins(owner(cfg.Kind), cfg.Pin)
		return nil, err
	}
	if emit == nil {
		emit = func(types.ButtonEvent) {}
	}
	return &Device{cfg: cfg, gpio: g, pins: pins, emit: emit}, nil
}

func (d *Device) Kind() types.ButtonKind { return d.cfg.Kind }

// Pressed returns the debounced state.
func (d *Device) Pressed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pressed
}

func (d *Device) raw() bool { return d.gpio.Get() != d.cfg.ActiveLow }

// Start begins polling. Calling it while running is a no-op.
func (d *Device) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return
	}
	ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})
	// Sample before returning so a press right after Start is an edge.
	initial := d.raw()
	d.pressed = initial
	go d.loop(ctx, d.done, initial)
}

// Stop halts polling and waits for the loop to exit.
func (d *Device) Stop() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel, d.done = nil, nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

// Close stops polling and releases the pin.
func (d *Device) Close() error {
	d.Stop()
	d.pins.ReleasePins(owner(d.cfg.Kind), d.cfg.Pin)
	return nil
}

func (d *Device) loop(ctx context.Context, done chan struct{}, initial bool) {
	defer close(done)
	t := time.NewTicker(d.cfg.Poll)
	defer t.Stop()

	stable := initial
	candidate := stable
	var since, pressedAt time.Time
	// A press already in progress at start never reports long_press.
	longSent := stable

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			lvl := d.raw()
			if lvl != candidate {
				candidate, since = lvl, now
			}
			if candidate != stable && now.Sub(since) >= d.cfg.Debounce {
				stable = candidate
				d.setPressed(stable)
				if stable {
					pressedAt, longSent = now, false
					d.send(types.ButtonPressed)
				} else {
					d.send(types.ButtonReleased)
					if !longSent {
						d.send(types.ButtonClick)
					}
				}
			}
			if stable && !longSent && now.Sub(pressedAt) >= d.cfg.LongPress {
				longSent = true
				d.send(types.ButtonLongPress)
			}
		}
	}
}

func (d *Device) setPressed(p bool) {
	d.mu.Lock()
	d.pressed = p
	d.mu.Unlock()
}

func (d *Device) send(edge types.ButtonEdge) {
	d.emit(types.ButtonEvent{Button: d.cfg.Kind, Edge: edge, TSms: timex.NowMs()})
}
