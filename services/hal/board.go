// Package hal brings a board up from its Descriptor and exposes what it
// found as capability slots.
package hal

import (
	"context"
	"sort"
	"sync"

	"voicehal/bus"
	"voicehal/errcode"
	"voicehal/services/hal/audio/codec"
	"voicehal/services/hal/audio/i2s"
	"voicehal/services/hal/devices/battery"
	"voicehal/services/hal/devices/button"
	"voicehal/services/hal/devices/camera"
	"voicehal/services/hal/devices/display"
	"voicehal/services/hal/devices/led"
	"voicehal/services/hal/devices/rgbled"
	"voicehal/services/hal/internal/core"
	"voicehal/services/hal/internal/provider"
	"voicehal/types"
	"voicehal/x/logx"
	"voicehal/x/mathx"
	"voicehal/x/timex"

	"github.com/rs/zerolog"
)

// Platform opens raw peripherals for a board. Use DefaultPlatform for the
// build target.
type Platform = core.Platform

const (
	i2sOwner   = "audio.i2s"
	volumeStep = 10
)

// Option configures New.
type Option func(*options)

type options struct {
	log  zerolog.Logger
	conn *bus.Connection
}

// WithLogger sets the bring-up and runtime logger.
func WithLogger(l zerolog.Logger) Option { return func(o *options) { o.log = l } }

// WithConnection publishes HAL state, capability status and button events
// on conn.
func WithConnection(c *bus.Connection) Option { return func(o *options) { o.conn = c } }

// Board is the capability registry for one board. Slots are bound once in
// New and never rebound.
type Board struct {
	desc Descriptor
	reg  *provider.Registry
	log  zerolog.Logger
	conn *bus.Connection

	transport *i2s.Driver
	codec     Slot[codec.Codec]
	buttons   map[types.ButtonKind]*button.Device
	camera    Slot[*camera.Device]
	rgb       Slot[*rgbled.Device]
	battery   Slot[*battery.Device]
	statusLED Slot[*led.Device]
	display   Slot[*display.Device]

	mu      sync.Mutex
	status  map[types.Kind]types.CapabilityStatus
	started bool
	closed  bool
}

// New validates desc and brings the board up. Bus initialization errors
// are returned; every later capability that fails is logged and left
// absent.
func New(ctx context.Context, desc Descriptor, p Platform, opts ...Option) (*Board, error) {
	o := options{log: zerolog.Nop()}
	for _, fn := range opts {
		fn(&o)
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errcode.New(errcode.InvalidParams, "hal.new", "nil platform")
	}

	b := &Board{
		desc:    desc,
		reg:     provider.New(p),
		log:     o.log.With().Str("board", desc.Name).Logger(),
		conn:    o.conn,
		buttons: map[types.ButtonKind]*button.Device{},
		status:  map[types.Kind]types.CapabilityStatus{},
	}
	b.log.Info().
		Str("platform", p.Name()).
		Msg("Board bring-up")

	if err := b.initBuses(); err != nil {
		b.reg.Close()
		return nil, err
	}

	// Mandatory capabilities first, then optional ones in a fixed order.
	b.initAudio()
	b.initButtons()
	if ctx.Err() != nil {
		b.Close()
		return nil, ctx.Err()
	}
	b.initCamera()
	b.initRGB()
	b.initBattery()
	b.initStatusLED()
	b.initDisplay()

	b.log.Info().
		Interface("capabilities", b.Capabilities()).
		Msg("Board ready")
	return b, nil
}

// -----------------------------------------------------------------------------
// Bring-up
// -----------------------------------------------------------------------------

func (b *Board) initBuses() error {
	for _, d := range b.desc.I2C {
		_, err := b.reg.InitializeBus(core.BusConfig{
			Kind: core.BusI2C, ID: d.ID, Hz: d.Hz,
			SDA: d.SDA, SCL: d.SCL,
			SCK: types.NC, SDO: types.NC, SDI: types.NC, CS: types.NC,
		})
		if err != nil {
			b.log.Error().Err(err).Str("bus", d.ID).Msg("I2C bus init failed")
			return err
		}
	}
	for _, d := range b.desc.SPI {
		_, err := b.reg.InitializeBus(core.BusConfig{
			Kind: core.BusSPI, ID: d.ID, Hz: d.Hz,
			SDA: types.NC, SCL: types.NC,
			SCK: d.SCK, SDO: d.MOSI, SDI: d.MISO, CS: d.CS,
		})
		if err != nil {
			b.log.Error().Err(err).Str("bus", d.ID).Msg("SPI bus init failed")
			return err
		}
	}
	return nil
}

func (b *Board) initAudio() {
	a := b.desc.Audio
	l := logx.Cap(b.log, string(types.KindAudio))
	b.transport = i2s.New(b.reg, i2sOwner, l)

	spec := codec.Spec{
		External:     a.Codec == CodecExternal,
		Transport:    a.transport(),
		AmpPin:       types.NC,
		AmpActiveLow: a.AmpActiveLow,
		CodecAddr:    a.CodecAddr,
		Volume:       a.Volume,
	}
	if a.Amp {
		spec.AmpPin = a.AmpPin
	}
	deps := codec.Deps{Transport: b.transport, Pins: b.reg, Log: l}
	if spec.External {
		h, err := b.reg.Bus(core.BusI2C, a.CodecBus)
		if err != nil {
			b.fail(types.KindAudio, "", err)
			return
		}
		deps.CodecBus = h.I2C
	}

	c, err := codec.Select(spec, deps)
	if err != nil {
		b.fail(types.KindAudio, "", err)
		return
	}
	if err := c.Start(); err != nil {
		_ = c.Close()
		b.fail(types.KindAudio, c.Name(), err)
		return
	}
	b.codec = Present(c)
	b.up(types.KindAudio, c.Name())
	l.Info().
		Str("variant", c.Variant().String()).
		Uint32("rate_in", a.RateIn).
		Uint32("rate_out", a.RateOut).
		Msg("Audio codec started")
}

func (b *Board) initButtons() {
	for _, d := range b.desc.Buttons {
		dev, err := button.New(b.reg, button.Config{
			Kind:      d.Kind,
			Pin:       d.Pin,
			ActiveLow: d.ActiveLow,
			Debounce:  d.Debounce,
			LongPress: d.LongPress,
		}, b.onButton)
		if err != nil {
			b.fail(types.KindButton, string(d.Kind), err)
			continue
		}
		b.buttons[d.Kind] = dev
		b.up(types.KindButton, string(d.Kind))
	}
}

func (b *Board) initCamera() {
	d := b.desc.Camera
	if !d.Present {
		return
	}
	dev, err := camera.New(b.reg, b.reg.Platform(), d.Pins, d.Timeout)
	if err != nil {
		b.fail(types.KindCamera, "", err)
		return
	}
	b.camera = Present(dev)
	b.up(types.KindCamera, "")
}

func (b *Board) initRGB() {
	d := b.desc.RGB
	if !d.Present {
		return
	}
	dev, err := rgbled.New(b.reg, b.reg.Platform(), d.Pin, d.Count)
	if err != nil {
		b.fail(types.KindRGBIndicator, "", err)
		return
	}
	b.rgb = Present(dev)
	b.up(types.KindRGBIndicator, "")
}

func (b *Board) initBattery() {
	d := b.desc.Battery
	if !d.Present {
		return
	}
	dev, err := battery.New(b.reg, b.reg.Platform(), battery.Config{
		Pin:         d.Pin,
		DividerNum:  d.DividerNum,
		DividerDen:  d.DividerDen,
		EmptyMilliV: d.EmptyMilliV,
		FullMilliV:  d.FullMilliV,
	})
	if err != nil {
		b.fail(types.KindBattery, "", err)
		return
	}
	b.battery = Present(dev)
	b.up(types.KindBattery, "")
}

func (b *Board) initStatusLED() {
	d := b.desc.StatusLED
	if !d.Present {
		return
	}
	dev, err := led.New(b.reg, d.Pin, d.ActiveLow)
	if err != nil {
		b.fail(types.KindStatusLED, "", err)
		return
	}
	b.statusLED = Present(dev)
	b.up(types.KindStatusLED, "")
}

func (b *Board) initDisplay() {
	d := b.desc.Display
	if !d.Present {
		return
	}
	dev, err := display.New(b.reg, display.Config{
		Backlight: d.Backlight,
		Invert:    d.Invert,
		Width:     d.Width,
		Height:    d.Height,
	})
	if err != nil {
		b.fail(types.KindDisplay, "", err)
		return
	}
	b.display = Present(dev)
	b.up(types.KindDisplay, "")
}

func (b *Board) up(kind types.Kind, name string) {
	b.setStatus(types.CapabilityStatus{Kind: kind, Name: name, Link: types.LinkUp, TSms: timex.NowMs()})
}

func (b *Board) fail(kind types.Kind, name string, err error) {
	b.log.Warn().
		Err(err).
		Str("cap", string(kind)).
		Str("name", name).
		Str("code", string(errcode.Of(err))).
		Msg("Capability bring-up failed; slot left absent")
	b.setStatus(types.CapabilityStatus{
		Kind: kind, Name: name, Link: types.LinkFailed,
		TSms: timex.NowMs(), Error: string(errcode.Of(err)),
	})
}

func (b *Board) setStatus(st types.CapabilityStatus) {
	b.mu.Lock()
	if st.Kind != types.KindButton {
		b.status[st.Kind] = st
	}
	b.mu.Unlock()
	if b.conn != nil {
		name := st.Name
		if name == "" {
			name = string(st.Kind)
		}
		b.conn.Publish(b.conn.NewMessage(core.TopicCapStatus(string(st.Kind), name), st, true))
	}
}

// -----------------------------------------------------------------------------
// Accessors
// -----------------------------------------------------------------------------

func (b *Board) Name() string { return b.desc.Name }

func (b *Board) Descriptor() Descriptor { return b.desc }

func (b *Board) AudioCodec() Slot[codec.Codec] { return b.codec }

// AudioTransport is bound whenever the codec is.
func (b *Board) AudioTransport() Slot[*i2s.Driver] {
	if !b.codec.Bound() {
		return Absent[*i2s.Driver]()
	}
	return Present(b.transport)
}

// Speaker returns the output path of the audio codec.
func (b *Board) Speaker() Slot[codec.Output] {
	c, ok := b.codec.Get()
	if !ok {
		return Absent[codec.Output]()
	}
	out, err := c.Output()
	if err != nil {
		return Absent[codec.Output]()
	}
	return Present(out)
}

// Microphone returns the input path of the audio codec.
func (b *Board) Microphone() Slot[codec.Input] {
	c, ok := b.codec.Get()
	if !ok {
		return Absent[codec.Input]()
	}
	in, err := c.Input()
	if err != nil {
		return Absent[codec.Input]()
	}
	return Present(in)
}

func (b *Board) Button(kind types.ButtonKind) Slot[*button.Device] {
	if d, ok := b.buttons[kind]; ok {
		return Present(d)
	}
	return Absent[*button.Device]()
}

func (b *Board) Camera() Slot[*camera.Device]          { return b.camera }
func (b *Board) RGBIndicator() Slot[*rgbled.Device]    { return b.rgb }
func (b *Board) BatteryMonitor() Slot[*battery.Device] { return b.battery }
func (b *Board) StatusIndicator() Slot[*led.Device]    { return b.statusLED }
func (b *Board) Display() Slot[*display.Device]        { return b.display }

// Capabilities lists the bound capability kinds in a stable order.
func (b *Board) Capabilities() []types.Kind {
	var out []types.Kind
	if b.codec.Bound() {
		out = append(out, types.KindAudio)
	}
	if len(b.buttons) > 0 {
		out = append(out, types.KindButton)
	}
	if b.camera.Bound() {
		out = append(out, types.KindCamera)
	}
	if b.rgb.Bound() {
		out = append(out, types.KindRGBIndicator)
	}
	if b.battery.Bound() {
		out = append(out, types.KindBattery)
	}
	if b.statusLED.Bound() {
		out = append(out, types.KindStatusLED)
	}
	if b.display.Bound() {
		out = append(out, types.KindDisplay)
	}
	return out
}

// Status returns the last bring-up status of each non-button capability.
func (b *Board) Status() []types.CapabilityStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]types.CapabilityStatus, 0, len(b.status))
	for _, st := range b.status {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start begins button polling and publishes the ready state. It may be
// called once.
func (b *Board) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errcode.New(errcode.NotConfigured, "hal.start", "board closed")
	}
	if b.started {
		b.mu.Unlock()
		return nil
	}
	b.started = true
	b.mu.Unlock()

	for _, d := range b.buttons {
		d.Start(ctx)
	}
	b.publishState("ready", "started")
	return nil
}

// Close stops buttons, disables the amplifier, tears the transport down and
// releases every pin. It is idempotent.
func (b *Board) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	for _, d := range b.buttons {
		keep(d.Close())
	}
	if c, ok := b.codec.Get(); ok {
		keep(c.Close())
	} else if b.transport != nil {
		keep(b.transport.Teardown())
	}
	if d, ok := b.camera.Get(); ok {
		keep(d.Close())
	}
	if d, ok := b.rgb.Get(); ok {
		keep(d.Close())
	}
	if d, ok := b.battery.Get(); ok {
		keep(d.Close())
	}
	if d, ok := b.statusLED.Get(); ok {
		keep(d.Close())
	}
	if d, ok := b.display.Get(); ok {
		keep(d.Close())
	}
	b.reg.Close()
	b.publishState("stopped", "closed")
	b.log.Info().Msg("Board closed")
	return first
}

func (b *Board) publishState(level, status string) {
	if b.conn == nil {
		return
	}
	b.conn.Publish(b.conn.NewMessage(core.TopicState(), types.HALState{
		Level:        level,
		Status:       status,
		Board:        b.desc.Name,
		Capabilities: b.Capabilities(),
		TSms:         timex.NowMs(),
	}, true))
}

// -----------------------------------------------------------------------------
// Buttons
// -----------------------------------------------------------------------------

func (b *Board) onButton(ev types.ButtonEvent) {
	b.log.Debug().
		Str("button", string(ev.Button)).
		Str("edge", string(ev.Edge)).
		Msg("Button event")
	b.stepVolume(ev)
	if b.conn != nil {
		b.conn.Publish(b.conn.NewMessage(core.TopicButtonEvent(string(ev.Button), string(ev.Edge)), ev, false))
	}
}

// stepVolume applies the volume buttons: click steps by volumeStep, a long
// press on up jumps to full and on down toggles mute.
func (b *Board) stepVolume(ev types.ButtonEvent) {
	if ev.Edge != types.ButtonClick && ev.Edge != types.ButtonLongPress {
		return
	}
	if ev.Button != types.ButtonVolumeUp && ev.Button != types.ButtonVolumeDown {
		return
	}
	out, ok := b.Speaker().Get()
	if !ok {
		return
	}
	var err error
	switch {
	case ev.Button == types.ButtonVolumeUp && ev.Edge == types.ButtonClick:
		err = out.SetVolume(mathx.Min(out.Volume()+volumeStep, 100))
	case ev.Button == types.ButtonVolumeUp:
		err = out.SetVolume(100)
	case ev.Edge == types.ButtonClick:
		err = out.SetVolume(mathx.Max(out.Volume()-volumeStep, 0))
	default:
		err = out.SetMute(!out.Muted())
	}
	if err != nil {
		b.log.Warn().Err(err).Msg("Volume change failed")
		return
	}
	b.log.Info().
		Int("volume", out.Volume()).
		Bool("muted", out.Muted()).
		Msg("Speaker volume changed")
}
