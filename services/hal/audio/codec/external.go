package codec

import (
	"sync"
	"time"

	"voicehal/drivers/es8311"
	"voicehal/errcode"
	"voicehal/services/hal/audio/i2s"
	"voicehal/x/mathx"
)

// External drives an ES8311 over I2C. The codec is programmed before the
// transport clocks start.
type External struct {
	base
	dev  *es8311.Device
	addr uint16
	hw   *hwOutput
}

func newExternal(spec Spec, deps Deps, vol int) *External {
	e := &External{
		base: newBase("es8311", spec.Transport, deps, vol),
		dev:  es8311.New(deps.CodecBus),
		addr: spec.CodecAddr,
	}
	if e.base.out != nil {
		e.hw = &hwOutput{tr: deps.Transport, dev: e.dev, volume: mathx.Clamp(vol, 0, 100)}
	}
	return e
}

func (*External) Variant() Variant { return VariantExternal }

// Start programs the codec, then configures the transport. A programming
// failure leaves the transport untouched.
func (e *External) Start() error {
	cfg := es8311.Config{
		Address:      e.addr,
		SampleRate:   e.cfg.WireRate(),
		BitDepth:     e.cfg.BitDepth,
		MCLKFromBCLK: !e.cfg.Pins.MCLK.Valid(),
		Mic:          e.cfg.HasInput(),
	}
	if e.hw != nil {
		cfg.Volume = e.hw.Volume()
	}
	if err := e.dev.Configure(cfg); err != nil {
		return errcode.Wrap(errcode.CodecProgrammingFailure, "es8311.configure", err)
	}
	return e.tr.Configure(e.cfg)
}

func (e *External) Stop() error {
	if err := e.dev.Standby(); err != nil {
		e.log.Warn().Err(err).Msg("Codec standby failed")
	}
	return e.tr.Teardown()
}

func (e *External) Close() error { return e.Stop() }

func (e *External) Output() (Output, error) {
	if e.hw == nil {
		return nil, errcode.New(errcode.CapabilityAbsent, "codec.output", "es8311 has no output")
	}
	return e.hw, nil
}

// hwOutput programs volume and mute into the codec's DAC.
type hwOutput struct {
	tr  *i2s.Driver
	dev *es8311.Device

	mu     sync.Mutex
	volume int
	muted  bool
}

func (o *hwOutput) Write(f i2s.Frame, timeout time.Duration) (int, error) {
	return o.tr.Write(f, timeout)
}

func (o *hwOutput) SetVolume(v int) error {
	v = mathx.Clamp(v, 0, 100)
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.dev.SetVolume(v); err != nil {
		return errcode.Wrap(errcode.Transport, "es8311.volume", err)
	}
	o.volume = v
	return nil
}

func (o *hwOutput) Volume() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

func (o *hwOutput) SetMute(m bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.dev.SetMute(m); err != nil {
		return errcode.Wrap(errcode.Transport, "es8311.mute", err)
	}
	o.muted = m
	return nil
}

func (o *hwOutput) Muted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.muted
}
