package i2s

import (
	"math"
	"sync"
	"testing"
	"time"

	"voicehal/errcode"
	"voicehal/services/hal/internal/provider"
	"voicehal/types"

	"github.com/rs/zerolog"
)

func duplexPins() Pins {
	return Pins{MCLK: types.NC, BCLK: 5, WS: 4, DIn: 6, DOut: 7}
}

func newDriver(t *testing.T, opts ...provider.HostOption) (*Driver, *provider.Registry, *provider.HostPlatform) {
	t.Helper()
	host := provider.NewHost(opts...)
	reg := provider.New(host)
	d := New(reg, "audio", zerolog.Nop())
	t.Cleanup(func() { _ = d.Teardown() })
	return d, reg, host
}

func tone(n int) Frame {
	f := make(Frame, n)
	for i := range f {
		f[i] = int16(math.Round(32766 * math.Sin(2*math.Pi*440*float64(i)/16000)))
	}
	return f
}

func TestConfigureIdempotentAndConflict(t *testing.T) {
	d, _, _ := newDriver(t)
	cfg := Config{RateIn: 16000, RateOut: 16000, BitDepth: 16, Duplex: true, Pins: duplexPins()}
	if err := d.Configure(cfg); err != nil {
		t.Fatal(err)
	}
	if err := d.Configure(cfg); err != nil {
		t.Fatalf("identical configure must succeed: %v", err)
	}
	explicit := cfg
	explicit.FrameSamples = DefaultFrameSamples
	if err := d.Configure(explicit); err != nil {
		t.Fatalf("default frame size is the same configuration: %v", err)
	}
	other := cfg
	other.RateOut = 24000
	if err := d.Configure(other); errcode.Of(err) != errcode.ConfigurationConflict {
		t.Fatalf("want configuration_conflict, got %v", err)
	}
	if err := d.Teardown(); err != nil {
		t.Fatal(err)
	}
	if err := d.Configure(other); err != nil {
		t.Fatalf("configure after teardown: %v", err)
	}
}

func TestConfigureValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want errcode.Code
	}{
		{"rate", Config{RateIn: 16000, RateOut: 12345, BitDepth: 16, Duplex: true, Pins: duplexPins()}, errcode.UnsupportedRate},
		{"input rate", Config{RateIn: 96000, RateOut: 16000, BitDepth: 16, Duplex: true, Pins: duplexPins()}, errcode.UnsupportedRate},
		{"bits", Config{RateIn: 16000, RateOut: 16000, BitDepth: 24, Duplex: true, Pins: duplexPins()}, errcode.InvalidParams},
		{"no clock", Config{RateIn: 16000, RateOut: 16000, BitDepth: 16, Duplex: true,
			Pins: Pins{MCLK: types.NC, BCLK: types.NC, WS: 4, DIn: 6, DOut: 7}}, errcode.InvalidParams},
		{"duplex without din", Config{RateOut: 16000, BitDepth: 16, Duplex: true,
			Pins: Pins{MCLK: types.NC, BCLK: 5, WS: 4, DIn: types.NC, DOut: 7}}, errcode.InvalidParams},
		{"simplex with both", Config{RateIn: 16000, RateOut: 16000, BitDepth: 16, Pins: duplexPins()}, errcode.InvalidParams},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d, reg, _ := newDriver(t)
			if err := d.Configure(c.cfg); errcode.Of(err) != c.want {
				t.Fatalf("want %s, got %v", c.want, err)
			}
			if _, held := reg.OwnerOf(5); held {
				t.Fatal("failed configure must not hold pins")
			}
		})
	}
}

func TestWriteReturnsByteCount(t *testing.T) {
	for _, bits := range []uint8{16, 32} {
		d, _, _ := newDriver(t)
		err := d.Configure(Config{RateIn: 16000, RateOut: 16000, BitDepth: bits, Duplex: true, Pins: duplexPins()})
		if err != nil {
			t.Fatal(err)
		}
		n, err := d.Write(tone(1024), time.Second)
		if err != nil {
			t.Fatal(err)
		}
		if want := 1024 * int(bits) / 8; n != want {
			t.Fatalf("%d-bit: wrote %d, want %d", bits, n, want)
		}
	}
}

func TestWriteErrors(t *testing.T) {
	d, _, _ := newDriver(t)
	if _, err := d.Write(nil, 0); errcode.Of(err) != errcode.InvalidFrame {
		t.Fatalf("empty frame: %v", err)
	}
	if _, err := d.Write(tone(8), 0); errcode.Of(err) != errcode.NotConfigured {
		t.Fatalf("unconfigured: %v", err)
	}
	_ = d.Configure(Config{RateIn: 16000, BitDepth: 16,
		Pins: Pins{MCLK: types.NC, BCLK: 5, WS: 4, DIn: 6, DOut: types.NC}})
	if _, err := d.Write(tone(8), 0); errcode.Of(err) != errcode.CapabilityAbsent {
		t.Fatalf("input-only write: %v", err)
	}
	_ = d.Teardown()

	_ = d.Configure(Config{RateOut: 44100, BitDepth: 16, FrameSamples: 256,
		Pins: Pins{MCLK: types.NC, BCLK: 8, WS: 6, DIn: types.NC, DOut: 5}})
	if _, err := d.Write(tone(257), 0); errcode.Of(err) != errcode.InvalidFrame {
		t.Fatalf("oversized frame: %v", err)
	}
	if _, err := d.Read(0); errcode.Of(err) != errcode.CapabilityAbsent {
		t.Fatalf("output-only read: %v", err)
	}
}

func TestWriteTimeoutIsRecoverable(t *testing.T) {
	d, _, host := newDriver(t)
	if err := d.Configure(Config{RateOut: 16000, BitDepth: 16,
		Pins: Pins{MCLK: types.NC, BCLK: 5, WS: 4, DIn: types.NC, DOut: 7}}); err != nil {
		t.Fatal(err)
	}
	sim := host.LastI2S()
	sim.Stall()
	// Fill the ring, then one more frame must time out.
	var err error
	for i := 0; i < 8 && err == nil; i++ {
		_, err = d.Write(tone(1024), 5*time.Millisecond)
	}
	if errcode.Of(err) != errcode.Timeout || !errcode.IsTransport(err) {
		t.Fatalf("want timeout, got %v", err)
	}
	sim.Resume()
	if _, err := d.Write(tone(1024), time.Second); err != nil {
		t.Fatalf("retry after timeout: %v", err)
	}
}

func TestConcurrentWriteIsBusy(t *testing.T) {
	d, _, host := newDriver(t)
	_ = d.Configure(Config{RateOut: 16000, BitDepth: 16, FrameSamples: 1024,
		Pins: Pins{MCLK: types.NC, BCLK: 5, WS: 4, DIn: types.NC, DOut: 7}})
	host.LastI2S().Stall()
	for i := 0; i < 4; i++ { // ring holds four frames
		if _, err := d.Write(tone(1024), 0); err != nil {
			t.Fatal(err)
		}
	}

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		for {
			_, err := d.Write(tone(1024), Forever)
			if errcode.Of(err) != errcode.Busy {
				done <- err
				return
			}
		}
	}()
	<-started
	var err error
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		_, err = d.Write(tone(16), 0)
		if errcode.Of(err) == errcode.Busy {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if errcode.Of(err) != errcode.Busy {
		t.Fatalf("want busy, got %v", err)
	}
	host.LastI2S().Resume()
	if err := <-done; err != nil {
		t.Fatalf("blocked writer: %v", err)
	}
}

func TestHalfDuplexSharesLock(t *testing.T) {
	d, _, host := newDriver(t)
	err := d.Configure(Config{RateIn: 16000, RateOut: 16000, BitDepth: 16, Duplex: true,
		Pins: Pins{MCLK: types.NC, BCLK: 5, WS: 4, DIn: 6, DOut: 6}})
	if err != nil {
		t.Fatal(err)
	}
	host.LastI2S().Stall()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// Drain what the clock captured before the stall, then block.
		for {
			_, err := d.Read(200 * time.Millisecond)
			if err != nil && errcode.Of(err) != errcode.Busy {
				return
			}
		}
	}()
	var werr error
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		_, werr = d.Write(tone(16), 0)
		if errcode.Of(werr) == errcode.Busy {
			break
		}
		time.Sleep(time.Millisecond)
	}
	wg.Wait()
	if errcode.Of(werr) != errcode.Busy {
		t.Fatalf("half duplex write during read: %v", werr)
	}
}

func TestReadFrameLength(t *testing.T) {
	d, _, _ := newDriver(t, provider.WithSim(provider.SimOptions{
		Source: func(n uint64) int16 { return int16(n % 100) },
	}))
	if err := d.Configure(Config{RateIn: 16000, RateOut: 16000, BitDepth: 32, Duplex: true,
		FrameSamples: 512, Pins: duplexPins()}); err != nil {
		t.Fatal(err)
	}
	f, err := d.Read(time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if len(f) != 512 {
		t.Fatalf("frame length %d", len(f))
	}
	if f[1] != 1 || f[99] != 99 {
		t.Fatalf("32-bit slots not decoded: %d %d", f[1], f[99])
	}
}

func TestReadResampledToInputRate(t *testing.T) {
	d, _, host := newDriver(t, provider.WithSim(provider.SimOptions{
		Source: func(n uint64) int16 {
			return int16(8000 * math.Sin(2*math.Pi*300*float64(n)/24000))
		},
	}))
	err := d.Configure(Config{RateIn: 16000, RateOut: 24000, BitDepth: 16, Duplex: true, Pins: duplexPins()})
	if err != nil {
		t.Fatal(err)
	}
	if got := host.LastI2S().Config().Rate; got != 24000 {
		t.Fatalf("wire rate %d, want output rate", got)
	}
	for i := 0; i < 3; i++ {
		f, err := d.Read(2 * time.Second)
		if err != nil {
			t.Fatal(err)
		}
		if len(f) != DefaultFrameSamples {
			t.Fatalf("frame %d has %d samples", i, len(f))
		}
	}
}

func TestTeardownIdempotentReleasesPins(t *testing.T) {
	d, reg, _ := newDriver(t)
	if err := d.Configure(Config{RateIn: 16000, RateOut: 16000, BitDepth: 16, Duplex: true, Pins: duplexPins()}); err != nil {
		t.Fatal(err)
	}
	if o, _ := reg.OwnerOf(6); o != "audio" {
		t.Fatalf("din owner %q", o)
	}
	if err := d.Teardown(); err != nil {
		t.Fatal(err)
	}
	if err := d.Teardown(); err != nil {
		t.Fatalf("second teardown: %v", err)
	}
	for _, p := range []types.Pin{4, 5, 6, 7} {
		if _, held := reg.OwnerOf(p); held {
			t.Fatalf("pin %d still held", p)
		}
	}
	if _, err := d.Write(tone(4), 0); errcode.Of(err) != errcode.NotConfigured {
		t.Fatalf("write after teardown: %v", err)
	}
}

func TestTeardownWakesBlockedWriter(t *testing.T) {
	d, _, host := newDriver(t)
	_ = d.Configure(Config{RateOut: 16000, BitDepth: 16,
		Pins: Pins{MCLK: types.NC, BCLK: 5, WS: 4, DIn: types.NC, DOut: 7}})
	host.LastI2S().Stall()
	errc := make(chan error, 1)
	go func() {
		var err error
		for err == nil {
			_, err = d.Write(tone(1024), Forever)
		}
		errc <- err
	}()
	time.Sleep(10 * time.Millisecond)
	if err := d.Teardown(); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-errc:
		if !errcode.IsTransport(err) {
			t.Fatalf("unexpected error class: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("writer still blocked after teardown")
	}
}

func TestWiring(t *testing.T) {
	cases := map[Wiring]Pins{
		WiringOutputOnly: {DIn: types.NC, DOut: 5},
		WiringInputOnly:  {DIn: 6, DOut: types.NC},
		WiringHalfDuplex: {DIn: 6, DOut: 6},
		WiringFullDuplex: {DIn: 6, DOut: 7},
		WiringNone:       {DIn: types.NC, DOut: types.NC},
	}
	for want, p := range cases {
		if got := p.Wiring(); got != want {
			t.Fatalf("%+v: got %s want %s", p, got, want)
		}
	}
}

func TestSessionKeepsBuffersAcrossReconfigure(t *testing.T) {
	d, _, _ := newDriver(t)
	big := Config{RateIn: 16000, RateOut: 16000, BitDepth: 16, Duplex: true, Pins: duplexPins(), FrameSamples: 1024}
	if err := d.Configure(big); err != nil {
		t.Fatal(err)
	}
	stale, err := d.session("test", true)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Teardown(); err != nil {
		t.Fatal(err)
	}
	small := big
	small.FrameSamples = 256
	if err := d.Configure(small); err != nil {
		t.Fatal(err)
	}
	fresh, err := d.session("test", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(stale.bufs.w) != 1024*2 {
		t.Fatalf("stale write buffer resized to %d", len(stale.bufs.w))
	}
	if len(fresh.bufs.w) != 256*2 || fresh.bufs == stale.bufs {
		t.Fatal("reconfigure must allocate its own buffers")
	}
	// Encoding a full old-size frame into the stale buffer must not panic.
	encode(stale.bufs.w, tone(1024), 2)
}
