package provider

import (
	"errors"
	"testing"
	"time"

	"voicehal/errcode"
	"voicehal/services/hal/internal/core"
	"voicehal/types"
)

func i2cCfg(id string, sda, scl types.Pin) core.BusConfig {
	return core.BusConfig{Kind: core.BusI2C, ID: id, SDA: sda, SCL: scl, Hz: 400_000,
		SCK: types.NC, SDO: types.NC, SDI: types.NC, CS: types.NC}
}

func TestClaimPinConflicts(t *testing.T) {
	r := New(NewHost())
	if _, err := r.ClaimPin("amp", 7); err != nil {
		t.Fatal(err)
	}
	_, err := r.ClaimPin("led", 7)
	if errcode.Of(err) != errcode.PinInUse {
		t.Fatalf("want pin_in_use, got %v", err)
	}
	if _, err := r.ClaimPin("x", types.NC); !errors.Is(err, errcode.UnknownPin) {
		t.Fatalf("NC must be rejected, got %v", err)
	}
	if _, err := r.ClaimPin("x", 99); !errors.Is(err, errcode.UnknownPin) {
		t.Fatalf("out of range must be rejected, got %v", err)
	}
}

func TestClaimPinsAllOrNothing(t *testing.T) {
	r := New(NewHost())
	if _, err := r.ClaimPin("button", 1); err != nil {
		t.Fatal(err)
	}
	err := r.ClaimPins("i2s", 4, 5, 1)
	if errcode.Of(err) != errcode.PinInUse {
		t.Fatalf("want pin_in_use, got %v", err)
	}
	for _, p := range []types.Pin{4, 5} {
		if _, held := r.OwnerOf(p); held {
			t.Fatalf("pin %d leaked from a failed claim", p)
		}
	}
	if err := r.ClaimPins("i2s", 4, 5, types.NC); err != nil {
		t.Fatalf("NC should be skipped: %v", err)
	}
	if err := r.ClaimPins("dup", 9, 9); errcode.Of(err) != errcode.PinInUse {
		t.Fatalf("duplicate pin within one claim must conflict, got %v", err)
	}
}

func TestReleaseOnlyOwnPins(t *testing.T) {
	r := New(NewHost())
	_ = r.ClaimPins("a", 10, 11)
	r.ReleasePins("b", 10, 11)
	if o, _ := r.OwnerOf(10); o != "a" {
		t.Fatal("foreign release must not free pins")
	}
	r.ReleasePins("a", 10, 11)
	if _, held := r.OwnerOf(10); held {
		t.Fatal("pin not released")
	}
}

func TestInitializeBus(t *testing.T) {
	host := NewHost(WithI2CDevice("i2c0", 0x18, map[byte]byte{0xFD: 0x83}))
	r := New(host)
	defer r.Close()

	h, err := r.InitializeBus(i2cCfg("i2c0", 2, 3))
	if err != nil {
		t.Fatal(err)
	}
	got := []byte{0}
	if err := h.I2C.Tx(0x18, []byte{0xFD}, got); err != nil || got[0] != 0x83 {
		t.Fatalf("tx through worker: %v %#x", err, got[0])
	}
	if o, _ := r.OwnerOf(2); o != "bus:i2c.i2c0" {
		t.Fatalf("sda owner = %q", o)
	}
	if _, err := r.Bus(core.BusI2C, "i2c0"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Bus(core.BusI2C, "i2c1"); errcode.Of(err) != errcode.UnknownBus {
		t.Fatalf("want unknown_bus, got %v", err)
	}
}

func TestInitializeBusTwicePanics(t *testing.T) {
	r := New(NewHost())
	defer r.Close()
	if _, err := r.InitializeBus(i2cCfg("i2c0", 2, 3)); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("second initialization must panic")
		}
	}()
	_, _ = r.InitializeBus(i2cCfg("i2c0", 2, 3))
}

func TestInitializeBusPinConflict(t *testing.T) {
	r := New(NewHost())
	defer r.Close()
	_ = r.ClaimPins("amp", 3)
	_, err := r.InitializeBus(i2cCfg("i2c0", 2, 3))
	if errcode.Of(err) != errcode.BusInit || !errors.Is(err, errcode.PinInUse) {
		t.Fatalf("want bus_init wrapping pin_in_use, got %v", err)
	}
	if !errcode.Fatal(err) {
		t.Fatal("bus init failure must classify as fatal")
	}
	if _, held := r.OwnerOf(2); held {
		t.Fatal("sda leaked")
	}
}

func TestOpenI2SHalfDuplexSharedPin(t *testing.T) {
	host := NewHost()
	r := New(host)
	cfg := core.I2SConfig{MCLK: types.NC, BCLK: 5, WS: 4, SDI: 6, SDO: 6,
		Rate: 16000, BitDepth: 16, Dirs: core.DirIn | core.DirOut}
	port, err := r.OpenI2S("audio", cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer port.Close()
	if o, _ := r.OwnerOf(6); o != "audio" {
		t.Fatalf("data pin owner = %q", o)
	}
	r.ReleaseI2S("audio", cfg)
	if _, held := r.OwnerOf(5); held {
		t.Fatal("bclk not released")
	}
}

func TestSimI2SStallTimesOut(t *testing.T) {
	s := NewSimI2S(core.I2SConfig{Rate: 16000, BitDepth: 16, Dirs: core.DirOut, DMABufs: 1, DMABufLen: 64}, SimOptions{})
	defer s.Close()
	s.Stall()
	_, err := s.Write(make([]byte, 256), 5*time.Millisecond)
	if errcode.Of(err) != errcode.Timeout {
		t.Fatalf("want timeout, got %v", err)
	}
	s.Resume()
	if _, err := s.Write(make([]byte, 256), time.Second); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Read(make([]byte, 2), 0); errcode.Of(err) != errcode.CapabilityAbsent {
		t.Fatalf("read on output-only port: %v", err)
	}
}

func TestSimI2SCaptureSource(t *testing.T) {
	s := NewSimI2S(core.I2SConfig{Rate: 16000, BitDepth: 16, Dirs: core.DirIn},
		SimOptions{Source: func(n uint64) int16 { return int16(n) }})
	defer s.Close()
	buf := make([]byte, 8)
	if _, err := s.Read(buf, time.Second); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if v := int16(uint16(buf[2*i]) | uint16(buf[2*i+1])<<8); v != int16(i) {
			t.Fatalf("sample %d = %d", i, v)
		}
	}
}
