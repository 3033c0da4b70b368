package provider

import (
	"sync/atomic"
	"testing"
	"time"

	"voicehal/errcode"
)

func TestPumpsStopJoinsInFlightCapture(t *testing.T) {
	var active atomic.Int32
	release := make(chan struct{})
	in := func(b []byte) (int, error) {
		active.Add(1)
		defer active.Add(-1)
		<-release
		return len(b), nil
	}
	var played atomic.Int64
	out := func(b []byte) { played.Add(int64(len(b))) }

	p := startPumps(64, 16, out, in)
	if n, err := p.Write(make([]byte, 32), time.Second); err != nil || n != 32 {
		t.Fatalf("write n=%d err=%v", n, err)
	}
	deadline := time.Now().Add(time.Second)
	for played.Load() < 32 {
		if time.Now().After(deadline) {
			t.Fatalf("played %d of 32 bytes", played.Load())
		}
		time.Sleep(time.Millisecond)
	}

	stopped := make(chan struct{})
	go func() {
		p.stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatal("stop returned while a capture was in flight")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("stop did not return after the capture finished")
	}
	if n := active.Load(); n != 0 {
		t.Fatalf("%d captures still running after stop", n)
	}

	p.stop()
	if _, err := p.Read(make([]byte, 2), 0); errcode.Of(err) != errcode.NotConfigured {
		t.Fatalf("read after stop: %v", err)
	}
}

func TestPumpsAbsentDirection(t *testing.T) {
	p := startPumps(64, 16, func([]byte) {}, nil)
	defer p.stop()
	if _, err := p.Read(make([]byte, 2), 0); errcode.Of(err) != errcode.CapabilityAbsent {
		t.Fatalf("want capability_absent, got %v", err)
	}
}
