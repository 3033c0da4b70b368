package camera

import (
	"context"
	"testing"
	"time"

	"voicehal/errcode"
	"voicehal/services/hal/internal/provider"
	"voicehal/types"
)

var pins = types.CameraPins{
	PWDN: types.NC, Reset: types.NC, XCLK: 10, SIOD: 11, SIOC: 12,
	D:     [8]types.Pin{13, 14, 15, 16, 17, 18, 19, 20},
	VSync: 21, HRef: 22, PCLK: 23,
}

func TestCapture(t *testing.T) {
	cam := &provider.HostCamera{Frame: []byte{1, 2, 3}}
	host := provider.NewHost(provider.WithCamera(cam))
	reg := provider.New(host)
	d, err := New(reg, host, pins, 0)
	if err != nil {
		t.Fatal(err)
	}
	frame, err := d.Capture(context.Background())
	if err != nil || len(frame) != 3 {
		t.Fatalf("frame=%v err=%v", frame, err)
	}
	if len(d.Last()) != 3 || cam.Captures() != 1 {
		t.Fatal("last frame not kept")
	}
	_ = d.Close()
	if _, held := reg.OwnerOf(10); held {
		t.Fatal("close should release pins")
	}
}

func TestCaptureTimeoutAndBusy(t *testing.T) {
	cam := &provider.HostCamera{Delay: 200 * time.Millisecond}
	host := provider.NewHost(provider.WithCamera(cam))
	d, err := New(provider.New(host), host, pins, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	started := make(chan struct{})
	errc := make(chan error, 1)
	go func() {
		close(started)
		_, err := d.Capture(context.Background())
		errc <- err
	}()
	<-started
	time.Sleep(10 * time.Millisecond)
	if _, err := d.Capture(context.Background()); errcode.Of(err) != errcode.Busy {
		t.Fatalf("want busy, got %v", err)
	}
	if err := <-errc; errcode.Of(err) != errcode.Timeout {
		t.Fatalf("want timeout, got %v", err)
	}
}

func TestInitFailureReleasesPins(t *testing.T) {
	host := provider.NewHost(provider.WithCamera(&provider.HostCamera{InitErr: errcode.New(errcode.Error, "init", "no ack")}))
	reg := provider.New(host)
	if _, err := New(reg, host, pins, 0); err == nil {
		t.Fatal("expected init error")
	}
	if _, held := reg.OwnerOf(23); held {
		t.Fatal("pins leaked after failed init")
	}
}
