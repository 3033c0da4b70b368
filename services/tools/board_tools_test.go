package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"voicehal/bus"
	"voicehal/services/hal"
	"voicehal/services/hal/audio/i2s"
	"voicehal/types"
)

func testBoard(t *testing.T, rgb, battery bool) *hal.Board {
	t.Helper()
	desc := hal.Descriptor{
		Name: "tools-test",
		Audio: hal.AudioDesc{
			Duplex:   true,
			RateIn:   16000,
			RateOut:  16000,
			BitDepth: 16,
			Pins:     i2s.Pins{MCLK: types.NC, BCLK: 2, WS: 3, DIn: 4, DOut: 5},
			Amp:      true,
			AmpPin:   6,
		},
		Buttons:   []hal.ButtonDesc{{Kind: types.ButtonBoot, Pin: 0, ActiveLow: true}},
		RGB:       hal.RGBDesc{Present: rgb, Pin: 20, Count: 1},
		StatusLED: hal.StatusLEDDesc{Present: true, Pin: 21},
		Battery:   hal.BatteryDesc{Present: battery, Pin: 22},
	}
	b, err := hal.New(context.Background(), desc, hal.DefaultPlatform())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func boardRegistry(t *testing.T, b *hal.Board) *Registry {
	t.Helper()
	r := NewRegistry()
	if err := RegisterBoardTools(r, b); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestLEDTool(t *testing.T) {
	b := testBoard(t, true, false)
	r := boardRegistry(t, b)

	res := r.Invoke(context.Background(), "led", json.RawMessage(`{"r":0,"g":0,"b":255}`))
	blue := types.RGB{B: 255}
	if res["success"] != true || res["color"] != blue {
		t.Fatalf("result %v", res)
	}
	d, _ := b.RGBIndicator().Get()
	if d.Color() != blue {
		t.Fatalf("indicator shows %+v", d.Color())
	}
	if msg, ok := r.Invoke(context.Background(), "led", json.RawMessage(`{"r":0,"g":0,"b":256}`)).Err(); !ok {
		t.Fatalf("out of range colour accepted: %s", msg)
	}
}

func TestAbsentCapabilities(t *testing.T) {
	b := testBoard(t, false, false)
	r := boardRegistry(t, b)
	for _, d := range r.List() {
		switch d.Name {
		case "battery", "led", "camera":
			t.Fatalf("tool %s registered for an absent capability", d.Name)
		}
	}
	msg, ok := r.Invoke(context.Background(), "battery", nil).Err()
	if !ok || msg == "" {
		t.Fatal("battery on a board without a monitor should fail")
	}
}

func TestSpeakerTool(t *testing.T) {
	r := boardRegistry(t, testBoard(t, false, false))
	ctx := context.Background()

	res := r.Invoke(ctx, "speaker", json.RawMessage(`{"action":"set_volume","volume":40}`))
	if res["success"] != true || res["volume"] != 40 {
		t.Fatalf("result %v", res)
	}
	res = r.Invoke(ctx, "speaker", json.RawMessage(`{"action":"mute","mute":true}`))
	if res["muted"] != true {
		t.Fatalf("not muted: %v", res)
	}
	if _, ok := r.Invoke(ctx, "speaker", json.RawMessage(`{"action":"louder"}`)).Err(); !ok {
		t.Fatal("enum not enforced")
	}
	if _, ok := r.Invoke(ctx, "speaker", json.RawMessage(`{"action":"set_volume","volume":101}`)).Err(); !ok {
		t.Fatal("volume bound not enforced")
	}
}

func TestBatteryAndStatusTools(t *testing.T) {
	r := boardRegistry(t, testBoard(t, false, true))
	ctx := context.Background()

	res := r.Invoke(ctx, "battery", nil)
	if _, ok := res["voltage"].(float64); !ok || res["success"] != true {
		t.Fatalf("result %v", res)
	}
	if _, ok := res["percentage"].(int); !ok {
		t.Fatalf("result %v", res)
	}
	res = r.Invoke(ctx, "status_led", json.RawMessage(`{"on":true}`))
	if res["on"] != true {
		t.Fatalf("result %v", res)
	}
	res = r.Invoke(ctx, "button", nil)
	if held, ok := res["buttons"].(map[types.ButtonKind]bool); !ok || held[types.ButtonBoot] {
		t.Fatalf("result %v", res)
	}
}

func TestServe(t *testing.T) {
	r := boardRegistry(t, testBoard(t, true, false))
	b := bus.NewBus(16)
	srv := b.NewConnection("tools")
	cli := b.NewConnection("client")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Serve(ctx, srv)
	time.Sleep(10 * time.Millisecond) // let Serve subscribe

	rctx, rcancel := context.WithTimeout(ctx, time.Second)
	defer rcancel()
	reply, err := cli.RequestWait(rctx, cli.NewMessage(CallTopic("led"), json.RawMessage(`{"r":1,"g":2,"b":3}`), false))
	if err != nil {
		t.Fatal(err)
	}
	if res := reply.Payload.(Result); res["success"] != true {
		t.Fatalf("reply %v", res)
	}

	reply, err = cli.RequestWait(rctx, cli.NewMessage(TopicList, nil, false))
	if err != nil {
		t.Fatal(err)
	}
	// speaker, led, status_led, button
	if l := reply.Payload.([]Descriptor); len(l) != 4 {
		t.Fatalf("listed %d tools", len(l))
	}
}
