package tools

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"voicehal/services/hal"
	"voicehal/types"

	"github.com/google/jsonschema-go/jsonschema"
)

var errInvalidAction = errors.New("Invalid action")

func ptr[T any](v T) *T { return &v }

func enum(prop string, values ...any) func(*jsonschema.Schema) {
	return func(s *jsonschema.Schema) {
		if p := s.Properties[prop]; p != nil {
			p.Enum = values
		}
	}
}

func bounds(lo, hi float64, props ...string) func(*jsonschema.Schema) {
	return func(s *jsonschema.Schema) {
		for _, name := range props {
			if p := s.Properties[name]; p != nil {
				p.Minimum, p.Maximum = ptr(lo), ptr(hi)
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Argument types
// -----------------------------------------------------------------------------

type SpeakerArgs struct {
	Action string `json:"action" jsonschema:"set_volume, mute or get"`
	Volume *int   `json:"volume,omitempty" jsonschema:"volume 0..100 for set_volume"`
	Mute   *bool  `json:"mute,omitempty" jsonschema:"mute state for mute"`
}

type LEDArgs struct {
	R int `json:"r" jsonschema:"red 0..255"`
	G int `json:"g" jsonschema:"green 0..255"`
	B int `json:"b" jsonschema:"blue 0..255"`
}

type BatteryArgs struct{}

type CameraArgs struct {
	Action string `json:"action" jsonschema:"capture"`
	Encode bool   `json:"encode,omitempty" jsonschema:"include the frame as base64"`
}

type StatusLEDArgs struct {
	On bool `json:"on"`
}

type ButtonArgs struct{}

// RegisterBoardTools registers a tool for each capability the board has
// bound. Absent capabilities get no tool.
func RegisterBoardTools(r *Registry, b *hal.Board) error {
	var regs []func() error

	if b.Speaker().Bound() {
		regs = append(regs, func() error {
			return Register(r, "speaker", "Speaker volume and mute control",
				func(_ context.Context, a SpeakerArgs) (Result, error) { return speaker(b, a) },
				enum("action", "set_volume", "mute", "get"), bounds(0, 100, "volume"))
		})
	}
	if b.RGBIndicator().Bound() {
		regs = append(regs, func() error {
			return Register(r, "led", "Set the RGB indicator colour",
				func(_ context.Context, a LEDArgs) (Result, error) { return rgb(b, a) },
				bounds(0, 255, "r", "g", "b"))
		})
	}
	if b.BatteryMonitor().Bound() {
		regs = append(regs, func() error {
			return Register(r, "battery", "Read battery voltage and charge",
				func(_ context.Context, _ BatteryArgs) (Result, error) { return batteryTool(b) })
		})
	}
	if b.Camera().Bound() {
		regs = append(regs, func() error {
			return Register(r, "camera", "Capture one camera frame",
				func(ctx context.Context, a CameraArgs) (Result, error) { return cameraTool(ctx, b, a) },
				enum("action", "capture"))
		})
	}
	if b.StatusIndicator().Bound() {
		regs = append(regs, func() error {
			return Register(r, "status_led", "Switch the status LED",
				func(_ context.Context, a StatusLEDArgs) (Result, error) { return statusLED(b, a) })
		})
	}
	if len(heldButtons(b)) > 0 {
		regs = append(regs, func() error {
			return Register(r, "button", "Report which buttons are held",
				func(_ context.Context, _ ButtonArgs) (Result, error) {
					return Result{"success": true, "buttons": heldButtons(b)}, nil
				})
		})
	}

	for _, reg := range regs {
		if err := reg(); err != nil {
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

func speaker(b *hal.Board, a SpeakerArgs) (Result, error) {
	out, _ := b.Speaker().Get()
	var err error
	switch a.Action {
	case "get":
	case "set_volume":
		if a.Volume == nil {
			return nil, errors.New("volume required")
		}
		err = out.SetVolume(*a.Volume)
	case "mute":
		mute := true
		if a.Mute != nil {
			mute = *a.Mute
		}
		err = out.SetMute(mute)
	default:
		return nil, errInvalidAction
	}
	if err != nil {
		return nil, err
	}
	return Result{"success": true, "volume": out.Volume(), "muted": out.Muted()}, nil
}

func rgb(b *hal.Board, a LEDArgs) (Result, error) {
	d, _ := b.RGBIndicator().Get()
	c := types.RGB{R: uint8(a.R), G: uint8(a.G), B: uint8(a.B)}
	if err := d.SetColor(c); err != nil {
		return nil, err
	}
	return Result{"success": true, "color": d.Color()}, nil
}

func batteryTool(b *hal.Board) (Result, error) {
	d, _ := b.BatteryMonitor().Get()
	rd, err := d.Read()
	if err != nil {
		return nil, err
	}
	return Result{"success": true, "voltage": rd.Volts(), "percentage": rd.Percentage}, nil
}

func cameraTool(ctx context.Context, b *hal.Board, a CameraArgs) (Result, error) {
	if a.Action != "capture" {
		return nil, errInvalidAction
	}
	d, _ := b.Camera().Get()
	frame, err := d.Capture(ctx)
	if err != nil {
		return nil, err
	}
	res := Result{
		"success": true,
		"message": fmt.Sprintf("captured %d byte frame", len(frame)),
		"size":    len(frame),
	}
	if a.Encode {
		res["data"] = base64.StdEncoding.EncodeToString(frame)
	}
	return res, nil
}

func statusLED(b *hal.Board, a StatusLEDArgs) (Result, error) {
	d, _ := b.StatusIndicator().Get()
	d.Set(a.On)
	return Result{"success": true, "on": d.On()}, nil
}

func heldButtons(b *hal.Board) map[types.ButtonKind]bool {
	held := map[types.ButtonKind]bool{}
	for _, k := range []types.ButtonKind{types.ButtonBoot, types.ButtonVolumeUp, types.ButtonVolumeDown} {
		if d, ok := b.Button(k).Get(); ok {
			held[k] = d.Pressed()
		}
	}
	return held
}
