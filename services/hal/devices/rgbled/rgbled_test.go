package rgbled

import (
	"testing"

	"voicehal/services/hal/internal/provider"
	"voicehal/types"
)

func TestSetColorFillsStrip(t *testing.T) {
	host := provider.NewHost()
	reg := provider.New(host)
	d, err := New(reg, host, 48, 3)
	if err != nil {
		t.Fatal(err)
	}
	red := types.RGB{R: 255}
	if err := d.SetColor(red); err != nil {
		t.Fatal(err)
	}
	last := host.PixelsAt(48).Last()
	if len(last) != 3 {
		t.Fatalf("wrote %d pixels", len(last))
	}
	for i, c := range last {
		if c != red {
			t.Fatalf("pixel %d = %+v", i, c)
		}
	}
	if d.Color() != red {
		t.Fatalf("color %+v", d.Color())
	}
	_ = d.Close()
	if host.PixelsAt(48).Last()[0] != (types.RGB{}) {
		t.Fatal("close should blank the strip")
	}
}
