package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodesAreStableStrings(t *testing.T) {
	cases := map[string]Code{
		"bus_init":                  BusInit,
		"pin_in_use":                PinInUse,
		"configuration_conflict":    ConfigurationConflict,
		"unsupported_rate":          UnsupportedRate,
		"invalid_frame":             InvalidFrame,
		"transport_error":           Transport,
		"capability_absent":         CapabilityAbsent,
		"duplicate_tool":            DuplicateTool,
		"codec_programming_failure": CodecProgrammingFailure,
	}
	for want, c := range cases {
		if c.Error() != want {
			t.Fatalf("code %q mismatch: got %q", want, c.Error())
		}
	}
}

func TestOfUnwrapsChains(t *testing.T) {
	base := Wrap(Timeout, "i2s.write", errors.New("dma stalled"))
	err := fmt.Errorf("speaker: %w", base)

	if got := Of(err); got != Timeout {
		t.Fatalf("Of = %q, want %q", got, Timeout)
	}
	if !errors.Is(err, Timeout) {
		t.Fatal("errors.Is should match the code through wrapping")
	}
	if errors.Is(err, Busy) {
		t.Fatal("errors.Is matched the wrong code")
	}
	if !IsTransport(err) {
		t.Fatal("timeout should be a transport error")
	}
	if Of(nil) != OK {
		t.Fatal("nil should map to ok")
	}
	if Of(errors.New("x")) != Error {
		t.Fatal("unknown errors should map to the generic code")
	}
	if Of(fmt.Errorf("claim: %w", PinInUse)) != PinInUse {
		t.Fatal("bare codes should be found through wrapping")
	}
}

func TestFatalClassification(t *testing.T) {
	if !Fatal(Wrap(BusInit, "i2c0", PinInUse)) {
		t.Fatal("bus init failures are fatal")
	}
	if Fatal(New(Timeout, "write", "")) {
		t.Fatal("timeouts are recoverable")
	}
}

func TestErrorText(t *testing.T) {
	e := &E{C: InvalidFrame, Op: "i2s.write", Msg: "empty frame"}
	if got, want := e.Error(), "i2s.write: invalid_frame: empty frame"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
