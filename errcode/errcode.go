package errcode

import "errors"

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK            Code = "ok"
	Busy          Code = "busy"
	InvalidParams Code = "invalid_params"
	Timeout       Code = "timeout"

	// Bus bring-up and pin ownership.
	BusInit    Code = "bus_init"
	UnknownBus Code = "unknown_bus"
	UnknownPin Code = "unknown_pin"
	PinInUse   Code = "pin_in_use"

	// Audio transport.
	ConfigurationConflict Code = "configuration_conflict"
	UnsupportedRate       Code = "unsupported_rate"
	InvalidFrame          Code = "invalid_frame"
	NotConfigured         Code = "not_configured"
	Transport             Code = "transport_error"

	// Capabilities and codecs.
	CapabilityAbsent        Code = "capability_absent"
	CodecProgrammingFailure Code = "codec_programming_failure"

	// Tool bridge.
	DuplicateTool Code = "duplicate_tool"
	UnknownTool   Code = "unknown_tool"

	Error Code = "error" // generic fallback
)

// E keeps context and a cause next to a Code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is(err, errcode.X) match on the code alone.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// New builds an *E.
func New(c Code, op, msg string) *E { return &E{C: c, Op: op, Msg: msg} }

// Wrap builds an *E carrying cause err. A nil err still yields an error.
func Wrap(c Code, op string, err error) *E { return &E{C: c, Op: op, Err: err} }

// Of extracts a Code from an error chain, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return Error
}

// IsTransport reports whether err belongs to the transport error family:
// recoverable I/O conditions the caller may retry.
func IsTransport(err error) bool {
	switch Of(err) {
	case Timeout, Busy, NotConfigured, Transport:
		return true
	default:
		return false
	}
}

// Fatal reports whether err is a programming/board-descriptor error for which
// a process restart is the only recovery.
func Fatal(err error) bool {
	switch Of(err) {
	case BusInit, PinInUse, UnknownPin, ConfigurationConflict:
		return true
	default:
		return false
	}
}
