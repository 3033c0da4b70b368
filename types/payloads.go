package types

// ------------------------
// RGB indicator
// ------------------------

type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// ------------------------
// Battery
// ------------------------

type BatteryReading struct {
	MilliV     int32 `json:"mV"`
	Percentage int   `json:"percentage"` // 0..100
}

// Volts returns the reading in volts.
func (r BatteryReading) Volts() float64 { return float64(r.MilliV) / 1000 }

// ------------------------
// Buttons
// ------------------------

type ButtonEdge string

const (
	ButtonPressed   ButtonEdge = "pressed"
	ButtonReleased  ButtonEdge = "released"
	ButtonClick     ButtonEdge = "click"
	ButtonLongPress ButtonEdge = "long_press"
)

type ButtonEvent struct {
	Button ButtonKind `json:"button"`
	Edge   ButtonEdge `json:"edge"`
	TSms   int64      `json:"ts_ms"`
}
