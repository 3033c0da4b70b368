package types

// ------------------------
// Common HAL state (retained)
// ------------------------

type HALState struct {
	Level        string `json:"level"`  // "idle", "ready", "stopped"
	Status       string `json:"status"` // freeform short code
	Board        string `json:"board"`
	Capabilities []Kind `json:"capabilities,omitempty"`
	TSms         int64  `json:"ts_ms"`
}

// Link is the link/state reported for a capability.
type Link string

const (
	LinkUp     Link = "up"
	LinkAbsent Link = "absent"
	LinkFailed Link = "failed"
)

type CapabilityStatus struct {
	Kind  Kind   `json:"kind"`
	Name  string `json:"name,omitempty"`
	Link  Link   `json:"link"`
	TSms  int64  `json:"ts_ms"`
	Error string `json:"error,omitempty"` // machine-readable short code
}
