// Package setups holds the board descriptors. Exactly one file is compiled
// in, selected by build tag, and exposes it as Selected.
package setups

import (
	"voicehal/services/hal"
	"voicehal/types"
)

// nc is shorthand for unwired pin roles in the descriptor literals.
const nc = types.NC

func volume(v int) *int { return &v }

// Get returns the descriptor compiled into this build.
func Get() hal.Descriptor { return Selected }
