//go:build !tinygo

package hal

import "voicehal/services/hal/internal/provider"

// DefaultPlatform returns the simulated host platform.
func DefaultPlatform() Platform { return provider.NewHost() }
