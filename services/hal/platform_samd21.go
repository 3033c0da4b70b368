//go:build tinygo && atsamd21

package hal

import "voicehal/services/hal/internal/provider"

func DefaultPlatform() Platform { return provider.NewMCU() }
