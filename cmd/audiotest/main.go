// Command audiotest brings up the selected board and exercises its audio
// path and tools without the application stack.
//
// Usage:
//
//	audiotest [flags] <command>
//
// Commands:
//
//	info   - list bound capabilities and bring-up status
//	tone   - play the tone sweep through the speaker
//	mic    - measure microphone level
//	tools  - list or call board tools
//
// Configuration is read from flags, then from the environment or a .env
// file in the working directory (LOG_LEVEL, AUDIOTEST_*).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
