//go:build windows

package analysis

import "os"

// Windows has no user signals; the loop runs until interrupted.
var signalActions = map[os.Signal]string{}

func controlSignals() []os.Signal {
	return nil
}
