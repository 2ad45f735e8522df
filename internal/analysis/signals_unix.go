//go:build !windows

package analysis

import (
	"os"
	"syscall"
)

// SIGUSR1 toggles detection, SIGHUP moves to the next stored camera and
// SIGUSR2 saves the face on screen to the gallery.
var signalActions = map[os.Signal]string{
	syscall.SIGUSR1: ActionToggle,
	syscall.SIGHUP:  ActionNextCamera,
	syscall.SIGUSR2: ActionSave,
}

func controlSignals() []os.Signal {
	return []os.Signal{syscall.SIGUSR1, syscall.SIGHUP, syscall.SIGUSR2}
}
