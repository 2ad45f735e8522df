package sound

import "github.com/tphakala/facewatch/internal/logger"

// GetLogger returns the sound package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("sound")
}
