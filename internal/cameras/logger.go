package cameras

import "github.com/tphakala/facewatch/internal/logger"

// GetLogger returns the cameras package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("cameras")
}
