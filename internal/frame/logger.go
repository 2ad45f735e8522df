package frame

import "github.com/tphakala/facewatch/internal/logger"

// GetLogger returns the frame package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("frame")
}
