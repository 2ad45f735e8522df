package notification

import "github.com/tphakala/facewatch/internal/logger"

// GetLogger returns the notification package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("notification")
}
