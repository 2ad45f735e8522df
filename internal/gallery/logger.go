package gallery

import "github.com/tphakala/facewatch/internal/logger"

// GetLogger returns the gallery package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("gallery")
}
