package controller

import "github.com/tphakala/facewatch/internal/logger"

// GetLogger returns the controller package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("controller")
}
