// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"

	"github.com/tphakala/facewatch/internal/logger"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "FaceWatch")
	viper.SetDefault("main.logging.default_level", logger.DefaultLogLevel)
	viper.SetDefault("main.logging.timezone", "Local")
	viper.SetDefault("main.logging.console.enabled", logger.DefaultConsoleEnabled)
	viper.SetDefault("main.logging.console.level", logger.DefaultLogLevel)
	viper.SetDefault("main.logging.file_output.enabled", logger.DefaultFileEnabled)
	viper.SetDefault("main.logging.file_output.path", logger.DefaultLogPath)
	viper.SetDefault("main.logging.file_output.level", logger.DefaultLogLevel)

	viper.SetDefault("detector.backend", "cascade")
	viper.SetDefault("detector.modelpath", "data/haarcascade_frontalface_default.xml")
	viper.SetDefault("detector.scalefactor", 1.1)
	viper.SetDefault("detector.minneighbors", 4)
	viper.SetDefault("detector.minsize", 30)

	viper.SetDefault("capture.camera", DefaultCameraID)
	viper.SetDefault("capture.width", 640)
	viper.SetDefault("capture.height", 480)
	viper.SetDefault("capture.fps", 10)

	viper.SetDefault("output.snapshotpath", "snapshots")
	viper.SetDefault("output.facespath", "detect-faces")
	viper.SetDefault("output.savename", "")
	viper.SetDefault("output.sqlitepath", "facewatch.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")
	viper.SetDefault("output.mysql.database", "facewatch")

	viper.SetDefault("alert.enabled", true)
	viper.SetDefault("alert.soundfile", "")
	viper.SetDefault("alert.volume", 0.8)

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topic", "facewatch/detections")
	viper.SetDefault("mqtt.retain", false)

	viper.SetDefault("telemetry.prometheus.enabled", false)
	viper.SetDefault("telemetry.prometheus.listen", "127.0.0.1:8090")
	viper.SetDefault("telemetry.sentry.enabled", false)
}
