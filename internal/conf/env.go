// env.go - Environment variable configuration and validation for FaceWatch
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "FACEWATCH_DEBUG", validateEnvBool},

		{"detector.modelpath", "FACEWATCH_MODEL_PATH", validateEnvPath},
		{"capture.camera", "FACEWATCH_CAMERA", nil},
		{"capture.fps", "FACEWATCH_FPS", validateEnvFPS},

		{"output.snapshotpath", "FACEWATCH_SNAPSHOT_PATH", validateEnvPath},
		{"output.facespath", "FACEWATCH_FACES_PATH", validateEnvPath},
		{"output.savename", "FACEWATCH_SAVE_NAME", nil},
		{"output.sqlitepath", "FACEWATCH_SQLITE_PATH", validateEnvPath},

		{"alert.enabled", "FACEWATCH_ALERT", validateEnvBool},

		{"mqtt.enabled", "FACEWATCH_MQTT", validateEnvBool},
		{"mqtt.broker", "FACEWATCH_MQTT_BROKER", validateEnvURL},
		{"mqtt.username", "FACEWATCH_MQTT_USERNAME", nil},
		{"mqtt.password", "FACEWATCH_MQTT_PASSWORD", nil},

		{"telemetry.sentry.dsn", "FACEWATCH_SENTRY_DSN", validateEnvURL},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvPath(value string) error {
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("path contains a NUL byte")
	}
	return nil
}

func validateEnvFPS(value string) error {
	fps, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("must be an integer")
	}
	if fps < 1 || fps > 60 {
		return fmt.Errorf("must be between 1 and 60")
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("must be an absolute URL")
	}
	return nil
}
