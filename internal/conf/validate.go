// conf/validate.go

package conf

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		func(s *Settings) error { return validateDetectorSettings(&s.Detector) },
		func(s *Settings) error { return validateCaptureSettings(&s.Capture) },
		func(s *Settings) error { return validateOutputSettings(&s.Output) },
		func(s *Settings) error { return validateAlertSettings(&s.Alert) },
		func(s *Settings) error { return validateMQTTSettings(&s.MQTT) },
		func(s *Settings) error { return validateTelemetrySettings(&s.Telemetry) },
	}
	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateDetectorSettings(settings *DetectorSettings) error {
	var errs []string

	if settings.Backend != "cascade" {
		errs = append(errs, fmt.Sprintf("unsupported detector backend %q", settings.Backend))
	}
	if settings.ModelPath == "" {
		errs = append(errs, "detector model path must not be empty")
	}
	if settings.ScaleFactor <= 1.0 {
		errs = append(errs, "detector scale factor must be greater than 1.0")
	}
	if settings.MinNeighbors < 0 {
		errs = append(errs, "detector min neighbors must not be negative")
	}
	if settings.MinSize < 0 {
		errs = append(errs, "detector min size must not be negative")
	}

	return joinErrors("detector settings", errs)
}

func validateCaptureSettings(settings *CaptureSettings) error {
	var errs []string

	if settings.Width <= 0 || settings.Height <= 0 {
		errs = append(errs, fmt.Sprintf("capture size must be positive, got %dx%d", settings.Width, settings.Height))
	}
	if settings.FPS <= 0 || settings.FPS > 60 {
		errs = append(errs, "capture fps must be between 1 and 60")
	}
	if settings.Camera == "" {
		settings.Camera = DefaultCameraID
	}

	return joinErrors("capture settings", errs)
}

func validateOutputSettings(settings *OutputSettings) error {
	var errs []string

	if settings.SnapshotPath == "" {
		errs = append(errs, "snapshot path must not be empty")
	}
	if settings.FacesPath == "" {
		errs = append(errs, "faces path must not be empty")
	}
	if settings.MySQL.Enabled {
		if settings.MySQL.Host == "" || settings.MySQL.Database == "" {
			errs = append(errs, "mysql host and database are required when mysql is enabled")
		}
	} else if settings.SQLitePath == "" {
		errs = append(errs, "sqlite path must not be empty")
	}

	return joinErrors("output settings", errs)
}

func validateAlertSettings(settings *AlertSettings) error {
	if settings.Volume < 0 || settings.Volume > 1 {
		return fmt.Errorf("alert settings: volume must be between 0.0 and 1.0, got %.2f", settings.Volume)
	}
	return nil
}

func validateMQTTSettings(settings *MQTTSettings) error {
	if !settings.Enabled {
		return nil
	}

	var errs []string
	if settings.Broker == "" {
		errs = append(errs, "broker URL is required when MQTT is enabled")
	} else if u, err := url.Parse(settings.Broker); err != nil || u.Host == "" {
		errs = append(errs, fmt.Sprintf("invalid broker URL %q", settings.Broker))
	} else {
		switch u.Scheme {
		case "tcp", "ssl", "tls", "ws", "wss", "mqtt", "mqtts":
		default:
			errs = append(errs, fmt.Sprintf("unsupported broker scheme %q", u.Scheme))
		}
	}
	if settings.Topic == "" {
		errs = append(errs, "topic is required when MQTT is enabled")
	}

	return joinErrors("mqtt settings", errs)
}

func validateTelemetrySettings(settings *TelemetrySettings) error {
	var errs []string

	if settings.Prometheus.Enabled {
		if _, _, err := net.SplitHostPort(settings.Prometheus.Listen); err != nil {
			errs = append(errs, fmt.Sprintf("invalid prometheus listen address %q", settings.Prometheus.Listen))
		}
	}
	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		errs = append(errs, "sentry DSN is required when sentry is enabled")
	}

	return joinErrors("telemetry settings", errs)
}

func joinErrors(section string, errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.New(section + ": " + strings.Join(errs, "; "))
}
