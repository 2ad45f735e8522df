// config.go: settings structs, loading and saving
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/facewatch/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// DefaultCameraID is the camera identifier that maps to capture device 0.
const DefaultCameraID = "user"

// MainSettings contains the main application settings
type MainSettings struct {
	Name    string               `yaml:"name" mapstructure:"name"`       // name of the instance, used in MQTT payloads
	Logging logger.LoggingConfig `yaml:"logging" mapstructure:"logging"` // centralized logging configuration
}

// DetectorSettings configures the face detection backend
type DetectorSettings struct {
	Backend      string  `yaml:"backend" mapstructure:"backend"`           // model backend, "cascade"
	ModelPath    string  `yaml:"modelpath" mapstructure:"modelpath"`       // path to the cascade XML file
	ScaleFactor  float64 `yaml:"scalefactor" mapstructure:"scalefactor"`   // image pyramid scale step, must be > 1
	MinNeighbors int     `yaml:"minneighbors" mapstructure:"minneighbors"` // candidate rectangles needed to keep a face
	MinSize      int     `yaml:"minsize" mapstructure:"minsize"`           // smallest face edge in pixels
}

// CaptureSettings configures the live frame source
type CaptureSettings struct {
	Camera string `yaml:"camera" mapstructure:"camera"` // camera identifier, "user" or a stored URL
	Width  int    `yaml:"width" mapstructure:"width"`
	Height int    `yaml:"height" mapstructure:"height"`
	FPS    int    `yaml:"fps" mapstructure:"fps"` // detection cycles per second
}

// MySQLSettings contains settings for the optional MySQL datastore
type MySQLSettings struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	Host     string `yaml:"host" mapstructure:"host"`
	Port     string `yaml:"port" mapstructure:"port"`
}

// OutputSettings contains file and database output locations
type OutputSettings struct {
	SnapshotPath string        `yaml:"snapshotpath" mapstructure:"snapshotpath"` // directory for detection_<timestamp>.png
	FacesPath    string        `yaml:"facespath" mapstructure:"facespath"`       // directory for <name>.jpg gallery saves
	SaveName     string        `yaml:"savename" mapstructure:"savename"`         // gallery name used by live saves
	SQLitePath   string        `yaml:"sqlitepath" mapstructure:"sqlitepath"`     // path to the SQLite database
	MySQL        MySQLSettings `yaml:"mysql" mapstructure:"mysql"`
}

// AlertSettings configures the detection alert sound
type AlertSettings struct {
	Enabled   bool    `yaml:"enabled" mapstructure:"enabled"`
	SoundFile string  `yaml:"soundfile" mapstructure:"soundfile"` // WAV file, empty uses the built-in tone
	Volume    float64 `yaml:"volume" mapstructure:"volume"`       // 0.0 - 1.0
}

// MQTTSettings contains settings for MQTT detection events
type MQTTSettings struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Broker   string `yaml:"broker" mapstructure:"broker"` // e.g. tcp://localhost:1883
	Topic    string `yaml:"topic" mapstructure:"topic"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Retain   bool   `yaml:"retain" mapstructure:"retain"`
}

// PrometheusSettings controls the metrics scrape endpoint
type PrometheusSettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Listen  string `yaml:"listen" mapstructure:"listen"` // e.g. 127.0.0.1:8090
}

// SentrySettings controls error reporting
type SentrySettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
}

// TelemetrySettings groups the observability integrations
type TelemetrySettings struct {
	Prometheus PrometheusSettings `yaml:"prometheus" mapstructure:"prometheus"`
	Sentry     SentrySettings     `yaml:"sentry" mapstructure:"sentry"`
}

// Settings contains all configuration options for FaceWatch
type Settings struct {
	Debug bool `yaml:"debug" mapstructure:"debug"`

	Main      MainSettings      `yaml:"main" mapstructure:"main"`
	Detector  DetectorSettings  `yaml:"detector" mapstructure:"detector"`
	Capture   CaptureSettings   `yaml:"capture" mapstructure:"capture"`
	Output    OutputSettings    `yaml:"output" mapstructure:"output"`
	Alert     AlertSettings     `yaml:"alert" mapstructure:"alert"`
	MQTT      MQTTSettings      `yaml:"mqtt" mapstructure:"mqtt"`
	Telemetry TelemetrySettings `yaml:"telemetry" mapstructure:"telemetry"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		// bad environment values are reported but do not block startup
		GetLogger().Warn("environment variable configuration issues", logger.Error(err))
	}

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default config into dir and reads it.
func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	defaultConfig, err := getDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, defaultConfig, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() ([]byte, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return nil, fmt.Errorf("error reading embedded config: %w", err)
	}
	return data, nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig writes settings to configPath.
// It overwrites the existing file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	// write to a temp file in the same directory so the rename is atomic
	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}
