package conf

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// loadEmbeddedDefaults parses the embedded config.yaml with a private viper instance.
func loadEmbeddedDefaults(t *testing.T) *Settings {
	t.Helper()

	data, err := getDefaultConfig()
	require.NoError(t, err)

	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewReader(data)))

	settings := &Settings{}
	require.NoError(t, v.Unmarshal(settings))
	return settings
}

func TestEmbeddedDefaultConfig_IsValid(t *testing.T) {
	t.Parallel()

	settings := loadEmbeddedDefaults(t)
	require.NoError(t, ValidateSettings(settings))

	assert.Equal(t, DefaultCameraID, settings.Capture.Camera)
	assert.Equal(t, 640, settings.Capture.Width)
	assert.Equal(t, 480, settings.Capture.Height)
	assert.Equal(t, "detect-faces", settings.Output.FacesPath)
	assert.Equal(t, "3306", settings.Output.MySQL.Port)
	assert.InDelta(t, 1.1, settings.Detector.ScaleFactor, 1e-9)
	require.NotNil(t, settings.Main.Logging.Console)
	assert.True(t, settings.Main.Logging.Console.Enabled)
	assert.False(t, settings.MQTT.Enabled)
}

func TestSaveYAMLConfig_RoundTrip(t *testing.T) {
	t.Parallel()

	settings := loadEmbeddedDefaults(t)
	settings.Capture.Camera = "rtsp://cam.local/stream"
	settings.MQTT.Enabled = true

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, SaveYAMLConfig(path, settings))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded Settings
	require.NoError(t, yaml.Unmarshal(data, &loaded))
	assert.Equal(t, settings.Capture, loaded.Capture)
	assert.Equal(t, settings.MQTT, loaded.MQTT)
	assert.Equal(t, settings.Detector, loaded.Detector)

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSaveYAMLConfig_MissingDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing", "config.yaml")
	require.Error(t, SaveYAMLConfig(path, &Settings{}))
}
