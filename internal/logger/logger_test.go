package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/facewatch/internal/logger"
)

func TestSlogLogger_LevelFiltering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		level     logger.LogLevel
		logFn     func(l logger.Logger)
		wantEmpty bool
	}{
		{"debug suppressed at info", logger.LogLevelInfo, func(l logger.Logger) { l.Debug("hidden") }, true},
		{"info written at info", logger.LogLevelInfo, func(l logger.Logger) { l.Info("shown") }, false},
		{"warn suppressed at error", logger.LogLevelError, func(l logger.Logger) { l.Warn("hidden") }, true},
		{"trace written at trace", logger.LogLevelTrace, func(l logger.Logger) { l.Trace("shown") }, false},
		{"error always written at warn", logger.LogLevelWarn, func(l logger.Logger) { l.Error("shown") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			tt.logFn(logger.NewSlogLogger(&buf, tt.level, time.UTC))

			if tt.wantEmpty {
				assert.Empty(t, buf.String())
			} else {
				assert.NotEmpty(t, buf.String())
			}
		})
	}
}

func TestSlogLogger_FieldsAndModules(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewSlogLogger(&buf, logger.LogLevelDebug, time.UTC).
		Module("controller").
		Module("cycle").
		With(logger.String("camera", "user"))

	log.Info("detection cycle completed",
		logger.Int("faces", 2),
		logger.Duration("elapsed", 1500*time.Millisecond),
		logger.Error(errors.New("boom")),
		logger.Float64("score", 0.123456))

	out := buf.String()
	assert.Contains(t, out, "module=controller.cycle")
	assert.Contains(t, out, "camera=user")
	assert.Contains(t, out, "faces=2")
	assert.Contains(t, out, "elapsed=1.5s")
	assert.Contains(t, out, "error=boom")
	assert.Contains(t, out, "score=0.123")
	assert.NotContains(t, out, "time=", "console output omits timestamps")
}

func TestSlogLogger_WithContextTraceID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewSlogLogger(&buf, logger.LogLevelInfo, time.UTC)

	ctx := logger.WithTraceID(context.Background(), "abc-123")
	log.WithContext(ctx).Info("traced")
	assert.Contains(t, buf.String(), "trace_id=abc-123")

	buf.Reset()
	log.WithContext(context.Background()).Info("untraced")
	assert.NotContains(t, buf.String(), "trace_id")
}

func TestCentralLogger_FileOutputIsJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	cl, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &logger.ConsoleOutput{Enabled: false},
		FileOutput:   &logger.FileOutput{Enabled: true, Path: path, Level: "debug"},
		ModuleLevels: map[string]string{"noisy": "error"},
	})
	require.NoError(t, err)

	cl.Module("gallery").Info("face saved", logger.String("name", "Alice"))
	cl.Module("noisy").Info("suppressed")
	cl.Module("noisy").Module("child").Warn("suppressed too")
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "face saved", entry["msg"])
	assert.Equal(t, "gallery", entry["module"])
	assert.Equal(t, "Alice", entry["name"])
	assert.Contains(t, entry, "time")
}

func TestCentralLogger_InvalidTimezone(t *testing.T) {
	t.Parallel()

	_, err := logger.NewCentralLogger(&logger.LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)
}

func TestNewCentralLogger_NilConfig(t *testing.T) {
	t.Parallel()

	_, err := logger.NewCentralLogger(nil)
	require.Error(t, err)
}
