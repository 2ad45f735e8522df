package cameras

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/facewatch/internal/conf"
)

func execute(t *testing.T, settings *conf.Settings, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := Command(settings)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCamerasCommand_AddListRemove(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	settings.Output.SQLitePath = filepath.Join(t.TempDir(), "facewatch.db")

	out, err := execute(t, settings, "add", "rtsp://192.168.1.20:554/stream")
	require.NoError(t, err)
	assert.Contains(t, out, "Custom camera added successfully!")

	out, err = execute(t, settings, "list")
	require.NoError(t, err)
	assert.Equal(t, "-\tuser\n0\trtsp://192.168.1.20:554/stream\n", out)

	_, err = execute(t, settings, "add", "ftp://example.com/cam")
	require.Error(t, err)

	out, err = execute(t, settings, "remove", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed")

	out, err = execute(t, settings, "list")
	require.NoError(t, err)
	assert.Equal(t, "-\tuser\n", out)
}
