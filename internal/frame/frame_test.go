package frame

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/facewatch/internal/errors"
)

type fakeCapturer struct {
	id     string
	img    image.Image
	err    error
	closed bool
}

func (c *fakeCapturer) Read() (image.Image, error) { return c.img, c.err }
func (c *fakeCapturer) Close() error              { c.closed = true; return nil }

type fakeDevices struct {
	mu      sync.Mutex
	opened  []*fakeCapturer
	failFor map[string]bool
}

func (d *fakeDevices) open(cameraID string) (Capturer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failFor[cameraID] {
		return nil, errors.NewStd("device busy")
	}
	c := &fakeCapturer{id: cameraID, img: image.NewRGBA(image.Rect(0, 0, 640, 480))}
	d.opened = append(d.opened, c)
	return c, nil
}

func TestDeviceFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want any
	}{
		{"user", 0},
		{"", 0},
		{"2", 2},
		{"rtsp://cam.local/stream", "rtsp://cam.local/stream"},
		{"-1", "-1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeviceFor(tt.in), tt.in)
	}
}

func TestLive_UnavailableUntilOpened(t *testing.T) {
	t.Parallel()

	devices := &fakeDevices{}
	live := NewLive(devices.open, "")
	assert.Equal(t, DefaultCamera, live.Name())

	_, err := live.Frame(context.Background())
	require.ErrorIs(t, err, ErrSourceUnavailable)
	assert.True(t, errors.IsCategory(err, errors.CategorySourceUnavailable))

	require.NoError(t, live.Open())
	assert.True(t, live.Attached())

	img, err := live.Frame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 640, img.Bounds().Dx())
	require.NoError(t, live.Close())
}

func TestLive_SwitchReleasesPreviousDevice(t *testing.T) {
	t.Parallel()

	devices := &fakeDevices{}
	live := NewLive(devices.open, DefaultCamera)
	require.NoError(t, live.Open())

	require.NoError(t, live.Switch("rtsp://cam.local/stream"))
	assert.Equal(t, "rtsp://cam.local/stream", live.Name())

	require.Len(t, devices.opened, 2)
	assert.True(t, devices.opened[0].closed)
	assert.False(t, devices.opened[1].closed)

	// switching to the same camera is a no-op
	require.NoError(t, live.Switch("rtsp://cam.local/stream"))
	assert.Len(t, devices.opened, 2)
}

func TestLive_SwitchFailureDetaches(t *testing.T) {
	t.Parallel()

	devices := &fakeDevices{failFor: map[string]bool{"3": true}}
	live := NewLive(devices.open, DefaultCamera)
	require.NoError(t, live.Open())

	err := live.Switch("3")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategorySourceUnavailable))
	assert.False(t, live.Attached())

	_, err = live.Frame(context.Background())
	require.ErrorIs(t, err, ErrSourceUnavailable)

	// recovers on the next successful switch
	require.NoError(t, live.Switch(DefaultCamera))
	_, err = live.Frame(context.Background())
	require.NoError(t, err)
}

func TestLive_ReadFailureIsUnavailable(t *testing.T) {
	t.Parallel()

	live := NewLive(func(string) (Capturer, error) {
		return &fakeCapturer{err: errors.NewStd("no frame")}, nil
	}, DefaultCamera)
	require.NoError(t, live.Open())

	_, err := live.Frame(context.Background())
	require.ErrorIs(t, err, ErrSourceUnavailable)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeUpload_PNG(t *testing.T) {
	t.Parallel()

	up, err := DecodeUpload(bytes.NewReader(pngBytes(t, 320, 200)), "photo.png")
	require.NoError(t, err)
	assert.Equal(t, "png", up.Format())
	assert.Equal(t, image.Pt(320, 200), up.Size())
	assert.Equal(t, "photo.png", up.Name())

	img, err := up.Frame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
}

func TestDecodeUpload_RejectsNonImage(t *testing.T) {
	t.Parallel()

	_, err := DecodeUpload(strings.NewReader("just some text, not a picture"), "notes.txt")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestDecodeUpload_CorruptImage(t *testing.T) {
	t.Parallel()

	data := pngBytes(t, 16, 16)[:40] // valid signature, truncated body
	_, err := DecodeUpload(bytes.NewReader(data), "broken.png")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryImageDecode))
}

func TestOpenUpload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "face.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 64, 48), 0o600))

	up, err := OpenUpload(path)
	require.NoError(t, err)
	assert.Equal(t, "face.png", up.Name())

	_, err = OpenUpload(filepath.Join(dir, "missing.png"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}
