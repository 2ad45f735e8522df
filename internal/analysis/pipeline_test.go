package analysis

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/facewatch/internal/conf"
	"github.com/tphakala/facewatch/internal/datastore"
	"github.com/tphakala/facewatch/internal/detector"
	"github.com/tphakala/facewatch/internal/errors"
	"github.com/tphakala/facewatch/internal/frame"
	"github.com/tphakala/facewatch/internal/gallery"
	"github.com/tphakala/facewatch/internal/notification"
)

type fakeModel struct {
	rects []image.Rectangle
}

func (m *fakeModel) Estimate(context.Context, image.Image) ([]image.Rectangle, error) {
	return append([]image.Rectangle(nil), m.rects...), nil
}

func (m *fakeModel) Close() error { return nil }

func modelLoader(rects ...image.Rectangle) detector.Loader {
	return func(context.Context) (detector.Model, error) {
		return &fakeModel{rects: rects}, nil
	}
}

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	dir := t.TempDir()

	settings := &conf.Settings{}
	settings.Capture.Camera = conf.DefaultCameraID
	settings.Capture.Width = 640
	settings.Capture.Height = 480
	settings.Capture.FPS = 20
	settings.Output.SnapshotPath = filepath.Join(dir, "snapshots")
	settings.Output.FacesPath = filepath.Join(dir, "detect-faces")
	settings.Output.SQLitePath = filepath.Join(dir, "facewatch.db")
	return settings
}

func newTestPipeline(t *testing.T, settings *conf.Settings, loader detector.Loader) *Pipeline {
	t.Helper()

	store := datastore.New(settings)
	require.NoError(t, store.Open())
	t.Cleanup(func() { assert.NoError(t, store.Close()) })

	p, err := NewPipeline(context.Background(), settings, store, loader)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, p.Close()) })
	return p
}

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xC0
	}
	return img
}

func writeTestPNG(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(w, h)))
	path := filepath.Join(t.TempDir(), "portrait.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestNewPipeline_ModelLoadRaisesToast(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, testSettings(t), modelLoader())
	require.NoError(t, p.Detector.Wait(context.Background()))
	assert.True(t, p.Detector.Ready())

	active := p.Notifications.Active()
	require.Len(t, active, 1)
	assert.Equal(t, notification.MsgModelLoaded, active[0].Message)
	assert.Equal(t, notification.ToastTypeSuccess, active[0].Type)
}

func TestNewMQTTClient_DisabledIsNil(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, testSettings(t), modelLoader())
	assert.Nil(t, p.NewMQTTClient())
}

func TestImageAnalysis_DrawsWithoutSideEffects(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	p := newTestPipeline(t, settings, modelLoader(image.Rect(10, 10, 50, 50)))
	overlayPath := filepath.Join(t.TempDir(), "out", "overlay.png")

	report, err := ImageAnalysis(context.Background(), p, writeTestPNG(t, 320, 240), ImageOptions{
		OverlayPath: overlayPath,
	})
	require.NoError(t, err)

	require.Equal(t, 1, report.Result.Count())
	require.Len(t, report.Annotations, 1)
	assert.Equal(t, "Face 1", report.Annotations[0].Label)
	assert.Equal(t, image.Pt(320, 240), p.Renderer.Size())

	f, err := os.Open(overlayPath)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 320, 240), img.Bounds())
	assert.Equal(t, color.RGBA{R: 0xFF, A: 0xFF}, color.RGBAModel.Convert(img.At(10, 30)))

	// uploads never write snapshots or history
	_, err = os.Stat(settings.Output.SnapshotPath)
	assert.True(t, os.IsNotExist(err))
	recent, err := p.Store.RecentDetections(10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestImageAnalysis_SaveToGallery(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	p := newTestPipeline(t, settings, modelLoader(image.Rect(10, 10, 50, 50)))

	report, err := ImageAnalysis(context.Background(), p, writeTestPNG(t, 640, 480), ImageOptions{
		Save:     true,
		SaveName: "Alice",
	})
	require.NoError(t, err)
	require.NotNil(t, report.Saved)
	assert.Equal(t, "Alice", report.Saved.Name)
	assert.NotEmpty(t, report.Saved.ImageURL)

	_, err = os.Stat(filepath.Join(settings.Output.FacesPath, "Alice.jpg"))
	require.NoError(t, err)

	store, err := gallery.Open(p.Store, settings.Output.FacesPath)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())

	var messages []string
	for _, toast := range p.Notifications.Active() {
		messages = append(messages, toast.Message)
	}
	assert.Contains(t, messages, notification.MsgFaceSaved("Alice"))
}

func TestImageAnalysis_SaveWithoutFaceIsRejected(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	p := newTestPipeline(t, settings, modelLoader())

	report, err := ImageAnalysis(context.Background(), p, writeTestPNG(t, 64, 64), ImageOptions{
		Save:     true,
		SaveName: "Bob",
	})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	require.NotNil(t, report)
	assert.True(t, report.Result.Empty())
	assert.Nil(t, report.Saved)

	store, err := gallery.Open(p.Store, settings.Output.FacesPath)
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())

	var messages []string
	for _, toast := range p.Notifications.Active() {
		messages = append(messages, toast.Message)
	}
	assert.Contains(t, messages, notification.MsgInvalidSave)
}

func TestImageAnalysis_ModelLoadFailure(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, testSettings(t), func(context.Context) (detector.Model, error) {
		return nil, errors.NewStd("cascade file missing")
	})

	_, err := ImageAnalysis(context.Background(), p, writeTestPNG(t, 64, 64), ImageOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryModelLoad))
}

type stillCapturer struct {
	img image.Image
}

func (c *stillCapturer) Read() (image.Image, error) { return c.img, nil }
func (c *stillCapturer) Close() error               { return nil }

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func TestRealtimeAnalysis_RecordsDetections(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	p := newTestPipeline(t, settings, modelLoader(image.Rect(100, 100, 200, 200)))

	opener := func(string) (frame.Capturer, error) {
		return &stillCapturer{img: testImage(640, 480)}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RealtimeAnalysis(ctx, p, opener, &syncBuffer{}) }()

	require.Eventually(t, func() bool {
		recent, err := p.Store.RecentDetections(1)
		return err == nil && len(recent) == 1
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("RealtimeAnalysis did not return")
	}

	recent, err := p.Store.RecentDetections(1)
	require.NoError(t, err)
	assert.Equal(t, 1, recent[0].Faces)
	assert.Equal(t, conf.DefaultCameraID, recent[0].Camera)

	entries, err := os.ReadDir(settings.Output.SnapshotPath)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}
