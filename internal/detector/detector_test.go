package detector

import (
	"context"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/facewatch/internal/detection"
	"github.com/tphakala/facewatch/internal/errors"
	"github.com/tphakala/facewatch/internal/logger"
)

type fakeModel struct {
	rects  []image.Rectangle
	err    error
	calls  atomic.Int32
	closed atomic.Bool
}

func (m *fakeModel) Estimate(_ context.Context, _ image.Image) ([]image.Rectangle, error) {
	m.calls.Add(1)
	return m.rects, m.err
}

func (m *fakeModel) Close() error {
	m.closed.Store(true)
	return nil
}

func quietAdapter(loader Loader, opts ...Option) *Adapter {
	opts = append([]Option{WithLogger(logger.NewSlogLogger(nil, logger.LogLevelError, nil))}, opts...)
	return New(loader, opts...)
}

func frame(w, h int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

func TestAdapter_NotReadyBeforeLoad(t *testing.T) {
	t.Parallel()

	model := &fakeModel{rects: []image.Rectangle{image.Rect(1, 1, 5, 5)}}
	a := quietAdapter(func(context.Context) (Model, error) { return model, nil })

	assert.False(t, a.Ready())
	dets, err := a.Estimate(context.Background(), frame(10, 10))
	require.Error(t, err)
	assert.Empty(t, dets)
	assert.True(t, errors.IsCategory(err, errors.CategoryModelUnavailable))
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.Zero(t, model.calls.Load(), "model must not be invoked before load")
}

func TestAdapter_LoadSuccessNotifiesOnce(t *testing.T) {
	t.Parallel()

	var notified atomic.Int32
	var loads atomic.Int32
	model := &fakeModel{rects: []image.Rectangle{image.Rect(10, 10, 50, 50)}}

	a := quietAdapter(func(context.Context) (Model, error) {
		loads.Add(1)
		return model, nil
	}, WithOnLoaded(func() { notified.Add(1) }))

	a.Load(context.Background())
	a.Load(context.Background())
	require.NoError(t, a.Wait(context.Background()))

	assert.True(t, a.Ready())
	assert.False(t, a.Failed())
	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, int32(1), notified.Load())

	dets, err := a.Estimate(context.Background(), frame(640, 480))
	require.NoError(t, err)
	assert.Equal(t, []detection.Detection{{Box: image.Rect(10, 10, 50, 50)}}, dets)

	require.NoError(t, a.Close())
	assert.True(t, model.closed.Load())
	assert.False(t, a.Ready())
}

func TestAdapter_LoadFailureIsPermanent(t *testing.T) {
	t.Parallel()

	var notified atomic.Bool
	a := quietAdapter(func(context.Context) (Model, error) {
		return nil, errors.NewStd("model file corrupt")
	}, WithOnLoaded(func() { notified.Store(true) }))

	a.Load(context.Background())
	err := a.Wait(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryModelLoad))

	// a second Load does not retry
	a.Load(context.Background())
	assert.True(t, a.Failed())
	assert.False(t, a.Ready())
	assert.False(t, notified.Load())

	_, err = a.Estimate(context.Background(), frame(10, 10))
	assert.True(t, errors.IsCategory(err, errors.CategoryModelUnavailable))
	require.NoError(t, a.Close())
}

func TestAdapter_NilModelIsFailure(t *testing.T) {
	t.Parallel()

	a := quietAdapter(func(context.Context) (Model, error) { return nil, nil })
	a.Load(context.Background())
	require.Error(t, a.Wait(context.Background()))
	assert.True(t, a.Failed())
}

func TestAdapter_WaitHonorsContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	a := quietAdapter(func(context.Context) (Model, error) {
		<-release
		return &fakeModel{}, nil
	})
	a.Load(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, a.Wait(ctx), context.DeadlineExceeded)
	assert.False(t, a.Ready())

	close(release)
	require.NoError(t, a.Wait(context.Background()))
	assert.True(t, a.Ready())
}

func TestAdapter_EstimateClipsBoxes(t *testing.T) {
	t.Parallel()

	model := &fakeModel{rects: []image.Rectangle{
		image.Rect(600, 400, 700, 520), // partly outside
		image.Rect(700, 500, 800, 600), // fully outside
		image.Rect(50, 50, 10, 10),     // inverted corners
	}}
	a := quietAdapter(func(context.Context) (Model, error) { return model, nil })
	a.Load(context.Background())
	require.NoError(t, a.Wait(context.Background()))

	dets, err := a.Estimate(context.Background(), frame(640, 480))
	require.NoError(t, err)
	require.Len(t, dets, 2)
	assert.Equal(t, image.Rect(600, 400, 640, 480), dets[0].Box)
	assert.Equal(t, image.Rect(10, 10, 50, 50), dets[1].Box)
}

func TestAdapter_EstimateError(t *testing.T) {
	t.Parallel()

	a := quietAdapter(func(context.Context) (Model, error) {
		return &fakeModel{err: errors.NewStd("inference failed")}, nil
	})
	a.Load(context.Background())
	require.NoError(t, a.Wait(context.Background()))

	_, err := a.Estimate(context.Background(), frame(10, 10))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryProcessing))
}

func TestAdapter_CloseDuringLoadReleasesModel(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	model := &fakeModel{}
	var notified atomic.Bool
	a := quietAdapter(func(context.Context) (Model, error) {
		<-release
		return model, nil
	}, WithOnLoaded(func() { notified.Store(true) }))
	a.Load(context.Background())

	require.NoError(t, a.Close())
	close(release)
	require.NoError(t, a.Wait(context.Background()))

	assert.True(t, model.closed.Load(), "model finished after Close must be released")
	assert.False(t, a.Ready())
	assert.False(t, notified.Load())

	_, err := a.Estimate(context.Background(), frame(10, 10))
	assert.True(t, errors.IsCategory(err, errors.CategoryModelUnavailable))
}
