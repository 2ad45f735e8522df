// Package detector wraps a face detection model behind a one-time asynchronous load.
//
// The adapter is not ready until Load has resolved successfully. A failed load
// leaves it permanently not ready; there is no automatic retry.
package detector

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tphakala/facewatch/internal/detection"
	"github.com/tphakala/facewatch/internal/errors"
	"github.com/tphakala/facewatch/internal/logger"
)

// Model maps an image to face bounding boxes.
type Model interface {
	Estimate(ctx context.Context, img image.Image) ([]image.Rectangle, error)
	Close() error
}

// Loader builds a Model. It may block for as long as loading takes.
type Loader func(ctx context.Context) (Model, error)

type loadState int32

const (
	stateIdle loadState = iota
	stateLoading
	stateReady
	stateFailed
)

// ErrModelUnavailable is returned by Estimate while the model is not ready.
var ErrModelUnavailable = errors.NewStd("face detection model is not loaded")

// Adapter owns the model and its load lifecycle.
type Adapter struct {
	loader   Loader
	onLoaded func()
	log      logger.Logger

	state    atomic.Int32
	loadOnce sync.Once
	done     chan struct{}

	mu      sync.RWMutex
	model   Model
	loadErr error
	closed  bool
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithOnLoaded registers a callback invoked once after a successful load.
func WithOnLoaded(fn func()) Option {
	return func(a *Adapter) { a.onLoaded = fn }
}

// WithLogger overrides the package logger.
func WithLogger(log logger.Logger) Option {
	return func(a *Adapter) { a.log = log }
}

// New creates an adapter that loads its model with loader.
func New(loader Loader, opts ...Option) *Adapter {
	a := &Adapter{
		loader: loader,
		done:   make(chan struct{}),
		log:    GetLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Load starts loading the model in the background. Only the first call has any effect.
func (a *Adapter) Load(ctx context.Context) {
	a.loadOnce.Do(func() {
		a.state.Store(int32(stateLoading))
		go a.load(ctx)
	})
}

func (a *Adapter) load(ctx context.Context) {
	defer close(a.done)

	start := time.Now()
	model, err := a.loader(ctx)
	if err == nil && model == nil {
		err = errors.NewStd("loader returned no model")
	}
	if err != nil {
		enhanced := errors.New(err).
			Component("detector").
			Category(errors.CategoryModelLoad).
			Timing("model-load", time.Since(start)).
			Build()

		a.mu.Lock()
		a.loadErr = enhanced
		a.mu.Unlock()
		a.state.Store(int32(stateFailed))

		a.log.Error("face detection model failed to load, detection disabled",
			logger.Error(err),
			logger.Duration("elapsed", time.Since(start)))
		return
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		a.state.Store(int32(stateFailed))
		if err := model.Close(); err != nil {
			a.log.Warn("error releasing model loaded after close", logger.Error(err))
		}
		a.log.Info("adapter closed during load, model released")
		return
	}
	a.model = model
	a.mu.Unlock()
	a.state.Store(int32(stateReady))

	a.log.Info("face detection model loaded", logger.Duration("elapsed", time.Since(start)))
	if a.onLoaded != nil {
		a.onLoaded()
	}
}

// Ready reports whether the model loaded successfully.
func (a *Adapter) Ready() bool {
	return loadState(a.state.Load()) == stateReady
}

// Failed reports whether the load attempt ended in an error.
func (a *Adapter) Failed() bool {
	return loadState(a.state.Load()) == stateFailed
}

// Wait blocks until the load resolves or ctx is done. It returns the load error, if any.
// Wait must only be called after Load.
func (a *Adapter) Wait(ctx context.Context) error {
	select {
	case <-a.done:
		return a.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the load error once loading has failed.
func (a *Adapter) Err() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loadErr
}

// Estimate runs one inference on frame and returns the detections in model order.
// While the model is not ready it returns an empty result and a model-unavailable error.
func (a *Adapter) Estimate(ctx context.Context, frame image.Image) ([]detection.Detection, error) {
	if !a.Ready() {
		return nil, errors.New(ErrModelUnavailable).
			Component("detector").
			Category(errors.CategoryModelUnavailable).
			Build()
	}

	a.mu.RLock()
	model := a.model
	a.mu.RUnlock()

	rects, err := model.Estimate(ctx, frame)
	if err != nil {
		return nil, errors.New(err).
			Component("detector").
			Category(errors.CategoryProcessing).
			Context("operation", "estimate").
			Build()
	}

	bounds := frame.Bounds()
	detections := make([]detection.Detection, 0, len(rects))
	for _, r := range rects {
		// clip to the frame, drop boxes that fall outside it
		r = r.Canon().Intersect(bounds)
		if r.Empty() {
			continue
		}
		detections = append(detections, detection.Detection{Box: r})
	}
	return detections, nil
}

// Close releases the model. Safe to call when loading failed or never started.
// A load still in progress releases its model as soon as it finishes.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	if a.model == nil {
		return nil
	}
	err := a.model.Close()
	a.model = nil
	a.state.Store(int32(stateFailed))
	return err
}
