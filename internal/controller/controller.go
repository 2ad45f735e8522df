// Package controller drives the continuous face detection loop.
//
// The controller owns the Idle/Detecting state. Exactly one goroutine, Run,
// executes cycles, so cycles never overlap no matter how often Start is
// called. Stop is cooperative: a cycle in flight finishes its inference but
// its result is discarded before anything is drawn or dispatched.
package controller

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tphakala/facewatch/internal/detection"
	"github.com/tphakala/facewatch/internal/errors"
	"github.com/tphakala/facewatch/internal/frame"
	"github.com/tphakala/facewatch/internal/logger"
	"github.com/tphakala/facewatch/internal/observability/metrics"
	"github.com/tphakala/facewatch/internal/overlay"
)

// State is the loop state.
type State int32

const (
	StateIdle State = iota
	StateDetecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDetecting:
		return "detecting"
	default:
		return "unknown"
	}
}

// Detector is the face detection capability used by the loop.
type Detector interface {
	Ready() bool
	Estimate(ctx context.Context, frame image.Image) ([]detection.Detection, error)
}

// Dispatcher receives non-empty results together with a private copy of the surface.
type Dispatcher interface {
	Dispatch(result *detection.Result, surface image.Image)
}

// Controller runs detection cycles against a frame source.
type Controller struct {
	detector   Detector
	source     frame.Source
	renderer   *overlay.Renderer
	dispatcher Dispatcher
	pacer      Pacer
	metrics    *metrics.DetectionMetrics
	observer   func(*detection.Result)
	log        logger.Logger

	state atomic.Int32
	wake  chan struct{}

	// cycleMu serializes everything that draws on the renderer surface.
	cycleMu sync.Mutex

	mu          sync.RWMutex
	current     *detection.Result
	annotations []overlay.Annotation
}

// Option configures a Controller.
type Option func(*Controller)

// WithDispatcher sets where non-empty results are sent.
func WithDispatcher(d Dispatcher) Option {
	return func(c *Controller) { c.dispatcher = d }
}

// WithPacer replaces the default 10 fps pacer.
func WithPacer(p Pacer) Option {
	return func(c *Controller) { c.pacer = p }
}

// WithMetrics records cycle metrics. m may be nil.
func WithMetrics(m *metrics.DetectionMetrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithCycleObserver is called with every rendered result, after dispatch.
func WithCycleObserver(fn func(*detection.Result)) Option {
	return func(c *Controller) { c.observer = fn }
}

// New creates an idle controller.
func New(det Detector, src frame.Source, renderer *overlay.Renderer, opts ...Option) *Controller {
	c := &Controller{
		detector: det,
		source:   src,
		renderer: renderer,
		pacer:    NewRatePacer(10),
		log:      GetLogger(),
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current loop state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Start moves Idle to Detecting and schedules a cycle immediately.
// It reports whether the state changed.
func (c *Controller) Start() bool {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateDetecting)) {
		return false
	}
	c.log.Info("detection started", logger.String("camera", c.source.Name()))
	select {
	case c.wake <- struct{}{}:
	default:
	}
	return true
}

// Stop moves Detecting to Idle. A cycle in flight is discarded.
// It reports whether the state changed.
func (c *Controller) Stop() bool {
	if !c.state.CompareAndSwap(int32(StateDetecting), int32(StateIdle)) {
		return false
	}
	c.log.Info("detection stopped")
	return true
}

// Toggle flips the state and returns the new one.
func (c *Controller) Toggle() State {
	if c.Stop() {
		return StateIdle
	}
	c.Start()
	return c.State()
}

// Run executes cycles while Detecting until ctx is done. It must be called
// from a single goroutine.
func (c *Controller) Run(ctx context.Context) error {
	for {
		if c.State() == StateIdle {
			select {
			case <-ctx.Done():
				return nil
			case <-c.wake:
				continue
			}
		}

		c.runCycle(ctx)

		if err := c.pacer.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Warn("pacer failed", logger.Error(err))
		}
	}
}

func (c *Controller) runCycle(ctx context.Context) {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()

	if !c.detector.Ready() {
		c.metrics.RecordSkip(metrics.SkipModelNotReady)
		return
	}

	img, err := c.source.Frame(ctx)
	if err != nil {
		c.metrics.RecordSkip(metrics.SkipSourceUnavailable)
		c.log.Trace("no frame", logger.Error(err))
		return
	}

	start := time.Now()
	dets, err := c.detector.Estimate(ctx, img)
	elapsed := time.Since(start)
	if err != nil {
		if errors.IsCategory(err, errors.CategoryModelUnavailable) {
			c.metrics.RecordSkip(metrics.SkipModelNotReady)
			return
		}
		c.metrics.RecordSkip(metrics.SkipInferenceError)
		c.log.Warn("face detection failed", logger.Error(err))
		return
	}

	// still-active guard: a result that arrives after Stop is dropped
	if c.State() != StateDetecting {
		c.metrics.RecordSkip(metrics.SkipStopped)
		return
	}

	result := &detection.Result{
		Detections:     dets,
		Source:         c.source.Name(),
		Timestamp:      time.Now(),
		ProcessingTime: elapsed,
	}
	annotations := c.renderer.Render(img, dets)
	c.setCurrent(result, annotations)
	c.metrics.RecordCycle(result.Count(), elapsed)

	if !result.Empty() {
		c.log.Info("faces detected",
			logger.Int("faces", result.Count()),
			logger.Int64("detection_ms", elapsed.Milliseconds()),
			logger.String("camera", result.Source))
		if c.dispatcher != nil {
			c.dispatcher.Dispatch(result, c.renderer.Snapshot())
		}
	}

	if c.observer != nil {
		c.observer(result)
	}
}

// ProcessImage runs the detect and overlay pipeline once on img, outside the
// loop. The surface is resized to the image. No side effects are dispatched.
// The result becomes the current detection.
func (c *Controller) ProcessImage(ctx context.Context, img image.Image, source string) (*detection.Result, []overlay.Annotation, error) {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()

	size := img.Bounds().Size()
	c.renderer.Resize(size.X, size.Y)

	start := time.Now()
	dets, err := c.detector.Estimate(ctx, img)
	elapsed := time.Since(start)
	if err != nil {
		c.renderer.Render(img, nil)
		c.setCurrent(nil, nil)
		return nil, nil, err
	}

	result := &detection.Result{
		Detections:     dets,
		Source:         source,
		Timestamp:      time.Now(),
		ProcessingTime: elapsed,
	}
	annotations := c.renderer.Render(img, dets)
	c.setCurrent(result, annotations)

	c.log.Info("image processed",
		logger.String("source", source),
		logger.Int("faces", result.Count()),
		logger.Int64("detection_ms", elapsed.Milliseconds()))
	return result, annotations, nil
}

func (c *Controller) setCurrent(result *detection.Result, annotations []overlay.Annotation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = result
	c.annotations = annotations
}

// Current returns the most recently rendered result, or nil.
func (c *Controller) Current() *detection.Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Annotations returns the boxes and labels drawn for the current result.
func (c *Controller) Annotations() []overlay.Annotation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]overlay.Annotation(nil), c.annotations...)
}

// Capture returns a copy of the surface together with the result drawn on it.
func (c *Controller) Capture() (*image.RGBA, *detection.Result) {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()
	return c.renderer.Snapshot(), c.Current()
}
