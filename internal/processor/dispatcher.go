package processor

import (
	"context"
	"image"
	"sync"

	"github.com/tphakala/facewatch/internal/detection"
	"github.com/tphakala/facewatch/internal/logger"
	"github.com/tphakala/facewatch/internal/mqtt"
	"github.com/tphakala/facewatch/internal/observability/metrics"
)

// Dispatcher fires the side effects of non-empty detections without blocking
// the caller. There is no acknowledgement, retry or deduplication.
type Dispatcher struct {
	alert   *AlertSoundAction
	persist *CompositeAction
	metrics *metrics.DetectionMetrics
	log     logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithAlert plays p for every detection.
func WithAlert(p Player) Option {
	return func(d *Dispatcher) {
		d.alert = &AlertSoundAction{Player: p}
	}
}

// WithSnapshots writes snapshots into dir.
func WithSnapshots(dir string) Option {
	return func(d *Dispatcher) {
		d.persist.Actions = append(d.persist.Actions, &SnapshotAction{Dir: dir})
	}
}

// WithDatabase records every detection in store.
func WithDatabase(store DetectionStore) Option {
	return func(d *Dispatcher) {
		d.persist.Actions = append(d.persist.Actions, &DatabaseAction{Store: store})
	}
}

// WithMQTT publishes every detection to topic. m may be nil.
func WithMQTT(client mqtt.Client, topic string, m *metrics.MQTTMetrics) Option {
	return func(d *Dispatcher) {
		d.persist.Actions = append(d.persist.Actions, &MqttAction{Client: client, Topic: topic, Metrics: m})
	}
}

// WithMetrics records snapshot and failure counts. m may be nil.
func WithMetrics(m *metrics.DetectionMetrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// NewDispatcher builds a dispatcher. Persistence actions run in the order
// their options are given; the alert runs alongside them.
func NewDispatcher(opts ...Option) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		persist: &CompositeAction{
			Description:     "Persist detection",
			ContinueOnError: true,
		},
		log:    GetLogger(),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.persist.OnActionError = func(action Action, _ error) {
		d.metrics.RecordSideEffectFailure(actionName(action))
	}
	for _, action := range d.persist.Actions {
		if s, ok := action.(*SnapshotAction); ok {
			s.OnWritten = func(string) { d.metrics.RecordSnapshot() }
		}
	}
	if d.alert != nil {
		d.alert.OnFailure = func(error) { d.metrics.RecordSideEffectFailure(ActionAlert) }
	}
	return d
}

// Dispatch starts the side effects for result. surface must be a private
// copy; it is read after Dispatch returns. Empty results are ignored.
func (d *Dispatcher) Dispatch(result *detection.Result, surface image.Image) {
	if result.Empty() {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	event := NewEvent(result, surface)

	if d.alert != nil {
		d.wg.Go(func() {
			_ = d.alert.Execute(d.ctx, event)
		})
	}
	if len(d.persist.Actions) > 0 {
		d.wg.Go(func() {
			if err := d.persist.Execute(d.ctx, event); err != nil {
				d.log.Debug("detection side effects incomplete", logger.Error(err))
			}
		})
	}
}

// Close stops accepting work and waits for in-flight side effects until ctx
// is done, then cancels whatever is still running.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
		d.cancel()
		<-done
	}
	d.cancel()
	return err
}

func actionName(action Action) string {
	switch action.(type) {
	case *AlertSoundAction:
		return ActionAlert
	case *SnapshotAction:
		return ActionSnapshot
	case *DatabaseAction:
		return ActionDatabase
	case *MqttAction:
		return ActionMQTT
	default:
		return "unknown"
	}
}
