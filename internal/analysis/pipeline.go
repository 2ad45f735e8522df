// Package analysis assembles the face detection pipeline for the live watch
// loop and for one-shot image analysis.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/tphakala/facewatch/internal/conf"
	"github.com/tphakala/facewatch/internal/controller"
	"github.com/tphakala/facewatch/internal/datastore"
	"github.com/tphakala/facewatch/internal/detector"
	"github.com/tphakala/facewatch/internal/frame"
	"github.com/tphakala/facewatch/internal/logger"
	"github.com/tphakala/facewatch/internal/mqtt"
	"github.com/tphakala/facewatch/internal/notification"
	"github.com/tphakala/facewatch/internal/observability"
	"github.com/tphakala/facewatch/internal/overlay"
	"github.com/tphakala/facewatch/internal/processor"
	"github.com/tphakala/facewatch/internal/sound"
)

// Pipeline owns the components shared by every detection mode.
type Pipeline struct {
	Settings      *conf.Settings
	Store         datastore.Interface
	Detector      *detector.Adapter
	Renderer      *overlay.Renderer
	Notifications *notification.Center
	Metrics       *observability.Metrics

	log logger.Logger
}

// NewPipeline creates the pipeline and starts loading the model in the
// background. Detection is a no-op until loading completes; a successful load
// raises the model loaded toast.
func NewPipeline(ctx context.Context, settings *conf.Settings, store datastore.Interface, loader detector.Loader) (*Pipeline, error) {
	m, err := observability.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("error initializing metrics: %w", err)
	}

	p := &Pipeline{
		Settings:      settings,
		Store:         store,
		Renderer:      overlay.NewRenderer(settings.Capture.Width, settings.Capture.Height, overlay.DefaultStyle),
		Notifications: notification.NewCenter(),
		Metrics:       m,
		log:           GetLogger(),
	}

	p.Detector = detector.New(loader, detector.WithOnLoaded(func() {
		m.Detection.SetModelReady(true)
		p.Notifications.Success(notification.MsgModelLoaded, "detector")
	}))
	p.Detector.Load(ctx)

	return p, nil
}

// NewController returns an idle controller that reads from src and paces
// cycles at the configured frame rate. d may be nil.
func (p *Pipeline) NewController(src frame.Source, d controller.Dispatcher) *controller.Controller {
	opts := []controller.Option{
		controller.WithPacer(controller.NewRatePacer(p.Settings.Capture.FPS)),
		controller.WithMetrics(p.Metrics.Detection),
	}
	if d != nil {
		opts = append(opts, controller.WithDispatcher(d))
	}
	return controller.New(p.Detector, src, p.Renderer, opts...)
}

// NewDispatcher wires the enabled side effects. The alert sound and MQTT are
// optional; a broken sound file disables the alert instead of failing.
func (p *Pipeline) NewDispatcher(client mqtt.Client) *processor.Dispatcher {
	opts := []processor.Option{
		processor.WithSnapshots(p.Settings.Output.SnapshotPath),
		processor.WithDatabase(p.Store),
		processor.WithMetrics(p.Metrics.Detection),
	}

	if p.Settings.Alert.Enabled {
		player, err := sound.NewPlayer(&p.Settings.Alert)
		if err != nil {
			p.log.Warn("alert sound disabled", logger.Error(err))
		} else {
			opts = append(opts, processor.WithAlert(player))
		}
	}

	if client != nil {
		opts = append(opts, processor.WithMQTT(client, p.Settings.MQTT.Topic, p.Metrics.MQTT))
	}

	return processor.NewDispatcher(opts...)
}

// NewMQTTClient returns a client for the configured broker, or nil when MQTT
// is disabled.
func (p *Pipeline) NewMQTTClient() mqtt.Client {
	if !p.Settings.MQTT.Enabled {
		return nil
	}
	return mqtt.NewClient(p.Settings, p.Metrics.MQTT)
}

// LogSummary logs the detections recorded since start.
func (p *Pipeline) LogSummary(start time.Time) {
	summary, err := p.Store.SummarizeDetections(start)
	if err != nil {
		p.log.Warn("could not summarize detections", logger.Error(err))
		return
	}
	p.log.Info("session summary",
		logger.Int64("detections", summary.Detections),
		logger.Int64("faces", summary.Faces),
		logger.Duration("uptime", time.Since(start).Round(time.Second)))
}

// Close releases the model and ends notification subscriptions.
func (p *Pipeline) Close() error {
	p.Notifications.Close()
	return p.Detector.Close()
}
