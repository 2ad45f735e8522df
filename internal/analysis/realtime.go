package analysis

import (
	"context"
	"io"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/facewatch/internal/cameras"
	"github.com/tphakala/facewatch/internal/frame"
	"github.com/tphakala/facewatch/internal/gallery"
	"github.com/tphakala/facewatch/internal/logger"
	"github.com/tphakala/facewatch/internal/observability"
)

// shutdownTimeout bounds how long in-flight side effects may run after exit.
const shutdownTimeout = 10 * time.Second

// RealtimeAnalysis runs the live detection loop until ctx is done. Detection
// starts immediately; control signals toggle it, cycle cameras and save the
// face on screen. Toasts are written to out.
func RealtimeAnalysis(ctx context.Context, p *Pipeline, opener frame.Opener, out io.Writer) error {
	log := p.log
	started := time.Now()

	cameraStore, err := cameras.Open(p.Store)
	if err != nil {
		return err
	}
	faces, err := gallery.Open(p.Store, p.Settings.Output.FacesPath)
	if err != nil {
		return err
	}

	live := frame.NewLive(opener, p.Settings.Capture.Camera)
	if err := live.Open(); err != nil {
		// cycles are no-ops until a camera is attached
		log.Warn("camera unavailable", logger.String("camera", live.Name()), logger.Error(err))
		p.Notifications.Error("Camera unavailable: "+live.Name(), "cameras")
	}
	defer func() {
		if err := live.Close(); err != nil {
			log.Warn("error closing camera", logger.Error(err))
		}
	}()

	client := p.NewMQTTClient()
	dispatcher := p.NewDispatcher(client)
	ctrl := p.NewController(live, dispatcher)
	monitor := NewControlMonitor(ctrl, live, cameraStore, p.Notifications,
		WithFaceSave(ctrl, faces, p.Settings.Output.SaveName))

	log.Info("starting face detection",
		logger.String("camera", live.Name()),
		logger.Int("fps", p.Settings.Capture.FPS),
		logger.Bool("alert", p.Settings.Alert.Enabled),
		logger.Bool("mqtt", client != nil))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return ctrl.Run(gctx) })
	g.Go(func() error { return p.Notifications.Forward(gctx, out) })

	actions := make(chan string, 1)
	g.Go(func() error { return monitor.Run(gctx, actions) })
	if sigs := controlSignals(); len(sigs) > 0 {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, sigs...)
		defer signal.Stop(sigCh)
		g.Go(func() error {
			forwardSignals(gctx, sigCh, actions)
			return nil
		})
	}

	if p.Settings.Telemetry.Prometheus.Enabled {
		endpoint, err := observability.NewEndpoint(p.Settings, p.Metrics)
		if err != nil {
			return err
		}
		g.Go(func() error {
			if err := endpoint.Run(gctx); err != nil {
				log.Warn("metrics endpoint stopped", logger.Error(err))
			}
			return nil
		})
	}

	if client != nil {
		g.Go(func() error {
			if err := client.Connect(gctx); err != nil {
				// publishes fail and are counted until the broker comes back
				log.Warn("MQTT connection failed", logger.Error(err))
			}
			return nil
		})
	}

	ctrl.Start()

	err = g.Wait()

	ctrl.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if cerr := dispatcher.Close(shutdownCtx); cerr != nil {
		log.Warn("side effects did not finish before shutdown", logger.Error(cerr))
	}
	if client != nil {
		client.Disconnect()
	}

	p.LogSummary(started)
	return err
}
