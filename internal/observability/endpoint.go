package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/tphakala/facewatch/internal/conf"
	"github.com/tphakala/facewatch/internal/logger"
	"github.com/tphakala/facewatch/internal/observability/metrics"
)

// Endpoint serves the Prometheus scrape endpoint.
type Endpoint struct {
	listenAddress string
	metrics       *Metrics
}

// NewEndpoint returns an error when the scrape endpoint is disabled in settings.
func NewEndpoint(settings *conf.Settings, m *Metrics) (*Endpoint, error) {
	if !settings.Telemetry.Prometheus.Enabled {
		return nil, errors.New("prometheus endpoint not enabled in settings")
	}
	return &Endpoint{
		listenAddress: settings.Telemetry.Prometheus.Listen,
		metrics:       m,
	}, nil
}

// Run serves until ctx is cancelled, then shuts the server down gracefully.
func (e *Endpoint) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", e.listenAddress)
	if err != nil {
		return err
	}
	return e.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (e *Endpoint) Serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	e.metrics.RegisterHandlers(mux)

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log := GetLogger()
	errCh := make(chan error, 1)
	go func() {
		log.Info("metrics endpoint starting", logger.String("address", ln.Addr().String()))
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("stopping metrics endpoint")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), metrics.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics endpoint shutdown error", logger.Error(err))
		return err
	}
	<-errCh
	return nil
}
