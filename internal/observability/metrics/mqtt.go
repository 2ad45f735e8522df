package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes of a detection publish.
const (
	PublishDelivered    = "delivered"
	PublishFailed       = "failed"
	PublishTimeout      = "timeout"
	PublishNotConnected = "not_connected"
)

// MQTTMetrics tracks the broker connection and detection event publishing.
type MQTTMetrics struct {
	ConnectionStatus  prometheus.Gauge
	LastConnectTime   prometheus.Gauge
	ConnectionLosses  prometheus.Counter
	ReconnectAttempts prometheus.Counter

	Publishes      *prometheus.CounterVec
	PublishLatency prometheus.Histogram
	MessageSize    prometheus.Histogram

	// filled in by the detection publish action
	FacesPublished prometheus.Counter
	EventDelay     prometheus.Histogram
}

// NewMQTTMetrics creates and registers the MQTT collectors.
func NewMQTTMetrics(registry *prometheus.Registry) (*MQTTMetrics, error) {
	m := &MQTTMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register MQTT metrics: %w", err)
	}
	return m, nil
}

func (m *MQTTMetrics) initMetrics() {
	m.ConnectionStatus = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "facewatch_mqtt_connected",
		Help: "1 while connected to the MQTT broker, 0 otherwise",
	})
	m.LastConnectTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "facewatch_mqtt_last_connect_time_seconds",
		Help: "Unix time of the last successful broker connection",
	})
	m.ConnectionLosses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "facewatch_mqtt_connection_losses_total",
		Help: "Broker connections lost after being established",
	})
	m.ReconnectAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "facewatch_mqtt_reconnect_attempts_total",
		Help: "Automatic reconnection attempts",
	})

	m.Publishes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "facewatch_mqtt_detection_publishes_total",
		Help: "Detection events handed to the broker, by outcome",
	}, []string{"outcome"})
	m.PublishLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "facewatch_mqtt_publish_latency_seconds",
		Help:    "Time from publish to broker acknowledgement",
		Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
	})
	m.MessageSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "facewatch_mqtt_message_size_bytes",
		Help:    "Size of delivered detection payloads",
		Buckets: prometheus.ExponentialBuckets(BucketStart64B, BucketFactor2, BucketCount10),
	})

	m.FacesPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "facewatch_mqtt_faces_published_total",
		Help: "Faces carried by delivered detection events",
	})
	m.EventDelay = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "facewatch_mqtt_detection_delay_seconds",
		Help:    "Time from detection to broker acknowledgement",
		Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
	})
}

// UpdateConnectionStatus sets the connection gauge; a connect also stamps the time.
func (m *MQTTMetrics) UpdateConnectionStatus(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.ConnectionStatus.Set(1)
		m.LastConnectTime.SetToCurrentTime()
		return
	}
	m.ConnectionStatus.Set(0)
}

// RecordConnectionLost marks an established connection as dropped.
func (m *MQTTMetrics) RecordConnectionLost() {
	if m == nil {
		return
	}
	m.ConnectionStatus.Set(0)
	m.ConnectionLosses.Inc()
}

// IncrementReconnectAttempts counts one reconnection attempt.
func (m *MQTTMetrics) IncrementReconnectAttempts() {
	if m == nil {
		return
	}
	m.ReconnectAttempts.Inc()
}

// RecordPublish records one publish attempt. Latency and size are only
// observed for delivered messages.
func (m *MQTTMetrics) RecordPublish(outcome string, sizeBytes int, latency time.Duration) {
	if m == nil {
		return
	}
	m.Publishes.WithLabelValues(outcome).Inc()
	if outcome != PublishDelivered {
		return
	}
	m.PublishLatency.Observe(latency.Seconds())
	m.MessageSize.Observe(float64(sizeBytes))
}

// RecordDetectionDelivered records a delivered detection with its face count
// and the time it was detected.
func (m *MQTTMetrics) RecordDetectionDelivered(faces int, detectedAt time.Time) {
	if m == nil {
		return
	}
	m.FacesPublished.Add(float64(faces))
	if !detectedAt.IsZero() {
		m.EventDelay.Observe(time.Since(detectedAt).Seconds())
	}
}

// Collect implements prometheus.Collector.
func (m *MQTTMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.ConnectionStatus
	ch <- m.LastConnectTime
	ch <- m.ConnectionLosses
	ch <- m.ReconnectAttempts
	m.Publishes.Collect(ch)
	ch <- m.PublishLatency
	ch <- m.MessageSize
	ch <- m.FacesPublished
	ch <- m.EventDelay
}

// Describe implements prometheus.Collector.
func (m *MQTTMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.ConnectionStatus.Desc()
	ch <- m.LastConnectTime.Desc()
	ch <- m.ConnectionLosses.Desc()
	ch <- m.ReconnectAttempts.Desc()
	m.Publishes.Describe(ch)
	ch <- m.PublishLatency.Desc()
	ch <- m.MessageSize.Desc()
	ch <- m.FacesPublished.Desc()
	ch <- m.EventDelay.Desc()
}
