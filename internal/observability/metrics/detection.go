package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DetectionMetrics covers the detection loop and its side effects.
type DetectionMetrics struct {
	CyclesTotal        prometheus.Counter
	CyclesSkipped      *prometheus.CounterVec
	DetectionsTotal    prometheus.Counter
	FacesPerFrame      prometheus.Histogram
	InferenceDuration  prometheus.Histogram
	SnapshotsWritten   prometheus.Counter
	SideEffectFailures *prometheus.CounterVec
	ModelReady         prometheus.Gauge
}

// NewDetectionMetrics creates and registers the detection collectors.
func NewDetectionMetrics(registry *prometheus.Registry) (*DetectionMetrics, error) {
	m := &DetectionMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register detection metrics: %w", err)
	}
	return m, nil
}

func (m *DetectionMetrics) initMetrics() {
	m.CyclesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "facewatch_cycles_total",
		Help: "Total number of completed detection cycles",
	})

	m.CyclesSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "facewatch_cycles_skipped_total",
		Help: "Detection cycles that produced no render, by reason",
	}, []string{"reason"})

	m.DetectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "facewatch_detections_total",
		Help: "Cycles that found at least one face",
	})

	m.FacesPerFrame = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "facewatch_faces_per_frame",
		Help:    "Number of faces found per processed frame",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
	})

	m.InferenceDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "facewatch_inference_duration_seconds",
		Help:    "Time taken by one face detector call",
		Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12), // 1ms to ~2s
	})

	m.SnapshotsWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "facewatch_snapshots_written_total",
		Help: "Detection snapshots persisted to disk",
	})

	m.SideEffectFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "facewatch_side_effect_failures_total",
		Help: "Failed side effects by action",
	}, []string{"action"})

	m.ModelReady = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "facewatch_model_ready",
		Help: "1 when the face detection model is loaded",
	})
}

// RecordCycle records a rendered cycle with its inference time and face count.
func (m *DetectionMetrics) RecordCycle(faces int, inference time.Duration) {
	if m == nil {
		return
	}
	m.CyclesTotal.Inc()
	m.FacesPerFrame.Observe(float64(faces))
	m.InferenceDuration.Observe(inference.Seconds())
	if faces > 0 {
		m.DetectionsTotal.Inc()
	}
}

// RecordSkip counts a skipped cycle.
func (m *DetectionMetrics) RecordSkip(reason string) {
	if m == nil {
		return
	}
	m.CyclesSkipped.WithLabelValues(reason).Inc()
}

// RecordSnapshot counts a written snapshot.
func (m *DetectionMetrics) RecordSnapshot() {
	if m == nil {
		return
	}
	m.SnapshotsWritten.Inc()
}

// RecordSideEffectFailure counts a failed action.
func (m *DetectionMetrics) RecordSideEffectFailure(action string) {
	if m == nil {
		return
	}
	m.SideEffectFailures.WithLabelValues(action).Inc()
}

// SetModelReady updates the model readiness gauge.
func (m *DetectionMetrics) SetModelReady(ready bool) {
	if m == nil {
		return
	}
	if ready {
		m.ModelReady.Set(1)
		return
	}
	m.ModelReady.Set(0)
}

// Describe implements prometheus.Collector.
func (m *DetectionMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.CyclesTotal.Describe(ch)
	m.CyclesSkipped.Describe(ch)
	m.DetectionsTotal.Describe(ch)
	m.FacesPerFrame.Describe(ch)
	m.InferenceDuration.Describe(ch)
	m.SnapshotsWritten.Describe(ch)
	m.SideEffectFailures.Describe(ch)
	m.ModelReady.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *DetectionMetrics) Collect(ch chan<- prometheus.Metric) {
	m.CyclesTotal.Collect(ch)
	m.CyclesSkipped.Collect(ch)
	m.DetectionsTotal.Collect(ch)
	m.FacesPerFrame.Collect(ch)
	m.InferenceDuration.Collect(ch)
	m.SnapshotsWritten.Collect(ch)
	m.SideEffectFailures.Collect(ch)
	m.ModelReady.Collect(ch)
}
