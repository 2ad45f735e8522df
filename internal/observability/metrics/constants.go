// Package metrics provides the Prometheus collectors used by FaceWatch.
package metrics

import "time"

// Reasons a detection cycle is skipped.
const (
	SkipModelNotReady     = "model_not_ready"
	SkipSourceUnavailable = "source_unavailable"
	SkipStopped           = "stopped"
	SkipInferenceError    = "inference_error"
)

// Histogram bucket configuration.
const (
	BucketStart1ms = 0.001
	BucketStart64B = 64.0
	BucketFactor2  = 2
	BucketCount10  = 10
	BucketCount12  = 12
)

// ShutdownTimeout bounds the graceful stop of the scrape endpoint.
const ShutdownTimeout = 5 * time.Second
