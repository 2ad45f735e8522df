// Package processor runs the side effects of a non-empty detection.
package processor

import (
	"context"
	"image"
	"sync/atomic"
	"time"

	"github.com/tphakala/facewatch/internal/detection"
)

const (
	// CompositeActionTimeout is the default timeout for each action in a composite action.
	CompositeActionTimeout = 15 * time.Second

	// MQTTPublishTimeout bounds a single detection publish.
	MQTTPublishTimeout = 10 * time.Second
)

// Action names used in logs and failure metrics.
const (
	ActionAlert    = "alert"
	ActionSnapshot = "snapshot"
	ActionDatabase = "database"
	ActionMQTT     = "mqtt"
)

// Action is one side effect executed for a detection event.
type Action interface {
	Execute(ctx context.Context, data any) error
	GetDescription() string
}

// Event is the data passed to every action of one dispatch.
type Event struct {
	Result *detection.Result

	// Surface is a private copy of the overlay at dispatch time.
	Surface image.Image

	// snapshotPath is set by SnapshotAction so later actions can reference the file.
	snapshotPath atomic.Pointer[string]
}

// NewEvent creates the event for result and surface.
func NewEvent(result *detection.Result, surface image.Image) *Event {
	return &Event{Result: result, Surface: surface}
}

// SnapshotPath returns the written snapshot path, or "" if none was written.
func (e *Event) SnapshotPath() string {
	if p := e.snapshotPath.Load(); p != nil {
		return *p
	}
	return ""
}

func (e *Event) setSnapshotPath(path string) {
	e.snapshotPath.Store(&path)
}

// FailureRecorder receives the name of every action that failed.
type FailureRecorder interface {
	RecordSideEffectFailure(action string)
}
