// Package detection provides the core domain model for face detection results.
// A Result is recomputed for every frame and never merged with earlier results.
package detection

import (
	"fmt"
	"image"
	"strings"
	"time"
)

// Detection is one face bounding box in frame-pixel space.
// Box.Min is the top-left corner and Box.Max the bottom-right corner.
type Detection struct {
	Box image.Rectangle
}

// NewDetection builds a Detection from corner coordinates.
func NewDetection(x1, y1, x2, y2 int) Detection {
	return Detection{Box: image.Rect(x1, y1, x2, y2)}
}

// Label returns the display label for the detection at zero-based position i.
func Label(i int) string {
	return fmt.Sprintf("Face %d", i+1)
}

// Result is the ordered set of detections for one frame.
// Ordering is detector-defined and only used for display numbering.
type Result struct {
	Detections []Detection

	// Source identifies the frame origin, a camera identifier or an upload path.
	Source string

	Timestamp      time.Time
	ProcessingTime time.Duration
}

// Empty reports whether no faces were detected.
func (r *Result) Empty() bool {
	return r == nil || len(r.Detections) == 0
}

// Count returns the number of detections.
func (r *Result) Count() int {
	if r == nil {
		return 0
	}
	return len(r.Detections)
}

// Boxes returns the bounding boxes in detection order.
func (r *Result) Boxes() []image.Rectangle {
	if r == nil {
		return nil
	}
	boxes := make([]image.Rectangle, len(r.Detections))
	for i, d := range r.Detections {
		boxes[i] = d.Box
	}
	return boxes
}

// snapshotTimeLayout is ISO-8601 UTC with milliseconds.
const snapshotTimeLayout = "2006-01-02T15:04:05.000Z"

// SnapshotName returns the snapshot file name for a detection at t,
// e.g. detection_2024-03-01T12-30-45.123Z.png
func SnapshotName(t time.Time) string {
	ts := t.UTC().Format(snapshotTimeLayout)
	return "detection_" + strings.ReplaceAll(ts, ":", "-") + ".png"
}
