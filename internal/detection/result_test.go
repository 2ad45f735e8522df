package detection

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotName(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 1, 12, 30, 45, 123_000_000, time.UTC)
	assert.Equal(t, "detection_2024-03-01T12-30-45.123Z.png", SnapshotName(ts))

	// converted to UTC
	helsinki := time.FixedZone("EET", 2*60*60)
	assert.Equal(t, "detection_2024-03-01T12-30-45.123Z.png", SnapshotName(ts.In(helsinki)))

	// zero milliseconds are kept
	assert.Equal(t, "detection_2024-03-01T12-30-45.000Z.png",
		SnapshotName(time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC)))
}

func TestResult_Accessors(t *testing.T) {
	t.Parallel()

	var nilResult *Result
	assert.True(t, nilResult.Empty())
	assert.Zero(t, nilResult.Count())
	assert.Nil(t, nilResult.Boxes())

	r := &Result{Detections: []Detection{NewDetection(10, 10, 50, 50), NewDetection(100, 20, 140, 80)}}
	assert.False(t, r.Empty())
	assert.Equal(t, 2, r.Count())
	assert.Equal(t, []image.Rectangle{image.Rect(10, 10, 50, 50), image.Rect(100, 20, 140, 80)}, r.Boxes())
	assert.Equal(t, 40, r.Detections[0].Box.Dx())
}

func TestLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Face 1", Label(0))
	assert.Equal(t, "Face 12", Label(11))
}
