package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/facewatch/internal/detection"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	gray = color.RGBA{R: 90, G: 90, B: 90, A: 255}
)

func solidFrame(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func TestRender_SingleBox(t *testing.T) {
	t.Parallel()

	r := NewRenderer(640, 480, DefaultStyle)
	anns := r.Render(solidFrame(640, 480, gray), []detection.Detection{detection.NewDetection(10, 10, 50, 50)})

	require.Len(t, anns, 1)
	assert.Equal(t, "Face 1", anns[0].Label)
	assert.Equal(t, 40, anns[0].Rect.Dx())
	assert.Equal(t, 40, anns[0].Rect.Dy())
	assert.Equal(t, image.Pt(10, 5), anns[0].LabelAt)

	snap := r.Snapshot()
	// 2px stroke inside the box
	assert.Equal(t, red, snap.RGBAAt(10, 10))
	assert.Equal(t, red, snap.RGBAAt(11, 30))
	assert.Equal(t, red, snap.RGBAAt(49, 49))
	assert.Equal(t, red, snap.RGBAAt(48, 30))
	// interior and exterior keep the frame
	assert.Equal(t, gray, snap.RGBAAt(12, 30))
	assert.Equal(t, gray, snap.RGBAAt(30, 30))
	assert.Equal(t, gray, snap.RGBAAt(9, 30))
	assert.Equal(t, gray, snap.RGBAAt(50, 30))
}

func TestRender_NumbersInDetectionOrder(t *testing.T) {
	t.Parallel()

	dets := []detection.Detection{
		detection.NewDetection(300, 200, 340, 260),
		detection.NewDetection(10, 100, 60, 150),
		detection.NewDetection(500, 50, 560, 110),
	}
	r := NewRenderer(640, 480, DefaultStyle)
	anns := r.Render(solidFrame(640, 480, gray), dets)

	require.Len(t, anns, len(dets))
	for i, a := range anns {
		assert.Equal(t, detection.Label(i), a.Label)
		assert.Equal(t, dets[i].Box, a.Rect)
	}
}

func TestRender_LabelIsDrawnAboveBox(t *testing.T) {
	t.Parallel()

	r := NewRenderer(200, 200, DefaultStyle)
	r.Render(solidFrame(200, 200, gray), []detection.Detection{detection.NewDetection(40, 80, 120, 160)})
	snap := r.Snapshot()

	found := false
	for y := 55; y < 80 && !found; y++ {
		for x := 40; x < 120; x++ {
			if c := snap.RGBAAt(x, y); c.R > 200 && c.G < 100 {
				found = true
				break
			}
		}
	}
	assert.True(t, found, "expected red label pixels above the box")
}

func TestRender_ClearsPreviousResult(t *testing.T) {
	t.Parallel()

	r := NewRenderer(100, 100, DefaultStyle)
	r.Render(solidFrame(100, 100, gray), []detection.Detection{detection.NewDetection(10, 10, 50, 50)})
	anns := r.Render(solidFrame(100, 100, gray), nil)

	assert.Empty(t, anns)
	assert.Equal(t, gray, r.Snapshot().RGBAAt(10, 10), "old box must not survive a new render")
}

func TestRender_ScalesFrameAndBoxes(t *testing.T) {
	t.Parallel()

	r := NewRenderer(640, 480, DefaultStyle)
	anns := r.Render(solidFrame(320, 240, gray), []detection.Detection{detection.NewDetection(10, 10, 50, 50)})

	require.Len(t, anns, 1)
	assert.Equal(t, image.Rect(20, 20, 100, 100), anns[0].Rect)
	assert.Equal(t, gray, r.Snapshot().RGBAAt(600, 400))
}

func TestRender_DoesNotMutateDetections(t *testing.T) {
	t.Parallel()

	frame := solidFrame(100, 100, gray).SubImage(image.Rect(20, 20, 80, 80))
	dets := []detection.Detection{detection.NewDetection(30, 30, 40, 40)}

	r := NewRenderer(60, 60, DefaultStyle)
	anns := r.Render(frame, dets)

	assert.Equal(t, image.Rect(30, 30, 40, 40), dets[0].Box)
	assert.Equal(t, image.Rect(10, 10, 20, 20), anns[0].Rect)
}

func TestResize(t *testing.T) {
	t.Parallel()

	r := NewRenderer(640, 480, DefaultStyle)
	r.Resize(1024, 768)
	assert.Equal(t, image.Pt(1024, 768), r.Size())
	assert.Equal(t, image.Rect(0, 0, 1024, 768), r.Snapshot().Bounds())
}

func TestSnapshot_IsACopy(t *testing.T) {
	t.Parallel()

	r := NewRenderer(10, 10, DefaultStyle)
	r.Render(solidFrame(10, 10, gray), nil)
	snap := r.Snapshot()
	snap.SetRGBA(0, 0, red)

	assert.Equal(t, gray, r.Snapshot().RGBAAt(0, 0))
}
