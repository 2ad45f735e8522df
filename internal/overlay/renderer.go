// Package overlay draws frames and detection boxes onto a drawing surface.
//
// Every Render clears the surface, draws the frame, then draws all boxes.
// That order is what makes the surface reflect exactly one result.
package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/tphakala/facewatch/internal/detection"
)

// Style controls how boxes and labels are drawn.
type Style struct {
	Stroke      color.RGBA
	LineWidth   int
	LabelOffset int     // label baseline distance above the box top
	FontSize    float64 // points at 72 DPI, i.e. pixels
}

// DefaultStyle draws red 2px boxes with a 16px label 5px above the top-left corner.
var DefaultStyle = Style{
	Stroke:      color.RGBA{R: 255, A: 255},
	LineWidth:   2,
	LabelOffset: 5,
	FontSize:    16,
}

// Annotation describes one drawn box.
type Annotation struct {
	Label   string
	Rect    image.Rectangle
	LabelAt image.Point // label baseline origin
}

// Renderer owns the drawing surface.
type Renderer struct {
	mu      sync.Mutex
	surface *image.RGBA
	style   Style
	face    font.Face
}

// NewRenderer creates a width x height surface drawn with style.
func NewRenderer(width, height int, style Style) *Renderer {
	return &Renderer{
		surface: image.NewRGBA(image.Rect(0, 0, width, height)),
		style:   style,
		face:    loadFace(style.FontSize),
	}
}

// loadFace returns Go Regular at size, or the fixed 7x13 face if it cannot be built.
func loadFace(size float64) font.Face {
	if size <= 0 {
		return basicfont.Face7x13
	}
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}

// Resize replaces the surface with a blank one of the given size.
func (r *Renderer) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.surface.Bounds().Dx() == width && r.surface.Bounds().Dy() == height {
		return
	}
	r.surface = image.NewRGBA(image.Rect(0, 0, width, height))
}

// Size returns the surface dimensions.
func (r *Renderer) Size() image.Point {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.surface.Bounds().Size()
}

// Render clears the surface, draws frame scaled to the surface and then a
// box and "Face N" label for each detection, numbered in detection order.
// Box coordinates are in frame space and scaled along with the frame.
func (r *Renderer) Render(frame image.Image, detections []detection.Detection) []Annotation {
	r.mu.Lock()
	defer r.mu.Unlock()

	dst := r.surface
	bounds := dst.Bounds()

	draw.Draw(dst, bounds, image.Transparent, image.Point{}, draw.Src)

	sx, sy := 1.0, 1.0
	var origin image.Point
	if frame != nil {
		fb := frame.Bounds()
		if fb.Size() == bounds.Size() {
			draw.Draw(dst, bounds, frame, fb.Min, draw.Src)
		} else {
			xdraw.ApproxBiLinear.Scale(dst, bounds, frame, fb, draw.Src, nil)
			sx = float64(bounds.Dx()) / float64(fb.Dx())
			sy = float64(bounds.Dy()) / float64(fb.Dy())
		}
		origin = fb.Min
	}

	annotations := make([]Annotation, 0, len(detections))
	for i, d := range detections {
		// boxes are relative to the frame origin
		rect := scaleRect(d.Box.Sub(origin), sx, sy)
		r.strokeRect(rect)

		label := detection.Label(i)
		at := image.Pt(rect.Min.X, rect.Min.Y-r.style.LabelOffset)
		r.drawLabel(label, at)

		annotations = append(annotations, Annotation{Label: label, Rect: rect, LabelAt: at})
	}
	return annotations
}

func scaleRect(rect image.Rectangle, sx, sy float64) image.Rectangle {
	if sx == 1 && sy == 1 {
		return rect
	}
	return image.Rect(
		int(float64(rect.Min.X)*sx), int(float64(rect.Min.Y)*sy),
		int(float64(rect.Max.X)*sx), int(float64(rect.Max.Y)*sy),
	)
}

// strokeRect draws the outline inside rect so the outer edge matches the box.
func (r *Renderer) strokeRect(rect image.Rectangle) {
	w := r.style.LineWidth
	if w <= 0 {
		w = 1
	}
	src := image.NewUniform(r.style.Stroke)
	edges := []image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+w), // top
		image.Rect(rect.Min.X, rect.Max.Y-w, rect.Max.X, rect.Max.Y), // bottom
		image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+w, rect.Max.Y), // left
		image.Rect(rect.Max.X-w, rect.Min.Y, rect.Max.X, rect.Max.Y), // right
	}
	for _, e := range edges {
		draw.Draw(r.surface, e.Intersect(rect), src, image.Point{}, draw.Over)
	}
}

func (r *Renderer) drawLabel(label string, at image.Point) {
	d := font.Drawer{
		Dst:  r.surface,
		Src:  image.NewUniform(r.style.Stroke),
		Face: r.face,
		Dot:  fixed.P(at.X, at.Y),
	}
	d.DrawString(label)
}

// Snapshot returns a copy of the current surface.
func (r *Renderer) Snapshot() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := image.NewRGBA(r.surface.Bounds())
	copy(snap.Pix, r.surface.Pix)
	return snap
}
