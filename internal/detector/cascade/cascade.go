// Package cascade implements detector.Model with an OpenCV Haar cascade classifier.
package cascade

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/tphakala/facewatch/internal/conf"
	"github.com/tphakala/facewatch/internal/detector"
	"github.com/tphakala/facewatch/internal/errors"
)

// Model is a loaded Haar cascade. The classifier is not safe for concurrent use,
// so Estimate calls are serialized.
type Model struct {
	mu           sync.Mutex
	classifier   gocv.CascadeClassifier
	scaleFactor  float64
	minNeighbors int
	minSize      image.Point
}

// Load reads the cascade XML named in settings.
func Load(settings *conf.DetectorSettings) (*Model, error) {
	if _, err := os.Stat(settings.ModelPath); err != nil {
		return nil, errors.New(fmt.Errorf("cascade model file: %w", err)).
			Component("detector.cascade").
			Category(errors.CategoryModelLoad).
			Context("model_path", settings.ModelPath).
			Build()
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(settings.ModelPath) {
		classifier.Close()
		return nil, errors.Newf("failed to load cascade classifier from %s", settings.ModelPath).
			Component("detector.cascade").
			Category(errors.CategoryModelLoad).
			Context("model_path", settings.ModelPath).
			Build()
	}

	return &Model{
		classifier:   classifier,
		scaleFactor:  settings.ScaleFactor,
		minNeighbors: settings.MinNeighbors,
		minSize:      image.Pt(settings.MinSize, settings.MinSize),
	}, nil
}

// Loader returns a detector.Loader for the cascade backend.
func Loader(settings *conf.DetectorSettings) detector.Loader {
	return func(ctx context.Context) (detector.Model, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return Load(settings)
	}
}

// Estimate runs multi-scale detection on an equalized grayscale copy of img.
func (m *Model) Estimate(ctx context.Context, img image.Image) ([]image.Rectangle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert frame to mat: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorRGBToGray)
	gocv.EqualizeHist(gray, &gray)

	m.mu.Lock()
	defer m.mu.Unlock()

	rects := m.classifier.DetectMultiScaleWithParams(
		gray,
		m.scaleFactor, m.minNeighbors, 0,
		m.minSize, image.Pt(0, 0),
	)

	// gocv boxes are relative to the mat origin, shift back if the image bounds do not start at 0,0
	if origin := img.Bounds().Min; origin != (image.Point{}) {
		for i := range rects {
			rects[i] = rects[i].Add(origin)
		}
	}
	return rects, nil
}

// Close frees the native classifier.
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.classifier.Close()
}
