package analysis

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/tphakala/facewatch/internal/detection"
	"github.com/tphakala/facewatch/internal/errors"
	"github.com/tphakala/facewatch/internal/frame"
	"github.com/tphakala/facewatch/internal/gallery"
	"github.com/tphakala/facewatch/internal/logger"
	"github.com/tphakala/facewatch/internal/notification"
	"github.com/tphakala/facewatch/internal/overlay"
)

// ImageOptions controls the outputs of ImageAnalysis.
type ImageOptions struct {
	// OverlayPath receives the annotated surface as PNG. Empty skips it.
	OverlayPath string
	// Save stores the annotated surface in the gallery under SaveName.
	Save     bool
	SaveName string
}

// ImageReport is the outcome of ImageAnalysis.
type ImageReport struct {
	Result      *detection.Result
	Annotations []overlay.Annotation
	OverlayPath string
	Saved       *gallery.SavedFace
}

// ImageAnalysis runs detection once on the image at path. It waits for the
// model, draws the image and its boxes, and never fires detection side
// effects. A failed gallery save is reported with a toast and returned.
func ImageAnalysis(ctx context.Context, p *Pipeline, path string, opts ImageOptions) (*ImageReport, error) {
	upload, err := frame.OpenUpload(path)
	if err != nil {
		return nil, err
	}

	if err := p.Detector.Wait(ctx); err != nil {
		return nil, err
	}

	img, err := upload.Frame(ctx)
	if err != nil {
		return nil, err
	}

	ctrl := p.NewController(upload, nil)
	result, annotations, err := ctrl.ProcessImage(ctx, img, upload.Name())
	if err != nil {
		return nil, err
	}
	report := &ImageReport{Result: result, Annotations: annotations}

	surface, current := ctrl.Capture()

	if opts.OverlayPath != "" {
		if err := writePNG(opts.OverlayPath, surface); err != nil {
			return report, err
		}
		report.OverlayPath = opts.OverlayPath
	}

	if !opts.Save {
		return report, nil
	}

	store, err := gallery.Open(p.Store, p.Settings.Output.FacesPath)
	if err != nil {
		return report, err
	}
	saved, err := store.Save(opts.SaveName, surface, current)
	if err != nil {
		if errors.IsCategory(err, errors.CategoryValidation) {
			p.Notifications.Error(notification.MsgInvalidSave, "gallery")
		}
		return report, err
	}
	report.Saved = &saved
	p.Notifications.Success(notification.MsgFaceSaved(saved.Name), "gallery")
	p.log.Info("face saved",
		logger.String("name", saved.Name),
		logger.Int("gallery_size", store.Len()))

	return report, nil
}

func writePNG(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fileError(err, path)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fileError(err, path)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return errors.New(fmt.Errorf("encode overlay: %w", err)).
			Component("analysis").
			Category(errors.CategoryImageEncode).
			Context("path", path).
			Build()
	}
	if err := f.Close(); err != nil {
		return fileError(err, path)
	}
	return nil
}

func fileError(err error, path string) error {
	return errors.New(err).
		Component("analysis").
		Category(errors.CategoryFileIO).
		Context("path", path).
		Build()
}
