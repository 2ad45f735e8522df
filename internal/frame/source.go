// Package frame supplies frames to the detection pipeline, either from a live
// capture device or from a decoded upload.
package frame

import (
	"context"
	"image"
	"strconv"
	"sync"

	"github.com/tphakala/facewatch/internal/errors"
	"github.com/tphakala/facewatch/internal/logger"
)

// DefaultCamera is the camera identifier for capture device 0.
const DefaultCamera = "user"

// ErrSourceUnavailable is returned when no frame can be produced right now.
var ErrSourceUnavailable = errors.NewStd("frame source unavailable")

// Source produces the current frame on demand.
type Source interface {
	Frame(ctx context.Context) (image.Image, error)
	// Name identifies the source in logs and detection records.
	Name() string
}

// Capturer is an attached capture device.
type Capturer interface {
	Read() (image.Image, error)
	Close() error
}

// Opener attaches the capture device for a camera identifier.
type Opener func(cameraID string) (Capturer, error)

// DeviceFor maps a camera identifier to what the capture backend opens:
// an int device index for "user" and numeric ids, otherwise the string itself.
func DeviceFor(cameraID string) any {
	if cameraID == "" || cameraID == DefaultCamera {
		return 0
	}
	if n, err := strconv.Atoi(cameraID); err == nil && n >= 0 {
		return n
	}
	return cameraID
}

// Live reads frames from the currently selected camera.
type Live struct {
	open Opener
	log  logger.Logger

	mu      sync.Mutex
	camera  string
	current Capturer
}

// NewLive creates a live source for cameraID. No device is attached until Open.
func NewLive(open Opener, cameraID string) *Live {
	if cameraID == "" {
		cameraID = DefaultCamera
	}
	return &Live{
		open:   open,
		camera: cameraID,
		log:    GetLogger(),
	}
}

// Open attaches the selected camera.
func (l *Live) Open() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attachLocked(l.camera)
}

// Switch selects a different camera. The previous device is released
// first; if the new one cannot be opened the source stays detached and
// frames are unavailable until the next successful Switch.
func (l *Live) Switch(cameraID string) error {
	if cameraID == "" {
		cameraID = DefaultCamera
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if cameraID == l.camera && l.current != nil {
		return nil
	}
	l.detachLocked()
	l.camera = cameraID
	return l.attachLocked(cameraID)
}

func (l *Live) attachLocked(cameraID string) error {
	if l.current != nil {
		return nil
	}
	capturer, err := l.open(cameraID)
	if err != nil {
		return errors.New(err).
			Component("frame").
			Category(errors.CategorySourceUnavailable).
			Context("camera", cameraID).
			Build()
	}
	l.current = capturer
	l.log.Info("camera attached", logger.String("camera", cameraID))
	return nil
}

func (l *Live) detachLocked() {
	if l.current == nil {
		return
	}
	if err := l.current.Close(); err != nil {
		l.log.Warn("failed to release camera", logger.String("camera", l.camera), logger.Error(err))
	}
	l.current = nil
}

// Frame reads the next frame. It returns ErrSourceUnavailable when no
// camera is attached or the device produced nothing.
func (l *Live) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == nil {
		return nil, l.unavailable("no camera attached")
	}
	img, err := l.current.Read()
	if err != nil || img == nil {
		return nil, l.unavailable("camera returned no frame")
	}
	return img, nil
}

func (l *Live) unavailable(reason string) error {
	return errors.New(ErrSourceUnavailable).
		Component("frame").
		Category(errors.CategorySourceUnavailable).
		Context("camera", l.camera).
		Context("reason", reason).
		Build()
}

// Name returns the selected camera identifier.
func (l *Live) Name() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.camera
}

// Attached reports whether a capture device is currently open.
func (l *Live) Attached() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current != nil
}

// Close releases the capture device.
func (l *Live) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return nil
	}
	err := l.current.Close()
	l.current = nil
	return err
}
