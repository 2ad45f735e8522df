// Package webcam attaches capture devices and network streams through OpenCV.
package webcam

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/tphakala/facewatch/internal/frame"
)

// Capture reads frames from one OpenCV video capture.
// It is used from a single goroutine at a time; frame.Live serializes access.
type Capture struct {
	vc  *gocv.VideoCapture
	mat gocv.Mat
}

// Open attaches the device for cameraID and requests the given frame size.
// Devices that cannot honour the size deliver their native resolution.
func Open(cameraID string, width, height int) (*Capture, error) {
	vc, err := gocv.OpenVideoCapture(frame.DeviceFor(cameraID))
	if err != nil {
		return nil, fmt.Errorf("open video capture %q: %w", cameraID, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("video capture %q did not open", cameraID)
	}

	if width > 0 && height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}

	return &Capture{vc: vc, mat: gocv.NewMat()}, nil
}

// Opener returns a frame.Opener bound to the configured frame size.
func Opener(width, height int) frame.Opener {
	return func(cameraID string) (frame.Capturer, error) {
		return Open(cameraID, width, height)
	}
}

// Read grabs the next frame and converts it to an RGBA image.
func (c *Capture) Read() (image.Image, error) {
	if ok := c.vc.Read(&c.mat); !ok || c.mat.Empty() {
		return nil, fmt.Errorf("no frame from device")
	}
	img, err := c.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	return img, nil
}

// Close releases the device and the frame buffer.
func (c *Capture) Close() error {
	matErr := c.mat.Close()
	if err := c.vc.Close(); err != nil {
		return err
	}
	return matErr
}
