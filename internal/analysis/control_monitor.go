package analysis

import (
	"context"
	"image"
	"os"

	"github.com/tphakala/facewatch/internal/controller"
	"github.com/tphakala/facewatch/internal/detection"
	"github.com/tphakala/facewatch/internal/errors"
	"github.com/tphakala/facewatch/internal/gallery"
	"github.com/tphakala/facewatch/internal/logger"
	"github.com/tphakala/facewatch/internal/notification"
)

// Control actions triggered while watching.
const (
	ActionToggle     = "toggle"
	ActionNextCamera = "next_camera"
	ActionSave       = "save"
)

// Toggler flips the detection loop between Idle and Detecting.
type Toggler interface {
	Toggle() controller.State
}

// CameraSwitcher attaches a different capture source.
type CameraSwitcher interface {
	Switch(cameraID string) error
	Name() string
}

// CameraPicker chooses the camera after the current one.
type CameraPicker interface {
	Next(current string) string
}

// Capturer returns the surface on screen with the result drawn on it.
type Capturer interface {
	Capture() (*image.RGBA, *detection.Result)
}

// FaceSaver stores a named capture.
type FaceSaver interface {
	Save(name string, snapshot image.Image, current *detection.Result) (gallery.SavedFace, error)
}

// ControlMonitor turns control requests into loop, camera and gallery changes.
type ControlMonitor struct {
	loop     Toggler
	source   CameraSwitcher
	cameras  CameraPicker
	notifier *notification.Center
	log      logger.Logger

	capturer Capturer
	faces    FaceSaver
	saveName string
}

// MonitorOption configures a ControlMonitor.
type MonitorOption func(*ControlMonitor)

// WithFaceSave enables ActionSave: the capture on screen is stored under name.
func WithFaceSave(capturer Capturer, faces FaceSaver, name string) MonitorOption {
	return func(cm *ControlMonitor) {
		cm.capturer = capturer
		cm.faces = faces
		cm.saveName = name
	}
}

// NewControlMonitor creates a monitor. notifier may be nil.
func NewControlMonitor(loop Toggler, source CameraSwitcher, cameras CameraPicker, notifier *notification.Center, opts ...MonitorOption) *ControlMonitor {
	cm := &ControlMonitor{
		loop:     loop,
		source:   source,
		cameras:  cameras,
		notifier: notifier,
		log:      GetLogger(),
	}
	for _, opt := range opts {
		opt(cm)
	}
	return cm
}

// Run handles actions until ctx is done or actions is closed.
func (cm *ControlMonitor) Run(ctx context.Context, actions <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case action, ok := <-actions:
			if !ok {
				return nil
			}
			cm.Handle(action)
		}
	}
}

// Handle performs one control action.
func (cm *ControlMonitor) Handle(action string) {
	switch action {
	case ActionToggle:
		state := cm.loop.Toggle()
		cm.log.Info("detection toggled", logger.String("state", state.String()))

	case ActionNextCamera:
		current := cm.source.Name()
		next := cm.cameras.Next(current)
		if err := cm.source.Switch(next); err != nil {
			cm.log.Warn("camera switch failed",
				logger.String("camera", next),
				logger.Error(err))
			if cm.notifier != nil {
				cm.notifier.Error("Camera unavailable: "+next, "cameras")
			}
			return
		}
		cm.log.Info("camera switched",
			logger.String("from", current),
			logger.String("to", next))

	case ActionSave:
		cm.saveFace()

	default:
		cm.log.Warn("unknown control action", logger.String("action", action))
	}
}

// saveFace stores what is on screen now. A capture without faces or a blank
// name is rejected with a toast and leaves the gallery unchanged.
func (cm *ControlMonitor) saveFace() {
	if cm.faces == nil || cm.capturer == nil {
		cm.log.Warn("face saving is not enabled")
		return
	}

	surface, current := cm.capturer.Capture()
	saved, err := cm.faces.Save(cm.saveName, surface, current)
	if err != nil {
		if errors.IsCategory(err, errors.CategoryValidation) {
			cm.log.Info("face save rejected",
				logger.Bool("name_set", gallery.NormalizeName(cm.saveName) != ""),
				logger.Int("faces", current.Count()))
			cm.notify(notification.ToastTypeError, notification.MsgInvalidSave)
			return
		}
		cm.log.Error("face save failed", logger.Error(err))
		cm.notify(notification.ToastTypeError, "Failed to save face: "+err.Error())
		return
	}

	cm.log.Info("face saved from live capture",
		logger.String("name", saved.Name),
		logger.Int("faces", current.Count()))
	cm.notify(notification.ToastTypeSuccess, notification.MsgFaceSaved(saved.Name))
}

func (cm *ControlMonitor) notify(kind notification.ToastType, message string) {
	if cm.notifier == nil {
		return
	}
	if kind == notification.ToastTypeSuccess {
		cm.notifier.Success(message, "gallery")
		return
	}
	cm.notifier.Error(message, "gallery")
}

// forwardSignals maps OS signals to control actions until ctx is done.
func forwardSignals(ctx context.Context, signals <-chan os.Signal, actions chan<- string) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-signals:
			action, ok := signalActions[sig]
			if !ok {
				continue
			}
			select {
			case actions <- action:
			case <-ctx.Done():
				return
			}
		}
	}
}
