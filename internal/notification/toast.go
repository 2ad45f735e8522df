// Package notification delivers short-lived user-visible messages (toasts).
package notification

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ToastType is the visual category of a toast.
type ToastType string

const (
	ToastTypeInfo    ToastType = "info"
	ToastTypeSuccess ToastType = "success"
	ToastTypeWarning ToastType = "warning"
	ToastTypeError   ToastType = "error"
)

// Messages shown by the application.
const (
	MsgModelLoaded = "Face detection model loaded successfully!"
	MsgCameraAdded = "Custom camera added successfully!"
	MsgInvalidSave = "Please enter a name and ensure a face is detected"
)

// MsgFaceSaved returns the save confirmation for name.
func MsgFaceSaved(name string) string {
	return "Face saved for " + name
}

// Toast is an ephemeral notification.
type Toast struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Type      ToastType `json:"type"`
	Component string    `json:"component,omitempty"`
	Duration  int       `json:"duration,omitempty"` // milliseconds, 0 uses the center default
	Timestamp time.Time `json:"timestamp"`
}

// NewToast creates a toast with a fresh ID.
func NewToast(message string, toastType ToastType) *Toast {
	return &Toast{
		ID:        uuid.New().String(),
		Message:   message,
		Type:      toastType,
		Timestamp: time.Now(),
	}
}

// WithDuration sets how long the toast stays visible, in milliseconds.
func (t *Toast) WithDuration(ms int) *Toast {
	t.Duration = ms
	return t
}

// WithComponent sets the originating component.
func (t *Toast) WithComponent(component string) *Toast {
	t.Component = component
	return t
}

// String formats the toast for terminal output.
func (t *Toast) String() string {
	return fmt.Sprintf("[%s] %s", t.Type, t.Message)
}
