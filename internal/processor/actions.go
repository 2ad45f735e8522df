package processor

import (
	"bufio"
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/tphakala/facewatch/internal/detection"
	"github.com/tphakala/facewatch/internal/errors"
	"github.com/tphakala/facewatch/internal/logger"
)

// Player plays the alert sound.
type Player interface {
	Play(ctx context.Context) error
}

// AlertSoundAction plays the notification sound. Playback failures are
// logged and swallowed.
type AlertSoundAction struct {
	Player      Player
	Description string
	OnFailure   func(err error)
}

// GetDescription returns a human-readable description of the AlertSoundAction
func (a *AlertSoundAction) GetDescription() string {
	if a.Description != "" {
		return a.Description
	}
	return "Play detection alert sound"
}

// Execute plays the sound and never returns an error.
func (a *AlertSoundAction) Execute(ctx context.Context, _ any) error {
	if a.Player == nil {
		return nil
	}
	if err := a.Player.Play(ctx); err != nil {
		GetLogger().Debug("alert sound unavailable", logger.Error(err))
		if a.OnFailure != nil {
			a.OnFailure(err)
		}
	}
	return nil
}

// SnapshotAction writes the overlay surface as detection_<timestamp>.png.
type SnapshotAction struct {
	Dir         string
	Description string
	OnWritten   func(path string)
}

// GetDescription returns a human-readable description of the SnapshotAction
func (a *SnapshotAction) GetDescription() string {
	if a.Description != "" {
		return a.Description
	}
	return "Save detection snapshot to file"
}

// Execute encodes the event surface to PNG.
func (a *SnapshotAction) Execute(ctx context.Context, data any) error {
	event, ok := data.(*Event)
	if !ok || event.Surface == nil {
		return errors.Newf("snapshot action requires an event with a surface, got %T", data).
			Component("processor").
			Category(errors.CategoryValidation).
			Build()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return snapshotError(err, errors.CategoryFileIO, a.Dir)
	}

	path := filepath.Join(a.Dir, detection.SnapshotName(event.Result.Timestamp))
	if err := writePNG(path, event); err != nil {
		return err
	}

	event.setSnapshotPath(path)
	GetLogger().Debug("snapshot saved", logger.String("path", path))
	if a.OnWritten != nil {
		a.OnWritten(path)
	}
	return nil
}

func writePNG(path string, event *Event) error {
	f, err := os.Create(path)
	if err != nil {
		return snapshotError(err, errors.CategoryFileIO, path)
	}

	w := bufio.NewWriter(f)
	if err := png.Encode(w, event.Surface); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return snapshotError(err, errors.CategoryImageEncode, path)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return snapshotError(err, errors.CategoryFileIO, path)
	}
	if err := f.Close(); err != nil {
		return snapshotError(err, errors.CategoryFileIO, path)
	}
	return nil
}

func snapshotError(err error, category errors.ErrorCategory, path string) error {
	return errors.New(fmt.Errorf("failed to save snapshot: %w", err)).
		Component("processor").
		Category(category).
		Context("path", path).
		Build()
}
