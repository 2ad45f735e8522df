package processor

import (
	"context"
	"encoding/json"

	"github.com/tphakala/facewatch/internal/datastore"
	"github.com/tphakala/facewatch/internal/errors"
	"github.com/tphakala/facewatch/internal/logger"
	"github.com/tphakala/facewatch/internal/mqtt"
	"github.com/tphakala/facewatch/internal/observability/metrics"
)

// DetectionStore is the part of the datastore used by DatabaseAction.
type DetectionStore interface {
	SaveDetection(rec *datastore.DetectionRecord) error
}

// DatabaseAction records the detection in the detection history.
type DatabaseAction struct {
	Store       DetectionStore
	Description string
}

// GetDescription returns a human-readable description of the DatabaseAction
func (a *DatabaseAction) GetDescription() string {
	if a.Description != "" {
		return a.Description
	}
	return "Save detection to database"
}

// Execute inserts one DetectionRecord.
func (a *DatabaseAction) Execute(_ context.Context, data any) error {
	event, ok := data.(*Event)
	if !ok {
		return invalidData("database", data)
	}

	boxes, err := json.Marshal(boxArray(event))
	if err != nil {
		return errors.New(err).
			Component("processor").
			Category(errors.CategoryProcessing).
			Build()
	}

	rec := &datastore.DetectionRecord{
		Timestamp:    event.Result.Timestamp,
		Camera:       event.Result.Source,
		Faces:        event.Result.Count(),
		Boxes:        string(boxes),
		SnapshotPath: event.SnapshotPath(),
		ProcessingMs: event.Result.ProcessingTime.Milliseconds(),
	}
	if err := a.Store.SaveDetection(rec); err != nil {
		return err
	}
	GetLogger().Debug("detection recorded", logger.Uint64("id", uint64(rec.ID)))
	return nil
}

func boxArray(event *Event) [][4]int {
	boxes := make([][4]int, 0, event.Result.Count())
	for _, b := range event.Result.Boxes() {
		boxes = append(boxes, [4]int{b.Min.X, b.Min.Y, b.Max.X, b.Max.Y})
	}
	return boxes
}

// MqttAction publishes the detection event as JSON.
type MqttAction struct {
	Client      mqtt.Client
	Topic       string
	Description string
	Metrics     *metrics.MQTTMetrics // may be nil
}

// GetDescription returns a human-readable description of the MqttAction
func (a *MqttAction) GetDescription() string {
	if a.Description != "" {
		return a.Description
	}
	return "Publish detection to MQTT"
}

// Execute publishes the event. A disconnected client is an error; reconnection
// is left to the client.
func (a *MqttAction) Execute(ctx context.Context, data any) error {
	event, ok := data.(*Event)
	if !ok {
		return invalidData("mqtt", data)
	}

	payload, err := mqtt.NewDetectionEvent(event.Result, event.SnapshotPath()).Marshal()
	if err != nil {
		return errors.New(err).
			Component("processor").
			Category(errors.CategoryProcessing).
			Build()
	}

	ctx, cancel := context.WithTimeout(ctx, MQTTPublishTimeout)
	defer cancel()
	if err := a.Client.Publish(ctx, a.Topic, payload); err != nil {
		return err
	}
	a.Metrics.RecordDetectionDelivered(event.Result.Count(), event.Result.Timestamp)
	return nil
}

func invalidData(action string, data any) error {
	return errors.Newf("%s action requires *processor.Event, got %T", action, data).
		Component("processor").
		Category(errors.CategoryValidation).
		Build()
}
