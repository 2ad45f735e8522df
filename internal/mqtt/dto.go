package mqtt

import (
	"encoding/json"
	"time"

	"github.com/tphakala/facewatch/internal/detection"
)

// DetectionEventDTO is the JSON payload published for every dispatched detection.
// Field names are part of the published contract.
type DetectionEventDTO struct {
	Timestamp string   `json:"timestamp"` // RFC 3339 UTC with milliseconds
	Faces     int      `json:"faces"`
	Boxes     [][4]int `json:"boxes"` // [x1, y1, x2, y2] in detection order
	Snapshot  string   `json:"snapshot,omitempty"`
	Camera    string   `json:"camera"`
}

// NewDetectionEvent builds the payload for result.
func NewDetectionEvent(result *detection.Result, snapshot string) DetectionEventDTO {
	boxes := make([][4]int, 0, result.Count())
	for _, b := range result.Boxes() {
		boxes = append(boxes, [4]int{b.Min.X, b.Min.Y, b.Max.X, b.Max.Y})
	}
	return DetectionEventDTO{
		Timestamp: result.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Faces:     result.Count(),
		Boxes:     boxes,
		Snapshot:  snapshot,
		Camera:    result.Source,
	}
}

// Marshal encodes the event.
func (e DetectionEventDTO) Marshal() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseTimestamp returns the event time.
func (e DetectionEventDTO) ParseTimestamp() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, e.Timestamp)
}
