package datastore

import "time"

// KVEntry stores one named, fully serialized collection.
type KVEntry struct {
	Key       string    `gorm:"column:kv_key;primaryKey;size:64"`
	Value     []byte    `gorm:"column:kv_value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName overrides the default pluralized name.
func (KVEntry) TableName() string { return "kv_entries" }

// DetectionRecord is one dispatched non-empty detection.
type DetectionRecord struct {
	ID           uint      `gorm:"primaryKey"`
	Timestamp    time.Time `gorm:"index"`
	Camera       string    `gorm:"size:512;index"`
	Faces        int
	Boxes        string `gorm:"type:text"` // JSON array of [x1,y1,x2,y2]
	SnapshotPath string `gorm:"size:1024"`
	ProcessingMs int64
}

// DetectionSummary aggregates detection history.
type DetectionSummary struct {
	Detections int64
	Faces      int64
}
