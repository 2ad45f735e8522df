// Package datastore persists the key-value collections and the detection history.
package datastore

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/facewatch/internal/conf"
	"github.com/tphakala/facewatch/internal/errors"
	"github.com/tphakala/facewatch/internal/logger"
)

// Interface defines the storage operations used by the application.
type Interface interface {
	Open() error
	Close() error

	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error

	SaveDetection(rec *DetectionRecord) error
	RecentDetections(limit int) ([]DetectionRecord, error)
	SummarizeDetections(since time.Time) (DetectionSummary, error)
}

// DataStore implements Interface on top of a gorm connection.
// Driver specific stores embed it and only implement Open.
type DataStore struct {
	DB       *gorm.DB
	Settings *conf.Settings
}

// New returns the store selected by settings: MySQL when enabled, otherwise SQLite.
func New(settings *conf.Settings) Interface {
	if settings.Output.MySQL.Enabled {
		return &MySQLStore{DataStore: DataStore{Settings: settings}}
	}
	return &SQLiteStore{DataStore: DataStore{Settings: settings}}
}

// OpenStore creates the configured store and opens it.
func OpenStore(settings *conf.Settings) (Interface, error) {
	store := New(settings)
	if err := store.Open(); err != nil {
		return nil, err
	}
	return store, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.NewGormAdapter(GetLogger().Module("gorm"), 200*time.Millisecond),
	}
}

func performAutoMigration(db *gorm.DB, dbType, connectionInfo string) error {
	start := time.Now()
	if err := db.AutoMigrate(&KVEntry{}, &DetectionRecord{}); err != nil {
		return errors.New(fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("db_type", dbType).
			Build()
	}

	GetLogger().Debug("database ready",
		logger.String("db_type", dbType),
		logger.String("connection", connectionInfo),
		logger.Duration("migration", time.Since(start)))
	return nil
}

func (ds *DataStore) ensureOpen() error {
	if ds.DB == nil {
		return errors.Newf("database connection is not initialized").
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return nil
}

// Get returns the value stored under key. ok is false when the key has never been written.
func (ds *DataStore) Get(key string) (value []byte, ok bool, err error) {
	if err := ds.ensureOpen(); err != nil {
		return nil, false, err
	}

	var entry KVEntry
	err = ds.DB.Where("kv_key = ?", key).Limit(1).Find(&entry).Error
	if err != nil {
		return nil, false, dbError(err, "get", key)
	}
	if entry.Key == "" {
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// Put replaces the value stored under key.
func (ds *DataStore) Put(key string, value []byte) error {
	if err := ds.ensureOpen(); err != nil {
		return err
	}

	entry := KVEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	err := ds.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kv_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"kv_value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return dbError(err, "put", key)
	}
	return nil
}

// SaveDetection inserts a detection record.
func (ds *DataStore) SaveDetection(rec *DetectionRecord) error {
	if err := ds.ensureOpen(); err != nil {
		return err
	}
	// stored in UTC so SQLite text comparisons order correctly
	rec.Timestamp = rec.Timestamp.UTC()
	if err := ds.DB.Create(rec).Error; err != nil {
		return dbError(err, "save-detection", "")
	}
	return nil
}

// RecentDetections returns up to limit records, newest first.
func (ds *DataStore) RecentDetections(limit int) ([]DetectionRecord, error) {
	if err := ds.ensureOpen(); err != nil {
		return nil, err
	}

	var records []DetectionRecord
	if err := ds.DB.Order("timestamp DESC, id DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, dbError(err, "recent-detections", "")
	}
	return records, nil
}

// SummarizeDetections counts detections and faces recorded at or after since.
func (ds *DataStore) SummarizeDetections(since time.Time) (DetectionSummary, error) {
	var summary DetectionSummary
	if err := ds.ensureOpen(); err != nil {
		return summary, err
	}

	err := ds.DB.Model(&DetectionRecord{}).
		Select("COUNT(*) AS detections, COALESCE(SUM(faces), 0) AS faces").
		Where("timestamp >= ?", since.UTC()).
		Scan(&summary).Error
	if err != nil {
		return summary, dbError(err, "summarize-detections", "")
	}
	return summary, nil
}

// Close closes the underlying connection pool.
func (ds *DataStore) Close() error {
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "close", "")
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close", "")
	}
	ds.DB = nil
	return nil
}

func dbError(err error, operation, key string) error {
	b := errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)
	if key != "" {
		b = b.Context("key", key)
	}
	return b.Build()
}
