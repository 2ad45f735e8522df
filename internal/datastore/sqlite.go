package datastore

import (
	"fmt"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/facewatch/internal/conf"
	"github.com/tphakala/facewatch/internal/errors"
)

// SQLiteStore implements Interface for SQLite
type SQLiteStore struct {
	DataStore
}

// Open opens the SQLite database file and migrates the schema.
func (store *SQLiteStore) Open() error {
	dir, fileName := filepath.Split(store.Settings.Output.SQLitePath)
	if dir != "" {
		dir = conf.GetBasePath(dir)
	}
	absoluteFilePath := filepath.Join(dir, fileName)

	db, err := gorm.Open(sqlite.Open(absoluteFilePath+"?_journal_mode=WAL&_busy_timeout=5000"), gormConfig())
	if err != nil {
		return errors.New(fmt.Errorf("failed to open SQLite database: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("path", absoluteFilePath).
			Build()
	}

	store.DB = db
	return performAutoMigration(db, "SQLite", absoluteFilePath)
}
