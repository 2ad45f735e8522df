package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormAdapter routes GORM's logging through a module Logger.
// Statements are logged at TRACE; slow statements and failures at WARN.
//
//	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
//	    Logger: logger.NewGormAdapter(log.Module("gorm"), 200*time.Millisecond),
//	})
type GormAdapter struct {
	log           Logger
	slowThreshold time.Duration
}

// NewGormAdapter creates the adapter. A zero slowThreshold disables slow query warnings.
func NewGormAdapter(log Logger, slowThreshold time.Duration) *GormAdapter {
	if log == nil {
		log = NewSlogLogger(nil, LogLevelInfo, nil)
	}
	return &GormAdapter{log: log, slowThreshold: slowThreshold}
}

// LogMode is ignored; levels come from the logging configuration.
func (a *GormAdapter) LogMode(gormlogger.LogLevel) gormlogger.Interface {
	return a
}

func (a *GormAdapter) Info(_ context.Context, msg string, data ...any) {
	a.log.Debug(fmt.Sprintf(msg, data...))
}

func (a *GormAdapter) Warn(_ context.Context, msg string, data ...any) {
	a.log.Warn(fmt.Sprintf(msg, data...))
}

func (a *GormAdapter) Error(_ context.Context, msg string, data ...any) {
	a.log.Error(fmt.Sprintf(msg, data...))
}

// Trace logs a finished statement.
func (a *GormAdapter) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		a.log.Warn("query failed",
			String("sql", sql),
			Int64("rows_affected", rows),
			Duration("elapsed", elapsed),
			Error(err))
	case a.slowThreshold > 0 && elapsed > a.slowThreshold:
		a.log.Warn("slow query",
			String("sql", sql),
			Int64("rows_affected", rows),
			Duration("elapsed", elapsed),
			Duration("threshold", a.slowThreshold))
	default:
		a.log.Trace("sql query",
			String("sql", sql),
			Int64("rows_affected", rows),
			Duration("elapsed", elapsed))
	}
}
