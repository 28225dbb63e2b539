package utils

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger adapts gorm's logger interface onto zerolog. Queries matching
// one of the ignored patterns are not logged at all; the periodic reminder
// poll would otherwise flood the log once a minute.
type GormLogger struct {
	log                  zerolog.Logger
	slowThreshold        time.Duration
	ignoredQueryPatterns []string
}

// NewGormLogger creates a gorm logger with the given ignored query patterns
func NewGormLogger(log zerolog.Logger, ignoredPatterns ...string) *GormLogger {
	return &GormLogger{
		log:                  log,
		slowThreshold:        time.Second,
		ignoredQueryPatterns: ignoredPatterns,
	}
}

// LogMode implements logger.Interface; the level is controlled by zerolog
func (l *GormLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface {
	return l
}

// Info implements logger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	l.log.Info().Msgf(msg, args...)
}

// Warn implements logger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	l.log.Warn().Msgf(msg, args...)
}

// Error implements logger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	l.log.Error().Msgf(msg, args...)
}

// Trace implements logger.Interface
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	sql, rows := fc()

	for _, pattern := range l.ignoredQueryPatterns {
		if strings.Contains(sql, pattern) {
			return
		}
	}

	elapsed := time.Since(begin)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		l.log.Error().Err(err).Str("sql", sql).Int64("rows", rows).Dur("elapsed", elapsed).Msg("query failed")
	case elapsed > l.slowThreshold:
		l.log.Warn().Str("sql", sql).Int64("rows", rows).Dur("elapsed", elapsed).Msg("slow query")
	default:
		l.log.Debug().Str("sql", sql).Int64("rows", rows).Dur("elapsed", elapsed).Msg("query")
	}
}
