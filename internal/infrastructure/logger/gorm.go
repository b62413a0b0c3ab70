package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger routes GORM's log output through zap. Statement traces carry
// the correlation fields of the calling context so a slow or failing query
// can be tied to the invoice being posted.
type GormLogger struct {
	zl    *zap.Logger
	level gormlogger.LogLevel
	slow  time.Duration

	// quiet errors are logged at debug instead of error
	quietNotFound  bool
	quietDuplicate bool
}

type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a statement logs as slow; 0 disables it
func WithSlowThreshold(d time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slow = d }
}

func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) { l.quietNotFound = ignore }
}

// WithIgnoreDuplicatedKeyError controls whether unique violations are demoted.
// Losing an account creation race surfaces as one and is resolved by a re-read.
func WithIgnoreDuplicatedKeyError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) { l.quietDuplicate = ignore }
}

func NewGormLogger(zl *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	l := &GormLogger{
		zl:             zl.Named("gorm"),
		level:          level,
		slow:           200 * time.Millisecond,
		quietNotFound:  true,
		quietDuplicate: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		For(ctx, l.zl).Info(fmt.Sprintf(msg, args...))
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		For(ctx, l.zl).Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		For(ctx, l.zl).Error(fmt.Sprintf(msg, args...))
	}
}

// Trace logs one executed statement: failures at error, slow statements at
// warn and everything else at debug when the level is Info.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	slow := l.slow > 0 && elapsed > l.slow

	// Skip building the statement when nothing will be written
	if err == nil && !(slow && l.level >= gormlogger.Warn) && l.level < gormlogger.Info {
		return
	}

	sql, rows := fc()
	log := For(ctx, l.zl).With(
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	)

	switch {
	case err != nil:
		if l.level < gormlogger.Error {
			return
		}
		switch {
		case l.quietNotFound && errors.Is(err, gormlogger.ErrRecordNotFound):
		case l.quietDuplicate && isDuplicatedKey(err):
			log.Debug("SQL duplicate key", zap.Error(err))
		default:
			log.Error("SQL Error", zap.Error(err))
		}
	case slow && l.level >= gormlogger.Warn:
		log.Warn(fmt.Sprintf("SLOW SQL >= %v", l.slow))
	case l.level >= gormlogger.Info:
		log.Debug("SQL Query")
	}
}

// MapGormLogLevel maps the service log level onto GORM's; debug and info both
// trace every statement, unknown names fall back to warn.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	}
	return gormlogger.Warn
}

// isDuplicatedKey matches translated and raw unique violations from postgres and sqlite
func isDuplicatedKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}
