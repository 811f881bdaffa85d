package datastore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// slowQueryThreshold is when gorm queries get logged at warn level.
const slowQueryThreshold = 500 * time.Millisecond

// gormSlogAdapter routes gorm's logging through the datastore slog logger.
type gormSlogAdapter struct {
	logger *slog.Logger
	level  gormlogger.LogLevel
}

// createGormLogger returns a gorm logger writing through slog. Debug mode
// lowers the threshold so all statements are visible.
func createGormLogger(debug bool) gormlogger.Interface {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	return &gormSlogAdapter{logger: logger, level: level}
}

func (g *gormSlogAdapter) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

func (g *gormSlogAdapter) Info(ctx context.Context, msg string, data ...any) {
	if g.level >= gormlogger.Info {
		g.logger.InfoContext(ctx, "gorm: "+msg, "data", data)
	}
}

func (g *gormSlogAdapter) Warn(ctx context.Context, msg string, data ...any) {
	if g.level >= gormlogger.Warn {
		g.logger.WarnContext(ctx, "gorm: "+msg, "data", data)
	}
}

func (g *gormSlogAdapter) Error(ctx context.Context, msg string, data ...any) {
	if g.level >= gormlogger.Error {
		g.logger.ErrorContext(ctx, "gorm: "+msg, "data", data)
	}
}

func (g *gormSlogAdapter) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && g.level >= gormlogger.Error:
		g.logger.ErrorContext(ctx, "gorm query failed", "sql", sql, "rows", rows, "elapsed", elapsed, "error", err)
	case elapsed > slowQueryThreshold && g.level >= gormlogger.Warn:
		g.logger.WarnContext(ctx, "gorm slow query", "sql", sql, "rows", rows, "elapsed", elapsed)
	case g.level >= gormlogger.Info:
		g.logger.DebugContext(ctx, "gorm query", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}
