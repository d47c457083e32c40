package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/lousydropout/invoice-me-sub000/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type contextKey string

const queryStartTimeKey contextKey = "db_query_start_time"

// DBTracing instruments a gorm.DB with otelgorm spans and flags queries
// slower than the configured threshold
type DBTracing struct {
	slowQueryThresh time.Duration
	logger          *zap.Logger
}

// RegisterDBTracing installs the otelgorm plugin and slow query callbacks
// on db. Query variables are never recorded since they carry customer data.
// It is a no-op unless cfg.DBTraceEnabled is set.
func RegisterDBTracing(db *gorm.DB, cfg config.TelemetryConfig, logger *zap.Logger) error {
	if !cfg.DBTraceEnabled {
		logger.Debug("database tracing disabled")
		return nil
	}

	plugin := otelgorm.NewPlugin(
		otelgorm.WithDBName(db.Dialector.Name()),
		otelgorm.WithoutQueryVariables(),
	)
	if err := db.Use(plugin); err != nil {
		return err
	}

	t := &DBTracing{slowQueryThresh: cfg.SlowQueryThresh, logger: logger}
	if err := t.registerCallbacks(db); err != nil {
		return err
	}

	logger.Info("database tracing enabled", zap.Duration("slow_query_threshold", cfg.SlowQueryThresh))
	return nil
}

func (t *DBTracing) registerCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("slow_query:before_create", t.before),
		cb.Query().Before("gorm:query").Register("slow_query:before_query", t.before),
		cb.Update().Before("gorm:update").Register("slow_query:before_update", t.before),
		cb.Delete().Before("gorm:delete").Register("slow_query:before_delete", t.before),
		cb.Row().Before("gorm:row").Register("slow_query:before_row", t.before),
		cb.Raw().Before("gorm:raw").Register("slow_query:before_raw", t.before),

		cb.Create().After("gorm:create").Register("slow_query:after_create", t.after),
		cb.Query().After("gorm:query").Register("slow_query:after_query", t.after),
		cb.Update().After("gorm:update").Register("slow_query:after_update", t.after),
		cb.Delete().After("gorm:delete").Register("slow_query:after_delete", t.after),
		cb.Row().After("gorm:row").Register("slow_query:after_row", t.after),
		cb.Raw().After("gorm:raw").Register("slow_query:after_raw", t.after),
	)
}

func (t *DBTracing) before(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
	}
}

func (t *DBTracing) after(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		if db.Statement.Table != "" {
			span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
		}
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, db.Error.Error())
		}
	}

	start, ok := ctx.Value(queryStartTimeKey).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > t.slowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		t.logger.Warn("slow query",
			zap.String("table", db.Statement.Table),
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", t.slowQueryThresh),
		)
	}
}
