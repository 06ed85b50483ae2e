package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // include bound variables; never in production
	SlowQueryThresh time.Duration
	DBName          string
}

// DBTracingPlugin wraps the otelgorm plugin with slow query detection.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a new database tracing plugin.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBName == "" {
		cfg.DBName = "postgresql"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

type queryStartKey struct{}

// callbackPoint registers a hook around one gorm processor's default callback
type callbackPoint struct {
	op       string
	register func(db *gorm.DB, before bool, name string, fn func(*gorm.DB)) error
}

var callbackPoints = []callbackPoint{
	{"create", func(db *gorm.DB, before bool, name string, fn func(*gorm.DB)) error {
		if before {
			return db.Callback().Create().Before("gorm:create").Register(name, fn)
		}
		return db.Callback().Create().After("gorm:create").Register(name, fn)
	}},
	{"query", func(db *gorm.DB, before bool, name string, fn func(*gorm.DB)) error {
		if before {
			return db.Callback().Query().Before("gorm:query").Register(name, fn)
		}
		return db.Callback().Query().After("gorm:query").Register(name, fn)
	}},
	{"update", func(db *gorm.DB, before bool, name string, fn func(*gorm.DB)) error {
		if before {
			return db.Callback().Update().Before("gorm:update").Register(name, fn)
		}
		return db.Callback().Update().After("gorm:update").Register(name, fn)
	}},
	{"delete", func(db *gorm.DB, before bool, name string, fn func(*gorm.DB)) error {
		if before {
			return db.Callback().Delete().Before("gorm:delete").Register(name, fn)
		}
		return db.Callback().Delete().After("gorm:delete").Register(name, fn)
	}},
	{"row", func(db *gorm.DB, before bool, name string, fn func(*gorm.DB)) error {
		if before {
			return db.Callback().Row().Before("gorm:row").Register(name, fn)
		}
		return db.Callback().Row().After("gorm:row").Register(name, fn)
	}},
	{"raw", func(db *gorm.DB, before bool, name string, fn func(*gorm.DB)) error {
		if before {
			return db.Callback().Raw().Before("gorm:raw").Register(name, fn)
		}
		return db.Callback().Raw().After("gorm:raw").Register(name, fn)
	}},
}

// Register installs otelgorm and the slow query callbacks on db.
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBName)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	for _, cp := range callbackPoints {
		if err := cp.register(db, true, "otel_timing:before_"+cp.op, markQueryStart); err != nil {
			return err
		}
		if err := cp.register(db, false, "otel_timing:after_"+cp.op, p.afterQuery); err != nil {
			return err
		}
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh))
	return nil
}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (p *DBTracingPlugin) afterQuery(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}
