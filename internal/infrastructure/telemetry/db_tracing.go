package telemetry

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type contextKey string

// queryStartTimeKey carries the query start time through the statement
// context between the before and after callbacks.
const queryStartTimeKey contextKey = "bridge_query_start_time"

// WithQueryStartTime returns a context with the query start time set.
// Useful when invoking the annotation callback outside the registered
// GORM callback chain.
func WithQueryStartTime(ctx context.Context) context.Context {
	return context.WithValue(ctx, queryStartTimeKey, time.Now())
}

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled          bool          // Enable database tracing
	LogFullSQL       bool          // Include full SQL statements in spans (dev only, security risk in prod)
	SlowQueryThresh  time.Duration // Threshold for marking queries as slow (default: 200ms)
	DBSystem         string        // Database system name (default: "postgresql")
	WithoutVariables bool          // Exclude query variables from SQL statement (for security)
}

// DefaultDBTracingConfig returns default configuration for database tracing.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		Enabled:          false,
		LogFullSQL:       false,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "postgresql",
		WithoutVariables: true, // Default to secure mode
	}
}

// DBTracingPlugin layers slow-query detection and result annotations on top
// of the otelgorm plugin. The bridge leans on these span attributes when
// comparing modern-path query latency against the legacy system it fronts.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a new database tracing plugin with the given configuration.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// RegisterOtelGorm installs the otelgorm plugin plus the bridge's own timing
// callbacks on the given GORM DB instance. Registering twice on the same
// instance returns an error.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		// Keep query parameters out of spans
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}

	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := p.registerTimingCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)
	return nil
}

// registerTimingCallbacks hooks every GORM operation: the before callback
// stamps the start time into the statement context, the after callback
// annotates the active span (runs after otelgorm's own callbacks).
func (p *DBTracingPlugin) registerTimingCallbacks(db *gorm.DB) error {
	var err error
	install := func(e error) {
		if err == nil {
			err = e
		}
	}

	cb := db.Callback()
	install(cb.Create().Before("gorm:create").Register("bridge_tracing:before_create", p.markStart))
	install(cb.Create().After("gorm:create").Register("bridge_tracing:after_create", p.annotateSpan))
	install(cb.Query().Before("gorm:query").Register("bridge_tracing:before_query", p.markStart))
	install(cb.Query().After("gorm:query").Register("bridge_tracing:after_query", p.annotateSpan))
	install(cb.Update().Before("gorm:update").Register("bridge_tracing:before_update", p.markStart))
	install(cb.Update().After("gorm:update").Register("bridge_tracing:after_update", p.annotateSpan))
	install(cb.Delete().Before("gorm:delete").Register("bridge_tracing:before_delete", p.markStart))
	install(cb.Delete().After("gorm:delete").Register("bridge_tracing:after_delete", p.annotateSpan))
	install(cb.Row().Before("gorm:row").Register("bridge_tracing:before_row", p.markStart))
	install(cb.Row().After("gorm:row").Register("bridge_tracing:after_row", p.annotateSpan))
	install(cb.Raw().Before("gorm:raw").Register("bridge_tracing:before_raw", p.markStart))
	install(cb.Raw().After("gorm:raw").Register("bridge_tracing:after_raw", p.annotateSpan))
	return err
}

// markStart records the query start time in the statement context.
func (p *DBTracingPlugin) markStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
	}
}

// annotateSpan runs after each database operation. It attaches rows-affected
// and table attributes to the active span, marks genuine errors, and flags
// queries that exceed the slow-query threshold.
func (p *DBTracingPlugin) annotateSpan(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}

	// ErrRecordNotFound is an expected outcome, not a failure
	if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	p.flagSlowQuery(ctx, span)
}

func (p *DBTracingPlugin) flagSlowQuery(ctx context.Context, span trace.Span) {
	startTime, ok := ctx.Value(queryStartTimeKey).(time.Time)
	if !ok {
		return
	}

	elapsed := time.Since(startTime)
	if elapsed <= p.config.SlowQueryThresh {
		return
	}

	span.SetAttributes(
		attribute.Bool("db.slow_query", true),
		attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
	)
	span.AddEvent("slow_query_warning", trace.WithAttributes(
		attribute.Int64("duration_ms", elapsed.Milliseconds()),
		attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
	))
}
