package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBObserverConfig holds database tracing and metrics settings
type DBObserverConfig struct {
	TraceEnabled       bool          // register otelgorm spans
	LogFullSQL         bool          // keep query variables in spans (dev only)
	DBSystem           string        // default: postgresql
	SlowQueryThreshold time.Duration // default: 200ms
	PoolStatsInterval  time.Duration // default: 15s
}

// DBObserver is a gorm plugin recording query metrics, flagging slow
// queries on the active span and sampling connection pool stats
type DBObserver struct {
	cfg    DBObserverConfig
	logger *zap.Logger

	queryTotal     *Counter
	queryDuration  *Histogram
	slowQueryTotal *Counter
	poolConns      *Gauge
	poolConnsMax   *Gauge

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type dbObserverKey struct{}

// NewDBObserver creates the observer's instruments on meter
func NewDBObserver(meter metric.Meter, cfg DBObserverConfig, logger *zap.Logger) (*DBObserver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}
	if cfg.PoolStatsInterval <= 0 {
		cfg.PoolStatsInterval = 15 * time.Second
	}

	o := &DBObserver{cfg: cfg, logger: logger, stopCh: make(chan struct{})}

	var err error
	if o.queryTotal, err = NewCounter(meter, "db_query_total", "Database queries by operation and table", "{query}"); err != nil {
		return nil, err
	}
	if o.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency in seconds",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if o.slowQueryTotal, err = NewCounter(meter, "db_slow_query_total", "Queries slower than the slow query threshold", "{query}"); err != nil {
		return nil, err
	}
	if o.poolConns, err = NewGauge(meter, "db_pool_connections", "Connections in the pool by state", "{connection}"); err != nil {
		return nil, err
	}
	if o.poolConnsMax, err = NewGauge(meter, "db_pool_connections_max", "Maximum open connections", "{connection}"); err != nil {
		return nil, err
	}
	return o, nil
}

// Name implements gorm.Plugin
func (o *DBObserver) Name() string {
	return "gl:db_observer"
}

// Initialize implements gorm.Plugin
func (o *DBObserver) Initialize(db *gorm.DB) error {
	if o.cfg.TraceEnabled {
		opts := []otelgorm.Option{otelgorm.WithDBName(o.cfg.DBSystem)}
		if !o.cfg.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return err
		}
	}

	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("gl:before_create", o.before),
		cb.Query().Before("gorm:query").Register("gl:before_query", o.before),
		cb.Update().Before("gorm:update").Register("gl:before_update", o.before),
		cb.Delete().Before("gorm:delete").Register("gl:before_delete", o.before),
		cb.Row().Before("gorm:row").Register("gl:before_row", o.before),
		cb.Raw().Before("gorm:raw").Register("gl:before_raw", o.before),

		cb.Create().After("gorm:create").Register("gl:after_create", o.after("INSERT")),
		cb.Query().After("gorm:query").Register("gl:after_query", o.after("SELECT")),
		cb.Update().After("gorm:update").Register("gl:after_update", o.after("UPDATE")),
		cb.Delete().After("gorm:delete").Register("gl:after_delete", o.after("DELETE")),
		cb.Row().After("gorm:row").Register("gl:after_row", o.after("")),
		cb.Raw().After("gorm:raw").Register("gl:after_raw", o.after("")),
	)
}

func (o *DBObserver) before(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	db.Statement.Context = context.WithValue(ctx, dbObserverKey{}, time.Now())
}

func (o *DBObserver) after(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}
		started, ok := ctx.Value(dbObserverKey{}).(time.Time)
		if !ok {
			return
		}

		op := operation
		if op == "" {
			op = sqlOperation(db.Statement.SQL.String())
		}
		o.RecordQuery(ctx, op, db.Statement.Table, time.Since(started), db.Error)
	}
}

// RecordQuery records one query. Record-not-found is not counted as an error.
func (o *DBObserver) RecordQuery(ctx context.Context, operation, table string, d time.Duration, err error) {
	status := "ok"
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		status = "error"
	}
	attrs := []attribute.KeyValue{
		AttrDBOperation.String(operation),
		AttrDBTable.String(table),
		attribute.String("status", status),
	}
	o.queryTotal.Inc(ctx, attrs...)
	o.queryDuration.RecordDuration(ctx, d, attrs[:2]...)

	if d < o.cfg.SlowQueryThreshold {
		return
	}
	o.slowQueryTotal.Inc(ctx, attrs[:2]...)
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", d.Milliseconds()),
		)
	}
	o.logger.Warn("slow query",
		zap.String("operation", operation),
		zap.String("table", table),
		zap.Duration("duration", d),
	)
}

// StartPoolStats samples sqlDB.Stats until Stop or ctx is done
func (o *DBObserver) StartPoolStats(ctx context.Context, sqlDB *sql.DB) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()

		ticker := time.NewTicker(o.cfg.PoolStatsInterval)
		defer ticker.Stop()

		for {
			o.RecordPoolStats(ctx, sqlDB.Stats())
			select {
			case <-ticker.C:
			case <-o.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// RecordPoolStats records one pool stats sample
func (o *DBObserver) RecordPoolStats(ctx context.Context, stats sql.DBStats) {
	o.poolConnsMax.Record(ctx, int64(stats.MaxOpenConnections))
	o.poolConns.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
	o.poolConns.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
	o.poolConns.Record(ctx, int64(stats.OpenConnections), AttrDBState.String("open"))
}

// Stop ends pool stats sampling. Safe to call multiple times.
func (o *DBObserver) Stop() {
	o.stopOnce.Do(func() {
		close(o.stopCh)
		o.wg.Wait()
	})
}

func sqlOperation(query string) string {
	query = strings.ToUpper(strings.TrimSpace(query))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(query, op) {
			return op
		}
	}
	return "OTHER"
}

var _ gorm.Plugin = (*DBObserver)(nil)
