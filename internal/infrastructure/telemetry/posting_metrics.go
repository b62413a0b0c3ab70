// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/astracore/gl-service/internal/domain/shared"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// PostingMetrics tracks the posting pipeline: facts received, posting
// outcomes and latency, accounts created on first use and the outbox backlog.
type PostingMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	factsReceivedTotal   *Counter
	postingsTotal        *Counter
	postingFailuresTotal *Counter
	accountsCreatedTotal *Counter
	anomaliesTotal       *Counter
	dedupLookupsTotal    *Counter

	postingDuration *Histogram

	// Gauge metrics (point-in-time values)
	outboxEntries *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	outboxProvider OutboxStatsProvider
}

// OutboxStatsProvider reports outbox row counts for periodic collection.
// shared.OutboxRepository satisfies it.
type OutboxStatsProvider interface {
	CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error)
}

// PostingMetricsConfig holds configuration for posting metrics.
type PostingMetricsConfig struct {
	Meter          metric.Meter
	Logger         *zap.Logger
	OutboxProvider OutboxStatsProvider
}

// NewPostingMetrics creates a new PostingMetrics instance.
func NewPostingMetrics(cfg PostingMetricsConfig) (*PostingMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	pm := &PostingMetrics{
		meter:          cfg.Meter,
		logger:         logger,
		stopChan:       make(chan struct{}),
		outboxProvider: cfg.OutboxProvider,
	}

	var err error

	pm.factsReceivedTotal, err = NewCounter(
		cfg.Meter,
		"gl_facts_received_total",
		"Total number of inbound facts handed to the posting service",
		"{facts}",
	)
	if err != nil {
		return nil, err
	}

	pm.postingsTotal, err = NewCounter(
		cfg.Meter,
		"gl_postings_total",
		"Total number of completed postings by outcome",
		"{postings}",
	)
	if err != nil {
		return nil, err
	}

	pm.postingFailuresTotal, err = NewCounter(
		cfg.Meter,
		"gl_posting_failures_total",
		"Total number of postings that failed and were rolled back",
		"{postings}",
	)
	if err != nil {
		return nil, err
	}

	pm.accountsCreatedTotal, err = NewCounter(
		cfg.Meter,
		"gl_accounts_created_total",
		"Total number of ledger accounts created on first use",
		"{accounts}",
	)
	if err != nil {
		return nil, err
	}

	pm.anomaliesTotal, err = NewCounter(
		cfg.Meter,
		"gl_anomalies_flagged_total",
		"Total number of posted invoices the advisor flagged",
		"{postings}",
	)
	if err != nil {
		return nil, err
	}

	pm.dedupLookupsTotal, err = NewCounter(
		cfg.Meter,
		"gl_dedup_lookups_total",
		"Total number of idempotency pre-filter lookups by result",
		"{lookups}",
	)
	if err != nil {
		return nil, err
	}

	pm.postingDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "gl_posting_duration_seconds",
		Description: "Duration of one posting unit of work",
		Unit:        "s",
		Boundaries:  PostingDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	pm.outboxEntries, err = NewGauge(
		cfg.Meter,
		"gl_outbox_entries",
		"Current number of outbox rows by status",
		"{entries}",
	)
	if err != nil {
		return nil, err
	}

	return pm, nil
}

// =============================================================================
// Posting Metrics
// =============================================================================

// RecordFactReceived counts an inbound fact before it is posted.
func (pm *PostingMetrics) RecordFactReceived(ctx context.Context, factKind string) {
	pm.factsReceivedTotal.Inc(ctx, AttrFactKind.String(factKind))
}

// RecordPosting records a completed posting and how long it took.
// outcome is one of posted, duplicate or not_postable.
func (pm *PostingMetrics) RecordPosting(ctx context.Context, outcome string, d time.Duration) {
	pm.postingsTotal.Inc(ctx, AttrOutcome.String(outcome))
	pm.postingDuration.RecordDuration(ctx, d, AttrOutcome.String(outcome))
}

// RecordFailure records a posting that was rolled back.
func (pm *PostingMetrics) RecordFailure(ctx context.Context, reason string, d time.Duration) {
	pm.postingFailuresTotal.Inc(ctx, AttrReason.String(reason))
	pm.postingDuration.RecordDuration(ctx, d, AttrOutcome.String("failed"))
}

// RecordAccountCreated records a chart of accounts entry created on first use.
func (pm *PostingMetrics) RecordAccountCreated(ctx context.Context, accountCode string) {
	pm.accountsCreatedTotal.Inc(ctx, AttrAccountCode.String(accountCode))
}

// RecordAnomaly records an invoice the anomaly advisor flagged.
func (pm *PostingMetrics) RecordAnomaly(ctx context.Context, currency string) {
	pm.anomaliesTotal.Inc(ctx, AttrCurrency.String(currency))
}

// RecordDedup records a pre-filter lookup: hit, miss or store_error.
func (pm *PostingMetrics) RecordDedup(ctx context.Context, result string) {
	pm.dedupLookupsTotal.Inc(ctx, AttrOutcome.String(result))
}

// RecordOutboxEntries records the current outbox row count for a status.
func (pm *PostingMetrics) RecordOutboxEntries(ctx context.Context, status shared.OutboxStatus, count int64) {
	pm.outboxEntries.Record(ctx, count, AttrOutboxStatus.String(string(status)))
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of the outbox gauge.
// It is non-blocking; use Stop() to stop collection.
func (pm *PostingMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	pm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = time.Minute
		}

		go pm.runPeriodicCollection(ctx, interval)
	})
}

func (pm *PostingMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pm.collectOutboxMetrics(ctx)

	for {
		select {
		case <-pm.stopChan:
			pm.logger.Info("Stopping periodic posting metrics collection")
			return
		case <-ctx.Done():
			pm.logger.Info("Context cancelled, stopping periodic posting metrics collection")
			return
		case <-ticker.C:
			pm.collectOutboxMetrics(ctx)
		}
	}
}

func (pm *PostingMetrics) collectOutboxMetrics(ctx context.Context) {
	if pm.outboxProvider == nil {
		pm.logger.Debug("No outbox provider configured, skipping outbox metrics collection")
		return
	}

	counts, err := pm.outboxProvider.CountByStatus(ctx)
	if err != nil {
		pm.logger.Warn("Failed to count outbox entries", zap.Error(err))
		return
	}

	for _, status := range []shared.OutboxStatus{
		shared.OutboxStatusPending,
		shared.OutboxStatusProcessing,
		shared.OutboxStatusFailed,
		shared.OutboxStatusDead,
	} {
		pm.RecordOutboxEntries(ctx, status, counts[status])
	}
}

// Stop stops the periodic collection.
func (pm *PostingMetrics) Stop() {
	pm.stopOnce.Do(func() {
		close(pm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewPostingMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
