package posting

import (
	"context"
	"time"

	"github.com/astracore/gl-service/internal/domain/ledger"
	"github.com/astracore/gl-service/internal/domain/shared"
	"github.com/astracore/gl-service/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// AnomalyAdvisorHandler asks the anomaly advisor about every posted sales
// invoice. It runs after commit, so its answer and its failures only show up
// in logs and metrics.
type AnomalyAdvisorHandler struct {
	advisor ledger.AnomalyAdvisor
	timeout time.Duration
	logger  *zap.Logger
	metrics *telemetry.PostingMetrics
}

// NewAnomalyAdvisorHandler creates a new handler. A zero timeout leaves the
// deadline to the advisor.
func NewAnomalyAdvisorHandler(advisor ledger.AnomalyAdvisor, timeout time.Duration, logger *zap.Logger) *AnomalyAdvisorHandler {
	return &AnomalyAdvisorHandler{
		advisor: advisor,
		timeout: timeout,
		logger:  logger,
	}
}

// SetMetrics sets the posting metrics collector
func (h *AnomalyAdvisorHandler) SetMetrics(m *telemetry.PostingMetrics) {
	h.metrics = m
}

// EventTypes returns the event types this handler is interested in
func (h *AnomalyAdvisorHandler) EventTypes() []string {
	return []string{ledger.EventTypeLedgerTransactionPosted}
}

// Handle never returns an error for advisor failures
func (h *AnomalyAdvisorHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	posted, ok := event.(*ledger.LedgerTransactionPostedEvent)
	if !ok {
		h.logger.Warn("unexpected event type",
			zap.String("expected", ledger.EventTypeLedgerTransactionPosted),
			zap.String("actual", event.EventType()),
		)
		return nil
	}
	if posted.TransactionType != ledger.TransactionTypeSalesInvoice {
		return nil
	}

	for _, total := range posted.Totals {
		h.assess(ctx, posted, ledger.InvoiceAssessment{
			InvoiceID: posted.SourceID,
			Amount:    total.Debit,
			Currency:  total.Currency.String(),
		})
	}
	return nil
}

func (h *AnomalyAdvisorHandler) assess(ctx context.Context, posted *ledger.LedgerTransactionPostedEvent, a ledger.InvoiceAssessment) {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	anomalous, err := h.advisor.Assess(ctx, a)
	if err != nil {
		h.logger.Warn("anomaly check failed, ignoring",
			zap.String("invoice_id", a.InvoiceID),
			zap.String("transaction_id", posted.TransactionID.String()),
			zap.Error(err),
		)
		return
	}
	if !anomalous {
		return
	}

	h.logger.Warn("posted invoice flagged as anomalous",
		zap.String("invoice_id", a.InvoiceID),
		zap.String("transaction_id", posted.TransactionID.String()),
		zap.String("amount", a.Amount.String()),
		zap.String("currency", a.Currency),
	)
	if h.metrics != nil {
		h.metrics.RecordAnomaly(ctx, a.Currency)
	}
}

var _ shared.EventHandler = (*AnomalyAdvisorHandler)(nil)
