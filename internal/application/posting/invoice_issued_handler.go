package posting

import (
	"context"
	"fmt"

	"github.com/astracore/gl-service/internal/domain/ledger"
	"github.com/astracore/gl-service/internal/domain/shared"
	"go.uber.org/zap"
)

// InvoicePoster posts issued invoices. PostingService implements it.
type InvoicePoster interface {
	PostInvoice(ctx context.Context, fact ledger.InvoiceIssued) (*PostingResult, error)
}

// InvoiceIssuedHandler handles InvoiceIssuedEvent
// and posts the receivable and revenue entries for the invoice
type InvoiceIssuedHandler struct {
	poster InvoicePoster
	logger *zap.Logger
}

// NewInvoiceIssuedHandler creates a new handler for invoice issued events
func NewInvoiceIssuedHandler(poster InvoicePoster, logger *zap.Logger) *InvoiceIssuedHandler {
	return &InvoiceIssuedHandler{
		poster: poster,
		logger: logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *InvoiceIssuedHandler) EventTypes() []string {
	return []string{ledger.EventTypeInvoiceIssued}
}

// Handle posts the invoice carried by an InvoiceIssuedEvent.
// Duplicate and not postable facts are acknowledged; any error means the
// fact was not posted and must not be acknowledged.
func (h *InvoiceIssuedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	issued, ok := event.(*ledger.InvoiceIssuedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", ledger.EventTypeInvoiceIssued),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			ledger.EventTypeInvoiceIssued, event.EventType())
	}

	h.logger.Debug("processing invoice issued event",
		zap.String("event_id", issued.EventID().String()),
		zap.String("invoice_id", issued.Fact.InvoiceID),
		zap.String("tenant_id", issued.Fact.TenantID),
		zap.String("customer_id", issued.Fact.CustomerID),
	)

	result, err := h.poster.PostInvoice(ctx, issued.Fact)
	if err != nil {
		return err
	}

	h.logger.Debug("invoice issued event handled",
		zap.String("invoice_id", issued.Fact.InvoiceID),
		zap.String("outcome", string(result.Outcome)),
	)
	return nil
}

var _ shared.EventHandler = (*InvoiceIssuedHandler)(nil)
