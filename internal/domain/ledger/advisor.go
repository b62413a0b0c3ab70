package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// InvoiceAssessment is what the anomaly advisor is asked about a posted invoice
type InvoiceAssessment struct {
	InvoiceID string
	Amount    decimal.Decimal
	Currency  string
}

// AnomalyAdvisor flags unusual postings. It is advisory only: a posting is
// never held back or reversed because of its answer.
type AnomalyAdvisor interface {
	Assess(ctx context.Context, assessment InvoiceAssessment) (bool, error)
}
