package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/astracore/gl-service/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType tags what produced a ledger transaction
type TransactionType string

const (
	TransactionTypeSalesInvoice TransactionType = "SALES_INVOICE"
)

func (t TransactionType) String() string {
	return string(t)
}

// LedgerTransaction is an append-only, already posted accounting transaction.
// It owns its entries; corrections are new transactions, never edits.
type LedgerTransaction struct {
	ID              uuid.UUID
	TenantID        string
	TransactionType TransactionType
	Description     string
	TransactionDate time.Time
	EntryDate       time.Time
	Posted          bool
	Entries         []TransactionEntry
	CreatedAt       time.Time
}

// CurrencyTotal sums both sides of a transaction for one currency
type CurrencyTotal struct {
	Currency valueobject.Currency `json:"currency"`
	Debit    decimal.Decimal      `json:"debit"`
	Credit   decimal.Decimal      `json:"credit"`
}

// IsBalanced reports whether debits equal credits
func (c CurrencyTotal) IsBalanced() bool {
	return c.Debit.Equal(c.Credit)
}

// Totals returns per-currency sums ordered by currency code
func (t *LedgerTransaction) Totals() []CurrencyTotal {
	byCurrency := make(map[valueobject.Currency]*CurrencyTotal)
	for _, e := range t.Entries {
		cur := e.Amount.Currency()
		total, ok := byCurrency[cur]
		if !ok {
			total = &CurrencyTotal{Currency: cur, Debit: decimal.Zero, Credit: decimal.Zero}
			byCurrency[cur] = total
		}
		if e.IsDebit() {
			total.Debit = total.Debit.Add(e.Amount.Amount())
		} else {
			total.Credit = total.Credit.Add(e.Amount.Amount())
		}
	}

	totals := make([]CurrencyTotal, 0, len(byCurrency))
	for _, total := range byCurrency {
		totals = append(totals, *total)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Currency < totals[j].Currency })
	return totals
}

// Validate enforces the double-entry invariant: at least one entry and,
// for every currency present, the sum of debits equals the sum of credits.
func (t *LedgerTransaction) Validate() error {
	if len(t.Entries) == 0 {
		return ErrUnbalancedTransaction.WithMessage("transaction has no entries")
	}
	for _, total := range t.Totals() {
		if !total.IsBalanced() {
			return ErrUnbalancedTransaction.WithMessage(fmt.Sprintf(
				"transaction does not balance in %s: debit %s, credit %s",
				total.Currency, total.Debit.String(), total.Credit.String(),
			))
		}
	}
	return nil
}

// EntriesFor returns the entries posted against an account code
func (t *LedgerTransaction) EntriesFor(accountCode string) []TransactionEntry {
	var out []TransactionEntry
	for _, e := range t.Entries {
		if e.AccountCode == accountCode {
			out = append(out, e)
		}
	}
	return out
}
