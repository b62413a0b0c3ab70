package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/astracore/gl-service/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// stubResolver hands out one account per code
type stubResolver struct {
	mu       sync.Mutex
	accounts map[string]*GlAccount
	err      error
}

func newStubResolver() *stubResolver {
	return &stubResolver{accounts: make(map[string]*GlAccount)}
}

func (r *stubResolver) Resolve(_ context.Context, code, name string, typeID AccountTypeID) (*GlAccount, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if acc, ok := r.accounts[code]; ok {
		return acc, nil
	}
	acc, err := NewGlAccount(code, name, typeID)
	if err != nil {
		return nil, err
	}
	r.accounts[code] = acc
	return acc, nil
}

func testInvoice(id, amount, currency string) InvoiceIssued {
	issue := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	due := issue.AddDate(0, 0, 30)
	fact := InvoiceIssued{
		TenantID:   "tenant-1",
		InvoiceID:  id,
		CustomerID: "cust-9",
		Currency:   currency,
		IssueDate:  &issue,
		DueDate:    &due,
		OccurredOn: issue.Add(9 * time.Hour),
	}
	if amount != "" {
		fact.TotalAmount = decimal.NewNullDecimal(decimal.RequireFromString(amount))
	}
	return fact
}

func money(amount, currency string) valueobject.Money {
	m, err := valueobject.NewMoneyFromString(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}
