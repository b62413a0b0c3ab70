package posting

import (
	"context"
	"time"

	"github.com/astracore/gl-service/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of ledger.AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FindByCode(ctx context.Context, code string) (*ledger.GlAccount, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.GlAccount), args.Error(1)
}

func (m *MockAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.GlAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.GlAccount), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, account *ledger.GlAccount) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) List(ctx context.Context, filter ledger.AccountFilter) ([]ledger.GlAccount, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]ledger.GlAccount), args.Error(1)
}

// MockTransactionRepository is a mock implementation of ledger.TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) AcquireSourceLock(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockTransactionRepository) FindByDescription(ctx context.Context, txType ledger.TransactionType, description string) (*ledger.LedgerTransaction, error) {
	args := m.Called(ctx, txType, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.LedgerTransaction), args.Error(1)
}

func (m *MockTransactionRepository) ExistsByDescription(ctx context.Context, txType ledger.TransactionType, description string) (bool, error) {
	args := m.Called(ctx, txType, description)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.LedgerTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.LedgerTransaction), args.Error(1)
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *ledger.LedgerTransaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

// MockInvoicePoster is a mock implementation of InvoicePoster
type MockInvoicePoster struct {
	mock.Mock
}

func (m *MockInvoicePoster) PostInvoice(ctx context.Context, fact ledger.InvoiceIssued) (*PostingResult, error) {
	args := m.Called(ctx, fact)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PostingResult), args.Error(1)
}

// MockAnomalyAdvisor is a mock implementation of ledger.AnomalyAdvisor
type MockAnomalyAdvisor struct {
	mock.Mock
}

func (m *MockAnomalyAdvisor) Assess(ctx context.Context, assessment ledger.InvoiceAssessment) (bool, error) {
	args := m.Called(ctx, assessment)
	return args.Bool(0), args.Error(1)
}

func newInvoice(id, amount string) ledger.InvoiceIssued {
	issue := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	fact := ledger.InvoiceIssued{
		TenantID:   "tenant-1",
		InvoiceID:  id,
		CustomerID: "cust-1",
		Currency:   "USD",
		IssueDate:  &issue,
		OccurredOn: issue.Add(10 * time.Hour),
	}
	if amount != "" {
		fact.TotalAmount = decimal.NewNullDecimal(decimal.RequireFromString(amount))
	}
	return fact
}

func mustAccount(code, name string, typeID ledger.AccountTypeID) *ledger.GlAccount {
	acc, err := ledger.NewGlAccount(code, name, typeID)
	if err != nil {
		panic(err)
	}
	return acc
}
