package handler

import (
	"context"

	"github.com/astracore/gl-service/internal/domain/ledger"
	"github.com/astracore/gl-service/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockAccountRepository struct {
	mock.Mock
}

func (m *mockAccountRepository) FindByCode(ctx context.Context, code string) (*ledger.GlAccount, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.GlAccount), args.Error(1)
}

func (m *mockAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.GlAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.GlAccount), args.Error(1)
}

func (m *mockAccountRepository) Create(ctx context.Context, account *ledger.GlAccount) error {
	return m.Called(ctx, account).Error(0)
}

func (m *mockAccountRepository) List(ctx context.Context, filter ledger.AccountFilter) ([]ledger.GlAccount, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]ledger.GlAccount), args.Error(1)
}

type mockTransactionRepository struct {
	mock.Mock
}

func (m *mockTransactionRepository) AcquireSourceLock(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockTransactionRepository) FindByDescription(ctx context.Context, txType ledger.TransactionType, description string) (*ledger.LedgerTransaction, error) {
	args := m.Called(ctx, txType, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.LedgerTransaction), args.Error(1)
}

func (m *mockTransactionRepository) ExistsByDescription(ctx context.Context, txType ledger.TransactionType, description string) (bool, error) {
	args := m.Called(ctx, txType, description)
	return args.Bool(0), args.Error(1)
}

func (m *mockTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.LedgerTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.LedgerTransaction), args.Error(1)
}

func (m *mockTransactionRepository) Create(ctx context.Context, tx *ledger.LedgerTransaction) error {
	return m.Called(ctx, tx).Error(0)
}

type mockOutboxReader struct {
	mock.Mock
}

func (m *mockOutboxReader) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[shared.OutboxStatus]int64), args.Error(1)
}

func (m *mockOutboxReader) FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	args := m.Called(ctx, page, pageSize)
	return args.Get(0).([]*shared.OutboxEntry), args.Get(1).(int64), args.Error(2)
}
