package posting

import (
	"context"

	"github.com/astracore/gl-service/internal/domain/ledger"
	"github.com/astracore/gl-service/internal/domain/shared"
)

// TransactionScope provides transactional access to ledger repositories.
// When a function is executed within a transaction scope, all repository operations
// will be part of the same database transaction and will be committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to everything one posting writes.
// All repositories returned share the same underlying database transaction:
//   - AccountRepo: chart of accounts lookups and first-use creation
//   - TransactionRepo: the append-only ledger and its dedup lock
//   - SaveEvents: outbox rows relayed after commit
type TransactionalRepositories interface {
	AccountRepo() ledger.AccountRepository
	TransactionRepo() ledger.TransactionRepository
	SaveEvents(ctx context.Context, events ...shared.DomainEvent) error
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing or when transaction support is not required.
type NoOpTransactionScope struct {
	accountRepo     ledger.AccountRepository
	transactionRepo ledger.TransactionRepository
	events          shared.EventPublisher
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
// Events are handed to publisher directly; it may be nil.
func NewNoOpTransactionScope(
	accountRepo ledger.AccountRepository,
	transactionRepo ledger.TransactionRepository,
	publisher shared.EventPublisher,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		events:          publisher,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// AccountRepo returns the account repository.
func (s *NoOpTransactionScope) AccountRepo() ledger.AccountRepository {
	return s.accountRepo
}

// TransactionRepo returns the ledger transaction repository.
func (s *NoOpTransactionScope) TransactionRepo() ledger.TransactionRepository {
	return s.transactionRepo
}

// SaveEvents publishes the events immediately.
func (s *NoOpTransactionScope) SaveEvents(ctx context.Context, events ...shared.DomainEvent) error {
	if s.events == nil || len(events) == 0 {
		return nil
	}
	return s.events.Publish(ctx, events...)
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
