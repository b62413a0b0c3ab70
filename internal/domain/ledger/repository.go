package ledger

import (
	"context"

	"github.com/google/uuid"
)

// AccountFilter narrows account listings
type AccountFilter struct {
	TypeID *AccountTypeID
	Limit  int
	Offset int
}

// AccountRepository defines persistence for the chart of accounts
type AccountRepository interface {
	// FindByCode returns shared.ErrNotFound when no account has the code
	FindByCode(ctx context.Context, code string) (*GlAccount, error)

	FindByID(ctx context.Context, id uuid.UUID) (*GlAccount, error)

	// Create inserts the account. A code that already exists yields shared.ErrAlreadyExists
	// and must leave the surrounding unit of work usable.
	Create(ctx context.Context, account *GlAccount) error

	// List returns accounts ordered by code
	List(ctx context.Context, filter AccountFilter) ([]GlAccount, error)
}

// TransactionRepository defines persistence for ledger transactions.
// Transactions are append-only: there is no update or delete.
type TransactionRepository interface {
	// AcquireSourceLock serializes work on one source key until the unit of work ends.
	// Stores without advisory locks may implement it as a no-op.
	AcquireSourceLock(ctx context.Context, key string) error

	// FindByDescription returns shared.ErrNotFound when nothing matches
	FindByDescription(ctx context.Context, txType TransactionType, description string) (*LedgerTransaction, error)

	ExistsByDescription(ctx context.Context, txType TransactionType, description string) (bool, error)

	// FindByID loads the transaction with its entries
	FindByID(ctx context.Context, id uuid.UUID) (*LedgerTransaction, error)

	// Create inserts the transaction and its entries. A second transaction with the same
	// type and description yields shared.ErrAlreadyExists.
	Create(ctx context.Context, tx *LedgerTransaction) error
}
