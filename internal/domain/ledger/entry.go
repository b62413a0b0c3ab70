package ledger

import (
	"github.com/astracore/gl-service/internal/domain/shared"
	"github.com/astracore/gl-service/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Side is the debit/credit flag of an entry, stored as a single character
type Side string

const (
	SideDebit  Side = "D"
	SideCredit Side = "C"
)

// IsValid checks if the side is exactly one of debit or credit
func (s Side) IsValid() bool {
	return s == SideDebit || s == SideCredit
}

// Label returns the human readable side name
func (s Side) Label() string {
	switch s {
	case SideDebit:
		return "debit"
	case SideCredit:
		return "credit"
	}
	return "unknown"
}

func (s Side) String() string {
	return string(s)
}

// TransactionEntry is one line of a ledger transaction. Entries have no
// lifecycle of their own; TransactionID only names the owning transaction.
type TransactionEntry struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	Sequence      int
	AccountID     uuid.UUID
	AccountCode   string
	Amount        valueobject.Money
	Side          Side
	Description   string
}

func newTransactionEntry(transactionID uuid.UUID, seq int, account *GlAccount, amount valueobject.Money, side Side, description string) (TransactionEntry, error) {
	if account == nil || account.ID == uuid.Nil {
		return TransactionEntry{}, shared.ErrInvalidInput.WithMessage("entry must reference a resolved account")
	}
	if !amount.IsPositive() {
		return TransactionEntry{}, shared.ErrInvalidInput.WithMessage("entry amount must be positive")
	}
	if !side.IsValid() {
		return TransactionEntry{}, shared.ErrInvalidInput.WithMessage("entry side must be debit or credit")
	}
	return TransactionEntry{
		ID:            uuid.New(),
		TransactionID: transactionID,
		Sequence:      seq,
		AccountID:     account.ID,
		AccountCode:   account.Code,
		Amount:        amount,
		Side:          side,
		Description:   description,
	}, nil
}

// IsDebit returns true for debit entries
func (e TransactionEntry) IsDebit() bool {
	return e.Side == SideDebit
}
