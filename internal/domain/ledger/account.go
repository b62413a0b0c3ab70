package ledger

import (
	"strings"
	"unicode/utf8"

	"github.com/astracore/gl-service/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	maxAccountCodeLength = 32
	maxAccountNameLength = 100
)

// GlAccount is a general ledger account. Code is the immutable business key,
// unique across the whole ledger.
type GlAccount struct {
	shared.BaseEntity
	Code     string
	Name     string
	TypeID   AccountTypeID
	ParentID *uuid.UUID
}

// NewGlAccount creates an account that has not been persisted yet
func NewGlAccount(code, name string, typeID AccountTypeID) (*GlAccount, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.ErrInvalidInput.WithMessage("account code cannot be empty")
	}
	if len(code) > maxAccountCodeLength {
		return nil, shared.ErrInvalidInput.WithMessage("account code cannot exceed 32 characters")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.ErrInvalidInput.WithMessage("account name cannot be empty")
	}
	if utf8.RuneCountInString(name) > maxAccountNameLength {
		return nil, shared.ErrInvalidInput.WithMessage("account name cannot exceed 100 characters")
	}
	if _, err := LookupAccountType(typeID); err != nil {
		return nil, err
	}

	return &GlAccount{
		BaseEntity: shared.NewBaseEntity(),
		Code:       code,
		Name:       name,
		TypeID:     typeID,
	}, nil
}

// WithParent places the account under a roll-up parent.
// The parent must belong to the same accounting class.
func (a *GlAccount) WithParent(parent *GlAccount) error {
	if parent == nil {
		return shared.ErrInvalidInput.WithMessage("parent account cannot be nil")
	}
	if parent.ID == a.ID {
		return shared.ErrInvalidInput.WithMessage("account cannot be its own parent")
	}
	if parent.TypeID.Root() != a.TypeID.Root() {
		return shared.ErrInvalidInput.WithMessage("parent account must share the same account class")
	}
	id := parent.ID
	a.ParentID = &id
	return nil
}

// NormalSide returns the side that increases the account balance
func (a *GlAccount) NormalSide() Side {
	return a.TypeID.NormalSide()
}
