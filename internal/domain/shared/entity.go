package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity is the identity embedded by ledger entities. Ledger records are
// append only, so only the creation instant is tracked.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
}

func NewBaseEntity() BaseEntity {
	return NewBaseEntityAt(time.Now())
}

func NewBaseEntityAt(at time.Time) BaseEntity {
	return BaseEntity{ID: uuid.New(), CreatedAt: at}
}
