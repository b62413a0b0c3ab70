package models

import (
	"time"

	"github.com/astracore/gl-service/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel carries the identity columns shared by ledger tables.
// Ledger rows are append only, so there is no updated_at.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
}

func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt}
}

func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID, m.CreatedAt = e.ID, e.CreatedAt
}
