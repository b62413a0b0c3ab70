package models

import (
	"time"

	"github.com/astracore/gl-service/internal/domain/ledger"
	"github.com/astracore/gl-service/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GlAccountTypeModel is a node of the account type hierarchy. Rows are seeded by migration.
type GlAccountTypeModel struct {
	ID           string  `gorm:"type:varchar(32);primaryKey"`
	ParentTypeID *string `gorm:"type:varchar(32);index"`
	Description  string  `gorm:"type:varchar(255);not null"`
}

// TableName returns the table name for GORM
func (GlAccountTypeModel) TableName() string {
	return "gl_account_types"
}

// GlAccountTypeModelFromDomain creates a persistence model from a domain account type
func GlAccountTypeModelFromDomain(t ledger.AccountType) *GlAccountTypeModel {
	m := &GlAccountTypeModel{ID: string(t.ID), Description: t.Description}
	if t.ParentID != "" {
		parent := string(t.ParentID)
		m.ParentTypeID = &parent
	}
	return m
}

// GlAccountModel is the persistence model for the GlAccount entity.
type GlAccountModel struct {
	BaseModel
	Code          string     `gorm:"type:varchar(32);not null;uniqueIndex:idx_gl_accounts_code"`
	Name          string     `gorm:"type:varchar(100);not null"`
	AccountTypeID string     `gorm:"type:varchar(32);not null;index"`
	ParentID      *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (GlAccountModel) TableName() string {
	return "gl_accounts"
}

// ToDomain converts the persistence model to a domain GlAccount entity.
func (m *GlAccountModel) ToDomain() *ledger.GlAccount {
	return &ledger.GlAccount{
		BaseEntity: m.BaseModel.ToDomain(),
		Code:       m.Code,
		Name:       m.Name,
		TypeID:     ledger.AccountTypeID(m.AccountTypeID),
		ParentID:   m.ParentID,
	}
}

// FromDomain populates the persistence model from a domain GlAccount entity.
func (m *GlAccountModel) FromDomain(a *ledger.GlAccount) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.Code = a.Code
	m.Name = a.Name
	m.AccountTypeID = string(a.TypeID)
	m.ParentID = a.ParentID
}

// GlAccountModelFromDomain creates a new persistence model from a domain GlAccount entity.
func GlAccountModelFromDomain(a *ledger.GlAccount) *GlAccountModel {
	m := &GlAccountModel{}
	m.FromDomain(a)
	return m
}

// LedgerTransactionModel is the persistence model for the LedgerTransaction aggregate root.
// (transaction_type, description) is unique: it is the posting deduplication key.
type LedgerTransactionModel struct {
	BaseModel
	TenantID        string    `gorm:"type:varchar(64);not null;index"`
	TransactionType string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_ledger_transactions_source,priority:1"`
	Description     string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_ledger_transactions_source,priority:2"`
	TransactionDate time.Time `gorm:"not null;index"`
	EntryDate       time.Time `gorm:"not null"`
	Posted          bool      `gorm:"not null;default:true"`
	// Associations
	Entries []TransactionEntryModel `gorm:"foreignKey:TransactionID;references:ID"`
}

// TableName returns the table name for GORM
func (LedgerTransactionModel) TableName() string {
	return "ledger_transactions"
}

// ToDomain converts the persistence model to a domain LedgerTransaction.
func (m *LedgerTransactionModel) ToDomain() *ledger.LedgerTransaction {
	tx := &ledger.LedgerTransaction{
		ID:              m.ID,
		TenantID:        m.TenantID,
		TransactionType: ledger.TransactionType(m.TransactionType),
		Description:     m.Description,
		TransactionDate: m.TransactionDate,
		EntryDate:       m.EntryDate,
		Posted:          m.Posted,
		Entries:         make([]ledger.TransactionEntry, len(m.Entries)),
		CreatedAt:       m.CreatedAt,
	}
	for i, entry := range m.Entries {
		tx.Entries[i] = entry.ToDomain()
	}
	return tx
}

// FromDomain populates the persistence model from a domain LedgerTransaction.
func (m *LedgerTransactionModel) FromDomain(tx *ledger.LedgerTransaction) {
	m.ID = tx.ID
	m.CreatedAt = tx.CreatedAt
	m.TenantID = tx.TenantID
	m.TransactionType = string(tx.TransactionType)
	m.Description = tx.Description
	m.TransactionDate = tx.TransactionDate
	m.EntryDate = tx.EntryDate
	m.Posted = tx.Posted
	m.Entries = make([]TransactionEntryModel, len(tx.Entries))
	for i := range tx.Entries {
		m.Entries[i] = *TransactionEntryModelFromDomain(&tx.Entries[i], tx.CreatedAt)
	}
}

// LedgerTransactionModelFromDomain creates a new persistence model from a domain LedgerTransaction.
func LedgerTransactionModelFromDomain(tx *ledger.LedgerTransaction) *LedgerTransactionModel {
	m := &LedgerTransactionModel{}
	m.FromDomain(tx)
	return m
}

// TransactionEntryModel is the persistence model for a ledger transaction entry.
type TransactionEntryModel struct {
	BaseModel
	TransactionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Sequence      int             `gorm:"not null"`
	AccountID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	AccountCode   string          `gorm:"type:varchar(32);not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency      string          `gorm:"type:varchar(3);not null"`
	Side          string          `gorm:"column:debit_credit_flag;type:char(1);not null"`
	Description   string          `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (TransactionEntryModel) TableName() string {
	return "transaction_entries"
}

// ToDomain converts the persistence model to a domain TransactionEntry.
func (m *TransactionEntryModel) ToDomain() ledger.TransactionEntry {
	return ledger.TransactionEntry{
		ID:            m.ID,
		TransactionID: m.TransactionID,
		Sequence:      m.Sequence,
		AccountID:     m.AccountID,
		AccountCode:   m.AccountCode,
		Amount:        valueobject.MustNewMoney(m.Amount, valueobject.Currency(m.Currency)),
		Side:          ledger.Side(m.Side),
		Description:   m.Description,
	}
}

// TransactionEntryModelFromDomain creates a new persistence model from a domain TransactionEntry.
func TransactionEntryModelFromDomain(e *ledger.TransactionEntry, createdAt time.Time) *TransactionEntryModel {
	return &TransactionEntryModel{
		BaseModel:     BaseModel{ID: e.ID, CreatedAt: createdAt},
		TransactionID: e.TransactionID,
		Sequence:      e.Sequence,
		AccountID:     e.AccountID,
		AccountCode:   e.AccountCode,
		Amount:        e.Amount.Amount(),
		Currency:      e.Amount.Currency().String(),
		Side:          string(e.Side),
		Description:   e.Description,
	}
}

// AllModels lists the models in dependency order for AutoMigrate in tests
func AllModels() []any {
	return []any{
		&GlAccountTypeModel{},
		&GlAccountModel{},
		&LedgerTransactionModel{},
		&TransactionEntryModel{},
		&OutboxEntryModel{},
	}
}
