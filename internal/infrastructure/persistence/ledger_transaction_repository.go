package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/astracore/gl-service/internal/domain/ledger"
	"github.com/astracore/gl-service/internal/domain/shared"
	"github.com/astracore/gl-service/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTransactionRepository implements ledger.TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// AcquireSourceLock takes a transaction scoped PostgreSQL advisory lock on the
// key, released on commit or rollback. Other dialects rely on the unique index alone.
func (r *GormTransactionRepository) AcquireSourceLock(ctx context.Context, key string) error {
	if r.db.Dialector.Name() != "postgres" {
		return nil
	}
	if err := r.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error; err != nil {
		return fmt.Errorf("failed to acquire source lock: %w", err)
	}
	return nil
}

func (r *GormTransactionRepository) withEntries(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Entries", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence")
	})
}

// FindByDescription finds the transaction posted for a source
func (r *GormTransactionRepository) FindByDescription(ctx context.Context, txType ledger.TransactionType, description string) (*ledger.LedgerTransaction, error) {
	var model models.LedgerTransactionModel
	err := r.withEntries(ctx).
		Where("transaction_type = ? AND description = ?", string(txType), description).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find transaction %q: %w", description, err)
	}
	return model.ToDomain(), nil
}

// ExistsByDescription checks whether a source has already been posted
func (r *GormTransactionRepository) ExistsByDescription(ctx context.Context, txType ledger.TransactionType, description string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.LedgerTransactionModel{}).
		Where("transaction_type = ? AND description = ?", string(txType), description).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check transaction %q: %w", description, err)
	}
	return count > 0, nil
}

// FindByID finds a transaction with its entries
func (r *GormTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.LedgerTransaction, error) {
	var model models.LedgerTransactionModel
	if err := r.withEntries(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find transaction %s: %w", id, err)
	}
	return model.ToDomain(), nil
}

// Create inserts the transaction header and then its entries. It must run in
// a transaction scope for the two inserts to be atomic.
func (r *GormTransactionRepository) Create(ctx context.Context, tx *ledger.LedgerTransaction) error {
	model := models.LedgerTransactionModelFromDomain(tx)
	db := r.db.WithContext(ctx)

	if err := db.Omit(clause.Associations).Create(model).Error; err != nil {
		if isDuplicateKey(err) {
			return shared.ErrAlreadyExists.WithMessage("transaction " + tx.Description + " already posted")
		}
		return createError("transaction", err)
	}
	if len(model.Entries) == 0 {
		return nil
	}
	if err := db.Create(&model.Entries).Error; err != nil {
		return createError("transaction entries", err)
	}
	return nil
}

// Ensure GormTransactionRepository implements the interface
var _ ledger.TransactionRepository = (*GormTransactionRepository)(nil)
