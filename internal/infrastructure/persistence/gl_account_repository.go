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
)

// GormAccountRepository implements ledger.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByCode finds an account by its business code
func (r *GormAccountRepository) FindByCode(ctx context.Context, code string) (*ledger.GlAccount, error) {
	var model models.GlAccountModel
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find account %s: %w", code, err)
	}
	return model.ToDomain(), nil
}

// FindByID finds an account by ID
func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.GlAccount, error) {
	var model models.GlAccountModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find account %s: %w", id, err)
	}
	return model.ToDomain(), nil
}

// Create inserts the account inside a nested transaction. Within an outer
// transaction this becomes a savepoint, so a unique violation on code rolls
// back only the insert and the caller can re-read the winning row.
func (r *GormAccountRepository) Create(ctx context.Context, account *ledger.GlAccount) error {
	model := models.GlAccountModelFromDomain(account)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(model).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			return shared.ErrAlreadyExists.WithMessage("account " + account.Code + " already exists")
		}
		return createError("account "+account.Code, err)
	}
	return nil
}

// List returns accounts ordered by code
func (r *GormAccountRepository) List(ctx context.Context, filter ledger.AccountFilter) ([]ledger.GlAccount, error) {
	query := r.db.WithContext(ctx).Model(&models.GlAccountModel{}).Order("code")
	if filter.TypeID != nil {
		query = query.Where("account_type_id = ?", string(*filter.TypeID))
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []models.GlAccountModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	accounts := make([]ledger.GlAccount, len(rows))
	for i := range rows {
		accounts[i] = *rows[i].ToDomain()
	}
	return accounts, nil
}

// Ensure GormAccountRepository implements the interface
var _ ledger.AccountRepository = (*GormAccountRepository)(nil)
