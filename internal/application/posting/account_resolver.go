package posting

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/astracore/gl-service/internal/domain/ledger"
	"github.com/astracore/gl-service/internal/domain/shared"
	"go.uber.org/zap"
)

// ChartOfAccounts resolves account codes to ledger accounts, creating an
// account the first time its code is used. Safe for concurrent use as long as
// the repository is.
type ChartOfAccounts struct {
	repo   ledger.AccountRepository
	logger *zap.Logger

	mu      sync.Mutex
	created []string
}

// NewChartOfAccounts creates a resolver over the given repository
func NewChartOfAccounts(repo ledger.AccountRepository, logger *zap.Logger) *ChartOfAccounts {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChartOfAccounts{repo: repo, logger: logger}
}

// Resolve returns the account for code. A missing account is created with
// the given name and type. If another writer creates it first the unique
// index rejects our insert and the winner's row is returned instead.
func (c *ChartOfAccounts) Resolve(ctx context.Context, code, name string, typeID ledger.AccountTypeID) (*ledger.GlAccount, error) {
	account, err := c.repo.FindByCode(ctx, code)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up account %s: %w", code, err)
	}

	account, err = ledger.NewGlAccount(code, name, typeID)
	if err != nil {
		return nil, err
	}

	if err := c.repo.Create(ctx, account); err != nil {
		if !errors.Is(err, shared.ErrAlreadyExists) {
			return nil, fmt.Errorf("failed to create account %s: %w", code, err)
		}

		existing, findErr := c.repo.FindByCode(ctx, code)
		if findErr != nil {
			return nil, fmt.Errorf("failed to re-read account %s after concurrent create: %w", code, findErr)
		}
		c.logger.Debug("account created concurrently, using existing",
			zap.String("account_code", code),
			zap.String("account_id", existing.ID.String()),
		)
		return existing, nil
	}

	c.mu.Lock()
	c.created = append(c.created, code)
	c.mu.Unlock()

	c.logger.Info("account created",
		zap.String("account_code", code),
		zap.String("account_id", account.ID.String()),
		zap.String("account_type", account.TypeID.String()),
	)
	return account, nil
}

// Created returns the codes of accounts this resolver created
func (c *ChartOfAccounts) Created() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.created))
	copy(out, c.created)
	return out
}

// Ensure ChartOfAccounts implements the builder's resolver port
var _ ledger.AccountResolver = (*ChartOfAccounts)(nil)
