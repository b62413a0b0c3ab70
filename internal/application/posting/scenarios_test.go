package posting_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/astracore/gl-service/internal/application/posting"
	"github.com/astracore/gl-service/internal/domain/ledger"
	"github.com/astracore/gl-service/internal/infrastructure/persistence"
	"github.com/astracore/gl-service/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newLedgerDB(t *testing.T) *gorm.DB {
	t.Helper()

	database, err := persistence.NewDatabaseFromDialector(
		sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"),
		func(c *gorm.Config) { c.PrepareStmt = false },
	)
	require.NoError(t, err)

	sqlDB, err := database.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.DB.AutoMigrate(models.AllModels()...))
	for _, at := range ledger.AccountTypes() {
		require.NoError(t, database.DB.Create(models.GlAccountTypeModelFromDomain(at)).Error)
	}
	return database.DB
}

func newService(db *gorm.DB) *posting.PostingService {
	scope := persistence.NewGormTransactionScope(db, nil)
	return posting.NewPostingService(scope, ledger.DefaultRuleSet(), zap.NewNop())
}

func invoice(id string, amount *string) ledger.InvoiceIssued {
	issue := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	fact := ledger.InvoiceIssued{
		TenantID:   "tenant-1",
		InvoiceID:  id,
		CustomerID: "cust-1",
		Currency:   "USD",
		IssueDate:  &issue,
		OccurredOn: issue.Add(9 * time.Hour),
	}
	if amount != nil {
		fact.TotalAmount = decimal.NewNullDecimal(decimal.RequireFromString(*amount))
	}
	return fact
}

func ptr(s string) *string { return &s }

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestScenario_PostsInvoice(t *testing.T) {
	db := newLedgerDB(t)
	service := newService(db)
	ctx := context.Background()

	result, err := service.PostInvoice(ctx, invoice("inv-123", ptr("150.00")))
	require.NoError(t, err)
	require.Equal(t, posting.OutcomePosted, result.Outcome)

	tx, err := persistence.NewGormTransactionRepository(db).FindByDescription(ctx, ledger.TransactionTypeSalesInvoice, "Invoice inv-123")
	require.NoError(t, err)
	assert.Equal(t, result.TransactionID, tx.ID)
	assert.Equal(t, "Invoice inv-123", tx.Description)
	require.Len(t, tx.Entries, 2)

	ar := tx.EntriesFor("AR")
	require.Len(t, ar, 1)
	assert.Equal(t, ledger.SideDebit, ar[0].Side)
	assert.True(t, ar[0].Amount.Amount().Equal(decimal.RequireFromString("150.00")))
	assert.Equal(t, "AR for invoice inv-123", ar[0].Description)

	rev := tx.EntriesFor("REV")
	require.Len(t, rev, 1)
	assert.Equal(t, ledger.SideCredit, rev[0].Side)
	assert.True(t, rev[0].Amount.Amount().Equal(decimal.RequireFromString("150.00")))
	assert.Equal(t, "Revenue for invoice inv-123", rev[0].Description)
	assert.NoError(t, tx.Validate())
}

func TestScenario_RedeliveryPostsOnce(t *testing.T) {
	db := newLedgerDB(t)
	service := newService(db)
	ctx := context.Background()

	first, err := service.PostInvoice(ctx, invoice("inv-123", ptr("150.00")))
	require.NoError(t, err)
	second, err := service.PostInvoice(ctx, invoice("inv-123", ptr("150.00")))
	require.NoError(t, err)

	assert.Equal(t, posting.OutcomePosted, first.Outcome)
	assert.Equal(t, posting.OutcomeDuplicate, second.Outcome)
	assert.Equal(t, int64(1), countRows(t, db, &models.LedgerTransactionModel{}))
	assert.Equal(t, int64(2), countRows(t, db, &models.TransactionEntryModel{}))
}

func TestScenario_ReceivableAccountIsReused(t *testing.T) {
	db := newLedgerDB(t)
	service := newService(db)
	accounts := persistence.NewGormAccountRepository(db)
	ctx := context.Background()

	_, err := service.PostInvoice(ctx, invoice("inv-1", ptr("10.00")))
	require.NoError(t, err)
	ar, err := accounts.FindByCode(ctx, "AR")
	require.NoError(t, err)
	assert.Equal(t, ledger.AccountTypeAsset, ar.TypeID)

	result, err := service.PostInvoice(ctx, invoice("inv-2", ptr("20.00")))
	require.NoError(t, err)

	tx, err := persistence.NewGormTransactionRepository(db).FindByID(ctx, result.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, ar.ID, tx.EntriesFor("AR")[0].AccountID)
	assert.Equal(t, int64(2), countRows(t, db, &models.GlAccountModel{}))
}

func TestScenario_NullTotalIsSkipped(t *testing.T) {
	db := newLedgerDB(t)
	service := newService(db)

	result, err := service.PostInvoice(context.Background(), invoice("inv-404", nil))

	require.NoError(t, err)
	assert.Equal(t, posting.OutcomeNotPostable, result.Outcome)
	assert.Zero(t, countRows(t, db, &models.LedgerTransactionModel{}))
	assert.Zero(t, countRows(t, db, &models.TransactionEntryModel{}))
}

func TestConcurrentDeliveriesPostOnce(t *testing.T) {
	db := newLedgerDB(t)
	service := newService(db)

	const deliveries = 8
	outcomes := make(chan posting.Outcome, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := service.PostInvoice(context.Background(), invoice("inv-race", ptr("42.00")))
			if assert.NoError(t, err) {
				outcomes <- result.Outcome
			}
		}()
	}
	wg.Wait()
	close(outcomes)

	counts := map[posting.Outcome]int{}
	for o := range outcomes {
		counts[o]++
	}
	assert.Equal(t, 1, counts[posting.OutcomePosted])
	assert.Equal(t, deliveries-1, counts[posting.OutcomeDuplicate])
	assert.Equal(t, int64(1), countRows(t, db, &models.LedgerTransactionModel{}))
}

func TestConcurrentResolversCreateOneAccount(t *testing.T) {
	db := newLedgerDB(t)
	repo := persistence.NewGormAccountRepository(db)

	const resolvers = 10
	ids := make(chan uuid.UUID, resolvers)
	var wg sync.WaitGroup
	for i := 0; i < resolvers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			account, err := posting.NewChartOfAccounts(repo, zap.NewNop()).
				Resolve(context.Background(), "AR", "Accounts Receivable", ledger.AccountTypeAsset)
			if assert.NoError(t, err) {
				ids <- account.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[uuid.UUID]bool{}
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 1)
	assert.Equal(t, int64(1), countRows(t, db, &models.GlAccountModel{}))
}
