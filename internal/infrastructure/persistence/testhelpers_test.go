package persistence

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/astracore/gl-service/internal/domain/ledger"
	"github.com/astracore/gl-service/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newSQLiteDB opens a private in-memory database with the ledger schema and
// the built-in account types. One connection keeps every session on the same
// database, so statements are not prepared on the pool.
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	database, err := NewDatabaseFromDialector(
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

// newMockGormDB returns a postgres-dialect gorm DB backed by sqlmock
func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func mustAccount(t *testing.T, code, name string, typeID ledger.AccountTypeID) *ledger.GlAccount {
	t.Helper()
	acc, err := ledger.NewGlAccount(code, name, typeID)
	require.NoError(t, err)
	return acc
}
