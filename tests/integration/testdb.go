// Package integration runs the posting pipeline against a real PostgreSQL
// started with testcontainers and migrated with the files under migrations/.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/astracore/gl-service/internal/infrastructure/migration"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	sharedMu        sync.Mutex
	sharedContainer *tcpostgres.PostgresContainer
	sharedDSN       string
)

// TestDB is a migrated database connection for one test
type TestDB struct {
	DB  *gorm.DB
	DSN string
	t   *testing.T
}

// NewTestDB returns a connection to a migrated PostgreSQL shared by the
// package. Tests call Reset to start from empty ledger tables.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test: requires docker")
	}

	sharedMu.Lock()
	defer sharedMu.Unlock()

	if sharedContainer == nil {
		ctx := context.Background()
		container, err := tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("gl_test"),
			tcpostgres.WithUsername("postgres"),
			tcpostgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		require.NoError(t, err, "start postgres container")

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)

		m, err := migration.NewFromURL(dsn, migrationsPath(t), zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, m.Up())
		require.NoError(t, m.Close())

		sharedContainer = container
		sharedDSN = dsn
	}

	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	if os.Getenv("TEST_DB_DEBUG") != "" {
		cfg.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}
	db, err := gorm.Open(gormpostgres.Open(sharedDSN), cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(10)

	tdb := &TestDB{DB: db, DSN: sharedDSN, t: t}
	t.Cleanup(func() { _ = sqlDB.Close() })
	tdb.Reset()
	return tdb
}

// Reset empties the ledger and outbox tables. Account types are seed data and stay.
func (tdb *TestDB) Reset() {
	tdb.t.Helper()
	err := tdb.DB.Exec(`TRUNCATE TABLE outbox_events, transaction_entries, ledger_transactions, gl_accounts CASCADE`).Error
	require.NoError(tdb.t, err, "truncate ledger tables")
}

// TerminateShared stops the shared container; called from TestMain
func TerminateShared() {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if sharedContainer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = sharedContainer.Terminate(ctx)
	sharedContainer = nil
	sharedDSN = ""
}

func migrationsPath(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	dir := filepath.Dir(file)
	for range 4 {
		candidate := filepath.Join(dir, "migrations")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		dir = filepath.Dir(dir)
	}
	t.Fatal("migrations directory not found")
	return ""
}
