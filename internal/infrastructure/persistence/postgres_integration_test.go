//go:build integration

package persistence

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/infrastructure/migration"
	"github.com/fruitstand/backend/migrations"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupPostgres starts a throwaway PostgreSQL container and applies the
// embedded migrations to it.
func setupPostgres(t *testing.T) (*gorm.DB, *migration.Migrator) {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("fruitstand_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	m, err := migration.New(sqlDB, migrations.FS, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, m.Up())

	db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	return db, m
}

func TestPostgres_MigrationsRoundTrip(t *testing.T) {
	db, m := setupPostgres(t)

	entries, err := migration.ListMigrations(migrations.FS)
	require.NoError(t, err)

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, entries[len(entries)-1].Version, version)

	for _, table := range []string{"products", "product_variants", "carts", "orders", "tickets", "newsletter_subscribers", "payment_webhook_events"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	require.NoError(t, m.Down())
	assert.False(t, db.Migrator().HasTable("orders"))
	require.NoError(t, m.Up())
	assert.True(t, db.Migrator().HasTable("orders"))
}

func TestPostgres_AdjustStockIsAtomic(t *testing.T) {
	db, _ := setupPostgres(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	p := newTestProduct(t, "Peach Hoodie", "peach-hoodie", 10)
	require.NoError(t, repo.Save(ctx, p))
	variantID := p.Variants[0].ID

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		reserved int
	)
	for range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.AdjustStock(ctx, variantID, -1); err == nil {
				mu.Lock()
				reserved++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, shared.ErrInsufficientStock)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, reserved)
	found, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, found.Variants[0].Stock)
}

func TestPostgres_OrderRoundTrip(t *testing.T) {
	db, _ := setupPostgres(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	o := newTestOrder(t, uuid.New(), "grace@example.com")
	o.AttachPaymentIntent("pi_pg_1")
	require.NoError(t, repo.Save(ctx, o))

	found, err := repo.FindByPaymentIntent(ctx, "pi_pg_1")
	require.NoError(t, err)
	assert.Equal(t, o.Number, found.Number)
	assert.Equal(t, "55.99", found.Total.StringFixed())
	assert.Equal(t, "Portland", found.ShippingAddress.City())

	dup := newTestOrder(t, uuid.New(), "grace@example.com")
	dup.AttachPaymentIntent("pi_pg_1")
	assert.ErrorIs(t, repo.Save(ctx, dup), shared.ErrAlreadyExists)
}
