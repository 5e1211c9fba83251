package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/posledger-backend/pkg/config"
	"github.com/angelmondragon/posledger-backend/pkg/db"
	"github.com/angelmondragon/posledger-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
	require.NoError(t, ValidateEmbedded())
}

func TestLedgerMigrationsContainConstraints(t *testing.T) {
	checks := map[string][]string{
		"*_create_wallets.sql": {
			"CHECK (balance >= 0)",
			"CHECK (balance_after = balance_before + amount)",
			"uq_balance_transactions_customer_seq",
			"DROP TABLE IF EXISTS balance_transactions",
		},
		"*_create_orders.sql": {
			"CHECK (cash_amount + transfer_amount + wallet_amount = total)",
			"CHECK (wallet_amount = 0 OR customer_phone IS NOT NULL)",
			"CHECK (line_total = unit_price * quantity)",
		},
		"*_create_refund_requests.sql": {
			"uq_refund_requests_pending_order",
			"WHERE status = 'pending'",
		},
		"*_create_discount_codes.sql": {
			"CHECK (usage_limit IS NULL OR used_count <= usage_limit)",
		},
		"*_create_outbox.sql": {
			"idx_outbox_events_unpublished",
			"WHERE published_at IS NULL",
			"DROP TABLE IF EXISTS outbox_events",
		},
	}

	for pattern, wants := range checks {
		matches, err := filepath.Glob(filepath.Join("migrations", pattern))
		require.NoError(t, err)
		require.Lenf(t, matches, 1, "expected one migration matching %s", pattern)

		data, err := os.ReadFile(matches[0])
		require.NoError(t, err)
		for _, sub := range wants {
			assert.Truef(t, strings.Contains(string(data), sub), "%s missing %q", matches[0], sub)
		}
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, ValidateDir(dir))
}

func TestValidateDirRequiresGooseHeaders(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_init.sql"), []byte("-- +goose Up\nSELECT 1;\n"), 0o644))
	err := ValidateDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "goose Down")
}

func TestValidateDirRejectsDownBeforeUp(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_init.sql"), []byte("-- +goose Down\n-- +goose Up\n"), 0o644))
	require.Error(t, ValidateDir(dir))
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Shortage Resolution!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_shortage_resolution.sql"))
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "!!!")
	require.Error(t, err)
}

func TestCreateSQLMigrationRejectsVersionReuse(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	path, err := createSQLMigration(dir, "first", now)
	require.NoError(t, err)
	assert.Equal(t, "20260302100000_first.sql", filepath.Base(path))

	_, err = createSQLMigration(dir, "second", now)
	require.Error(t, err)
}

func TestSourceString(t *testing.T) {
	assert.Equal(t, "embedded", Source{}.String())
	assert.Equal(t, "db/migrations", Source{Dir: "db/migrations"}.String())
}

func TestMaybeRunDevAutoMigratesSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migrate_dev?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	client := db.NewFromConn(conn)
	t.Cleanup(func() { _ = client.Close() })

	cfg := &config.Config{
		App:          config.AppConfig{Env: config.AppEnvDev},
		FeatureFlags: config.FeatureFlagsConfig{UseSQLite: true, AutoMigrate: true},
	}
	require.NoError(t, MaybeRunDev(context.Background(), cfg, logger.Nop(), client))

	for _, table := range []string{"wallets", "balance_transactions", "orders", "order_items", "discount_codes", "refund_requests", "products", "stock_shortages"} {
		assert.Truef(t, conn.Migrator().HasTable(table), "expected table %s", table)
	}
}

func TestMaybeRunDevSkipsOutsideDev(t *testing.T) {
	cfg := &config.Config{
		App:          config.AppConfig{Env: config.AppEnvProd},
		FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true},
	}
	require.NoError(t, MaybeRunDev(context.Background(), cfg, logger.Nop(), nil))
}
