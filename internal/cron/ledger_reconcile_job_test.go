package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/posledger-backend/internal/wallet"
	"github.com/angelmondragon/posledger-backend/pkg/auth"
	"github.com/angelmondragon/posledger-backend/pkg/db"
	"github.com/angelmondragon/posledger-backend/pkg/db/models"
	"github.com/angelmondragon/posledger-backend/pkg/enums"
	"github.com/angelmondragon/posledger-backend/pkg/locks"
	"github.com/angelmondragon/posledger-backend/pkg/logger"
	"github.com/angelmondragon/posledger-backend/pkg/metrics"
	"github.com/angelmondragon/posledger-backend/pkg/phone"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newLedgerFixture(t *testing.T) (wallet.Service, wallet.Repository, *gorm.DB) {
	t.Helper()
	dsn := "file:cron_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(models.All()...))

	repo := wallet.NewRepository(conn)
	svc, err := wallet.NewService(db.NewFromConn(conn), repo, locks.NewMutexLocker(), phone.NewNormalizer("62"), nil, logger.Nop())
	require.NoError(t, err)
	return svc, repo, conn
}

func topup(t *testing.T, svc wallet.Service, phone string, amount int64) {
	t.Helper()
	_, err := svc.Topup(context.Background(), auth.Actor{ID: "cashier-1", Role: enums.ActorRoleCashier}, wallet.TopupInput{
		CustomerPhone: phone,
		Amount:        amount,
		Method:        enums.TopupMethodCash,
	})
	require.NoError(t, err)
}

func TestLedgerReconcileJobFlagsCorruptedWallet(t *testing.T) {
	svc, repo, conn := newLedgerFixture(t)
	topup(t, svc, "081200000001", 10000)
	topup(t, svc, "081200000002", 20000)
	topup(t, svc, "081200000003", 30000)
	require.NoError(t, conn.Model(&models.Wallet{}).
		Where("customer_phone = ?", "081200000002").
		Update("balance", 25000).Error)

	reg := prometheus.NewRegistry()
	m := metrics.NewCronJobMetrics(reg)
	counting := &countingReconciler{next: svc}
	job, err := NewLedgerReconcileJob(LedgerReconcileJobParams{
		Logger:     logger.Nop(),
		Wallets:    repo,
		Reconciler: counting,
		Metrics:    m,
		BatchSize:  2,
	})
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 wallets unreconciled")
	assert.Equal(t, []string{"081200000001", "081200000002", "081200000003"}, counting.seen)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var gauge float64
	for _, mf := range mfs {
		if mf.GetName() == "wallet_ledger_unreconciled" {
			gauge = mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.Equal(t, float64(1), gauge)
}

func TestLedgerReconcileJobCleanSweep(t *testing.T) {
	svc, repo, _ := newLedgerFixture(t)
	topup(t, svc, "081200000001", 10000)
	topup(t, svc, "081200000002", 20000)

	job, err := NewLedgerReconcileJob(LedgerReconcileJobParams{
		Logger:     logger.Nop(),
		Wallets:    repo,
		Reconciler: svc,
		BatchSize:  2,
	})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, ledgerReconcileJobName, job.Name())
}

func TestLedgerReconcileJobCountsLookupErrors(t *testing.T) {
	lister := &staticLister{phones: []string{"081200000001", "081200000002"}}
	job, err := NewLedgerReconcileJob(LedgerReconcileJobParams{
		Logger:     logger.Nop(),
		Wallets:    lister,
		Reconciler: failingReconciler{},
	})
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors")
}

func TestLedgerReconcileJobListFailure(t *testing.T) {
	job, err := NewLedgerReconcileJob(LedgerReconcileJobParams{
		Logger:     logger.Nop(),
		Wallets:    &staticLister{err: errors.New("db down")},
		Reconciler: failingReconciler{},
	})
	require.NoError(t, err)
	require.ErrorContains(t, job.Run(context.Background()), "db down")
}

func TestNewLedgerReconcileJobRequiresDependencies(t *testing.T) {
	_, err := NewLedgerReconcileJob(LedgerReconcileJobParams{Wallets: &staticLister{}, Reconciler: failingReconciler{}})
	require.Error(t, err)
	_, err = NewLedgerReconcileJob(LedgerReconcileJobParams{Logger: logger.Nop(), Reconciler: failingReconciler{}})
	require.Error(t, err)
	_, err = NewLedgerReconcileJob(LedgerReconcileJobParams{Logger: logger.Nop(), Wallets: &staticLister{}})
	require.Error(t, err)
}

type countingReconciler struct {
	next walletReconciler
	seen []string
}

func (c *countingReconciler) Reconcile(ctx context.Context, phone string) (*wallet.ReconcileReport, error) {
	c.seen = append(c.seen, phone)
	return c.next.Reconcile(ctx, phone)
}

type failingReconciler struct{}

func (failingReconciler) Reconcile(context.Context, string) (*wallet.ReconcileReport, error) {
	return nil, errors.New("boom")
}

type staticLister struct {
	phones []string
	err    error
}

func (s *staticLister) ListWalletPhones(_ context.Context, after string, limit int) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []string
	for _, p := range s.phones {
		if p > after && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}
