package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/posledger-backend/internal/wallet"
	"github.com/angelmondragon/posledger-backend/pkg/logger"
	"github.com/angelmondragon/posledger-backend/pkg/metrics"
)

const (
	ledgerReconcileJobName  = "wallet_ledger_reconcile"
	defaultReconcileBatch   = 200
	maxLoggedLedgerBreakers = 20
)

type walletLister interface {
	ListWalletPhones(ctx context.Context, afterPhone string, limit int) ([]string, error)
}

type walletReconciler interface {
	Reconcile(ctx context.Context, customerPhone string) (*wallet.ReconcileReport, error)
}

// LedgerReconcileJobParams configure the wallet ledger sweep.
type LedgerReconcileJobParams struct {
	Logger     *logger.Logger
	Wallets    walletLister
	Reconciler walletReconciler
	Metrics    *metrics.CronJobMetrics
	BatchSize  int
}

type ledgerReconcileJob struct {
	logg       *logger.Logger
	wallets    walletLister
	reconciler walletReconciler
	metrics    *metrics.CronJobMetrics
	batchSize  int
}

// NewLedgerReconcileJob builds the job that replays every wallet's log
// against its snapshot.
func NewLedgerReconcileJob(params LedgerReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Wallets == nil {
		return nil, fmt.Errorf("wallet lister required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("wallet reconciler required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	return &ledgerReconcileJob{
		logg:       params.Logger,
		wallets:    params.Wallets,
		reconciler: params.Reconciler,
		metrics:    params.Metrics,
		batchSize:  batch,
	}, nil
}

func (j *ledgerReconcileJob) Name() string { return ledgerReconcileJobName }

// Run fails when any wallet does not reconcile so the failure counter alerts.
// Lookup errors on a single wallet are counted the same way and the sweep
// moves on.
func (j *ledgerReconcileJob) Run(ctx context.Context) error {
	var (
		after    string
		checked  int
		broken   []string
		failures int
	)
	for {
		phones, err := j.wallets.ListWalletPhones(ctx, after, j.batchSize)
		if err != nil {
			return fmt.Errorf("list wallets after %q: %w", after, err)
		}
		for _, phone := range phones {
			if err := ctx.Err(); err != nil {
				return err
			}
			checked++
			report, err := j.reconciler.Reconcile(ctx, phone)
			if err != nil {
				failures++
				j.logg.Error(j.logg.WithCustomerPhone(ctx, phone), "reconcile wallet", err)
				continue
			}
			if !report.Consistent {
				broken = append(broken, phone)
			}
		}
		if len(phones) < j.batchSize {
			break
		}
		after = phones[len(phones)-1]
	}

	j.metrics.SetUnreconciledWallets(len(broken))

	ctx = j.logg.WithFields(ctx, map[string]any{
		"wallets_checked": checked,
		"unreconciled":    len(broken),
		"errors":          failures,
	})
	if len(broken) == 0 && failures == 0 {
		j.logg.Info(ctx, "wallet ledger sweep clean")
		return nil
	}
	sample := broken
	if len(sample) > maxLoggedLedgerBreakers {
		sample = sample[:maxLoggedLedgerBreakers]
	}
	j.logg.Warn(j.logg.WithField(ctx, "sample", sample), "wallet ledger sweep found breaks")
	return fmt.Errorf("%d of %d wallets unreconciled, %d errors", len(broken), checked, failures)
}
