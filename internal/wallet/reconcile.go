package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/posledger-backend/pkg/db/models"
	"github.com/angelmondragon/posledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/posledger-backend/pkg/errors"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// Reconcile replays the customer's log in sequence order and compares the
// result with the wallet snapshot. Every break found is reported.
func (s *service) Reconcile(ctx context.Context, customerPhone string) (*ReconcileReport, error) {
	customer, err := s.phones.Normalize(customerPhone)
	if err != nil {
		return nil, err
	}

	wallet, err := s.repo.FindWallet(ctx, customer)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
		}
		wallet = &models.Wallet{CustomerPhone: customer}
	}

	entries, err := s.repo.ListAllTransactions(ctx, customer)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list balance transactions")
	}

	report := replay(wallet, entries)
	if !report.Consistent {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"customer_phone": customer,
			"breaks":         report.Breaks,
		})
		s.logg.Warn(ctx, "wallet ledger does not reconcile")
	}
	return report, nil
}

func replay(wallet *models.Wallet, entries []models.BalanceTransaction) *ReconcileReport {
	report := &ReconcileReport{
		CustomerPhone: wallet.CustomerPhone,
		Entries:       len(entries),
		Balance:       wallet.Balance,
		TotalTopup:    wallet.TotalTopup,
		TotalSpent:    wallet.TotalSpent,
	}

	var breaks error
	var running int64
	for i, entry := range entries {
		if want := int64(i + 1); entry.Seq != want {
			breaks = multierr.Append(breaks, fmt.Errorf("entry %s: seq %d, expected %d", entry.ID, entry.Seq, want))
		}
		if entry.BalanceBefore != running {
			breaks = multierr.Append(breaks, fmt.Errorf("seq %d: balance_before %d, previous balance_after %d", entry.Seq, entry.BalanceBefore, running))
		}
		if entry.BalanceAfter != entry.BalanceBefore+entry.Amount {
			breaks = multierr.Append(breaks, fmt.Errorf("seq %d: balance_after %d != %d%+d", entry.Seq, entry.BalanceAfter, entry.BalanceBefore, entry.Amount))
		}
		if entry.BalanceAfter < 0 {
			breaks = multierr.Append(breaks, fmt.Errorf("seq %d: negative balance %d", entry.Seq, entry.BalanceAfter))
		}
		running = entry.BalanceAfter

		switch entry.Type {
		case enums.BalanceTransactionTypeTopup:
			report.ReplayedTopup += entry.Amount
		case enums.BalanceTransactionTypePayment:
			report.ReplayedSpent += -entry.Amount
		default:
			report.NetAdjustments += entry.Amount
		}
	}
	report.ReplayedBalance = running

	if running != wallet.Balance {
		breaks = multierr.Append(breaks, fmt.Errorf("replayed balance %d != wallet balance %d", running, wallet.Balance))
	}
	if report.ReplayedTopup != wallet.TotalTopup {
		breaks = multierr.Append(breaks, fmt.Errorf("replayed topups %d != total_topup %d", report.ReplayedTopup, wallet.TotalTopup))
	}
	if report.ReplayedSpent != wallet.TotalSpent {
		breaks = multierr.Append(breaks, fmt.Errorf("replayed payments %d != total_spent %d", report.ReplayedSpent, wallet.TotalSpent))
	}
	if derived := wallet.TotalTopup - wallet.TotalSpent + report.NetAdjustments; derived != wallet.Balance {
		breaks = multierr.Append(breaks, fmt.Errorf("total_topup - total_spent + adjustments = %d != balance %d", derived, wallet.Balance))
	}
	if wallet.LastSeq != int64(len(entries)) {
		breaks = multierr.Append(breaks, fmt.Errorf("last_seq %d != %d entries", wallet.LastSeq, len(entries)))
	}

	for _, err := range multierr.Errors(breaks) {
		report.Breaks = append(report.Breaks, err.Error())
	}
	report.Consistent = len(report.Breaks) == 0
	return report
}
