package wallet

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/angelmondragon/posledger-backend/pkg/auth"
	"github.com/angelmondragon/posledger-backend/pkg/db/models"
	"github.com/angelmondragon/posledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/posledger-backend/pkg/errors"
	"github.com/angelmondragon/posledger-backend/pkg/locks"
	"github.com/angelmondragon/posledger-backend/pkg/logger"
	"github.com/angelmondragon/posledger-backend/pkg/metrics"
	"github.com/angelmondragon/posledger-backend/pkg/pagination"
	"github.com/angelmondragon/posledger-backend/pkg/phone"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the wallet ledger operations.
type Service interface {
	// Lock serializes ledger work for one customer. Callers that use ApplyTx
	// must hold it for the whole surrounding transaction.
	Lock(ctx context.Context, customerPhone string) (locks.Unlock, error)
	// ApplyTx performs the read-modify-write-append sequence inside tx.
	ApplyTx(ctx context.Context, tx *gorm.DB, m Mutation) (*Result, error)

	Credit(ctx context.Context, actor auth.Actor, input CreditInput) (*Result, error)
	Debit(ctx context.Context, actor auth.Actor, input DebitInput) (*Result, error)
	Topup(ctx context.Context, actor auth.Actor, input TopupInput) (*Result, error)
	Adjust(ctx context.Context, actor auth.Actor, input AdjustInput) (*Result, error)
	Compensate(ctx context.Context, actor auth.Actor, input CompensateInput) (*Result, error)

	Get(ctx context.Context, customerPhone string) (*WalletView, error)
	ListTransactions(ctx context.Context, customerPhone string, params pagination.Params) (*TransactionPage, error)
	Reconcile(ctx context.Context, customerPhone string) (*ReconcileReport, error)
}

type service struct {
	tx      txRunner
	repo    Repository
	locker  locks.Locker
	phones  phone.Normalizer
	metrics *metrics.SettlementMetrics
	logg    *logger.Logger
}

// NewService wires the wallet ledger. metrics may be nil.
func NewService(
	tx txRunner,
	repo Repository,
	locker locks.Locker,
	phones phone.Normalizer,
	m *metrics.SettlementMetrics,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		tx:      tx,
		repo:    repo,
		locker:  locker,
		phones:  phones,
		metrics: m,
		logg:    logg,
	}, nil
}

// LockKey is the locker key guarding a customer's wallet.
func LockKey(customerPhone string) string {
	return "wallet:" + customerPhone
}

func (s *service) Lock(ctx context.Context, customerPhone string) (locks.Unlock, error) {
	normalized, err := s.phones.Normalize(customerPhone)
	if err != nil {
		return nil, err
	}
	unlock, err := s.locker.Lock(ctx, LockKey(normalized))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire wallet lock")
	}
	return unlock, nil
}

func (s *service) ApplyTx(ctx context.Context, tx *gorm.DB, m Mutation) (*Result, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	customer, err := s.phones.Normalize(m.CustomerPhone)
	if err != nil {
		return nil, err
	}
	if !m.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid balance transaction type %q", m.Type))
	}
	if m.Amount == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be non-zero")
	}
	if err := checkSign(m.Type, m.Amount); err != nil {
		return nil, err
	}
	if m.ActorID == "" || !m.ActorRole.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required for wallet mutation")
	}

	repo := s.repo.WithTx(tx)

	if m.Amount > 0 {
		if err := repo.EnsureWallet(ctx, customer); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wallet")
		}
	}

	wallet, err := repo.FindWalletForUpdate(ctx, customer)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, insufficientBalance(customer, 0, -m.Amount)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}

	before := wallet.Balance
	if m.Amount > 0 && (m.Amount > math.MaxInt64-before ||
		(m.Type == enums.BalanceTransactionTypeTopup && m.Amount > math.MaxInt64-wallet.TotalTopup)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit would exceed the maximum wallet balance").
			WithDetails(map[string]any{"customer_phone": customer, "balance": before, "amount": m.Amount})
	}
	after := before + m.Amount
	if after < 0 {
		return nil, insufficientBalance(customer, before, -m.Amount)
	}

	expectedSeq := wallet.LastSeq
	wallet.Balance = after
	wallet.LastSeq = expectedSeq + 1
	switch m.Type {
	case enums.BalanceTransactionTypeTopup:
		wallet.TotalTopup += m.Amount
	case enums.BalanceTransactionTypePayment:
		wallet.TotalSpent += -m.Amount
	}

	advanced, err := repo.AdvanceWallet(ctx, wallet, expectedSeq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update wallet")
	}
	if !advanced {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "wallet changed concurrently").
			WithDetails(map[string]any{"customer_phone": customer})
	}

	entry := models.BalanceTransaction{
		CustomerPhone: customer,
		Seq:           wallet.LastSeq,
		Type:          m.Type,
		Amount:        m.Amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		OrderCode:     m.OrderCode,
		Method:        m.Method,
		Notes:         strings.TrimSpace(m.Notes),
		ActorID:       m.ActorID,
		ActorRole:     m.ActorRole,
	}
	if err := repo.CreateTransaction(ctx, &entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append balance transaction")
	}

	return &Result{Transaction: entry, Balance: after}, nil
}

// checkSign enforces the direction each transaction type may move money.
func checkSign(txType enums.BalanceTransactionType, amount int64) error {
	switch {
	case txType.IsCredit() && amount < 0:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s amount must be positive", txType))
	case txType == enums.BalanceTransactionTypePayment && amount > 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be negative")
	}
	return nil
}

func insufficientBalance(customer string, balance, requested int64) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientBalance, fmt.Sprintf("insufficient balance: %d available, %d required", balance, requested)).
		WithDetails(map[string]any{
			"customer_phone": customer,
			"balance":        balance,
			"required":       requested,
		})
}

// apply runs one mutation in its own unit of work under the customer lock.
func (s *service) apply(ctx context.Context, m Mutation) (*Result, error) {
	customer, err := s.phones.Normalize(m.CustomerPhone)
	if err != nil {
		return nil, err
	}
	m.CustomerPhone = customer

	unlock, err := s.Lock(ctx, customer)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var result *Result
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		res, err := s.ApplyTx(ctx, tx, m)
		if err != nil {
			return err
		}
		result = res
		return nil
	}); err != nil {
		return nil, err
	}

	s.metrics.IncWalletMutation(string(m.Type))
	ctx = s.logg.WithFields(ctx, map[string]any{
		"customer_phone": customer,
		"type":           m.Type,
		"amount":         m.Amount,
		"balance":        result.Balance,
		"seq":            result.Transaction.Seq,
	})
	s.logg.Info(ctx, "wallet mutation committed")
	return result, nil
}

func (s *service) Credit(ctx context.Context, actor auth.Actor, input CreditInput) (*Result, error) {
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit amount must be positive")
	}
	if !input.Type.IsCredit() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%q is not a credit type", input.Type))
	}
	return s.apply(ctx, Mutation{
		CustomerPhone: input.CustomerPhone,
		Type:          input.Type,
		Amount:        input.Amount,
		OrderCode:     input.OrderCode,
		Notes:         input.Notes,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
	})
}

func (s *service) Debit(ctx context.Context, actor auth.Actor, input DebitInput) (*Result, error) {
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "debit amount must be positive")
	}
	return s.apply(ctx, Mutation{
		CustomerPhone: input.CustomerPhone,
		Type:          enums.BalanceTransactionTypePayment,
		Amount:        -input.Amount,
		OrderCode:     input.OrderCode,
		Notes:         input.Notes,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
	})
}

func (s *service) Topup(ctx context.Context, actor auth.Actor, input TopupInput) (*Result, error) {
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "topup amount must be positive")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid topup method %q", input.Method))
	}
	method := input.Method
	return s.apply(ctx, Mutation{
		CustomerPhone: input.CustomerPhone,
		Type:          enums.BalanceTransactionTypeTopup,
		Amount:        input.Amount,
		Method:        &method,
		Notes:         input.Notes,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
	})
}

func (s *service) Adjust(ctx context.Context, actor auth.Actor, input AdjustInput) (*Result, error) {
	if !actor.IsPrivileged() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "wallet adjustments require an admin or owner")
	}
	if input.Amount == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment amount must be non-zero")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment reason is required")
	}
	return s.apply(ctx, Mutation{
		CustomerPhone: input.CustomerPhone,
		Type:          enums.BalanceTransactionTypeAdjust,
		Amount:        input.Amount,
		Notes:         reason,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
	})
}

func (s *service) Compensate(ctx context.Context, actor auth.Actor, input CompensateInput) (*Result, error) {
	if !actor.IsPrivileged() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "compensation requires an admin or owner")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "compensation amount must be positive")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "compensation reason is required")
	}
	return s.apply(ctx, Mutation{
		CustomerPhone: input.CustomerPhone,
		Type:          enums.BalanceTransactionTypeCompensation,
		Amount:        input.Amount,
		Notes:         reason,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
	})
}

// Get returns the wallet summary. Customers without a wallet yet report zeros.
func (s *service) Get(ctx context.Context, customerPhone string) (*WalletView, error) {
	customer, err := s.phones.Normalize(customerPhone)
	if err != nil {
		return nil, err
	}
	wallet, err := s.repo.FindWallet(ctx, customer)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &WalletView{CustomerPhone: customer}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	return toWalletView(wallet), nil
}

func (s *service) ListTransactions(ctx context.Context, customerPhone string, params pagination.Params) (*TransactionPage, error) {
	customer, err := s.phones.Normalize(customerPhone)
	if err != nil {
		return nil, err
	}
	beforeSeq, err := pagination.ParseSeqCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	entries, err := s.repo.ListTransactions(ctx, customer, beforeSeq, params.Fetch())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list balance transactions")
	}

	entries, more := pagination.Trim(entries, params)
	page := &TransactionPage{Items: make([]TransactionDTO, 0, len(entries))}
	if more {
		page.NextCursor = pagination.EncodeSeqCursor(entries[len(entries)-1].Seq)
	}
	for _, entry := range entries {
		page.Items = append(page.Items, toTransactionDTO(entry))
	}
	return page, nil
}
