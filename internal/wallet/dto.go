package wallet

import (
	"time"

	"github.com/angelmondragon/posledger-backend/pkg/db/models"
	"github.com/angelmondragon/posledger-backend/pkg/enums"
	"github.com/google/uuid"
)

// Mutation is one balance change applied inside a caller-owned transaction.
// Amount is signed: positive credits, negative debits.
type Mutation struct {
	CustomerPhone string
	Type          enums.BalanceTransactionType
	Amount        int64
	OrderCode     *string
	Method        *enums.TopupMethod
	Notes         string
	ActorID       string
	ActorRole     enums.ActorRole
}

// Result reports the committed log entry and the balance it produced.
type Result struct {
	Transaction models.BalanceTransaction
	Balance     int64
}

// CreditInput describes an internal credit such as a refund.
type CreditInput struct {
	CustomerPhone string
	Amount        int64
	Type          enums.BalanceTransactionType
	OrderCode     *string
	Notes         string
}

// DebitInput describes an internal debit such as a wallet payment.
type DebitInput struct {
	CustomerPhone string
	Amount        int64
	OrderCode     *string
	Notes         string
}

type TopupInput struct {
	CustomerPhone string
	Amount        int64
	Method        enums.TopupMethod
	Notes         string
}

type AdjustInput struct {
	CustomerPhone string
	Amount        int64
	Reason        string
}

type CompensateInput struct {
	CustomerPhone string
	Amount        int64
	Reason        string
}

// WalletView is the public balance summary of a customer.
type WalletView struct {
	CustomerPhone string     `json:"customer_phone"`
	Balance       int64      `json:"balance"`
	TotalTopup    int64      `json:"total_topup"`
	TotalSpent    int64      `json:"total_spent"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// TransactionDTO is the API shape of a balance transaction.
type TransactionDTO struct {
	ID            uuid.UUID                    `json:"id"`
	Seq           int64                        `json:"seq"`
	Type          enums.BalanceTransactionType `json:"type"`
	Amount        int64                        `json:"amount"`
	BalanceBefore int64                        `json:"balance_before"`
	BalanceAfter  int64                        `json:"balance_after"`
	OrderCode     *string                      `json:"order_code,omitempty"`
	Method        *enums.TopupMethod           `json:"method,omitempty"`
	Notes         string                       `json:"notes,omitempty"`
	ActorID       string                       `json:"actor_id"`
	ActorRole     enums.ActorRole              `json:"actor_role"`
	CreatedAt     time.Time                    `json:"created_at"`
}

// TransactionPage is one page of a customer's log, newest first.
type TransactionPage struct {
	Items      []TransactionDTO `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// ReconcileReport is the outcome of replaying a customer's log against the
// wallet snapshot.
type ReconcileReport struct {
	CustomerPhone   string   `json:"customer_phone"`
	Entries         int      `json:"entries"`
	Balance         int64    `json:"balance"`
	ReplayedBalance int64    `json:"replayed_balance"`
	TotalTopup      int64    `json:"total_topup"`
	ReplayedTopup   int64    `json:"replayed_topup"`
	TotalSpent      int64    `json:"total_spent"`
	ReplayedSpent   int64    `json:"replayed_spent"`
	NetAdjustments  int64    `json:"net_adjustments"`
	Consistent      bool     `json:"consistent"`
	Breaks          []string `json:"breaks,omitempty"`
}

func toTransactionDTO(entry models.BalanceTransaction) TransactionDTO {
	return TransactionDTO{
		ID:            entry.ID,
		Seq:           entry.Seq,
		Type:          entry.Type,
		Amount:        entry.Amount,
		BalanceBefore: entry.BalanceBefore,
		BalanceAfter:  entry.BalanceAfter,
		OrderCode:     entry.OrderCode,
		Method:        entry.Method,
		Notes:         entry.Notes,
		ActorID:       entry.ActorID,
		ActorRole:     entry.ActorRole,
		CreatedAt:     entry.CreatedAt,
	}
}

func toWalletView(w *models.Wallet) *WalletView {
	updated := w.UpdatedAt
	return &WalletView{
		CustomerPhone: w.CustomerPhone,
		Balance:       w.Balance,
		TotalTopup:    w.TotalTopup,
		TotalSpent:    w.TotalSpent,
		UpdatedAt:     &updated,
	}
}

// ResultDTO is the API shape of a committed mutation.
type ResultDTO struct {
	Transaction TransactionDTO `json:"transaction"`
	Balance     int64          `json:"balance"`
}

func ToResultDTO(r *Result) ResultDTO {
	return ResultDTO{Transaction: toTransactionDTO(r.Transaction), Balance: r.Balance}
}
