package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/posledger-backend/pkg/enums"
)

// BalanceTransaction is one immutable wallet log entry. Amount is signed:
// credits are positive, payments negative.
type BalanceTransaction struct {
	ID            uuid.UUID                    `gorm:"column:id;type:uuid;primaryKey"`
	CustomerPhone string                       `gorm:"column:customer_phone;not null;uniqueIndex:uq_balance_transactions_customer_seq,priority:1"`
	Seq           int64                        `gorm:"column:seq;not null;uniqueIndex:uq_balance_transactions_customer_seq,priority:2"`
	Type          enums.BalanceTransactionType `gorm:"column:type;not null"`
	Amount        int64                        `gorm:"column:amount;not null"`
	BalanceBefore int64                        `gorm:"column:balance_before;not null"`
	BalanceAfter  int64                        `gorm:"column:balance_after;not null"`
	OrderCode     *string                      `gorm:"column:order_code;index"`
	Method        *enums.TopupMethod           `gorm:"column:method"`
	Notes         string                       `gorm:"column:notes;not null;default:''"`
	ActorID       string                       `gorm:"column:actor_id;not null"`
	ActorRole     enums.ActorRole              `gorm:"column:actor_role;not null"`
	CreatedAt     time.Time                    `gorm:"column:created_at;autoCreateTime"`
}

func (t *BalanceTransaction) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
