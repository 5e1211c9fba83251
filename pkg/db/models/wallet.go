package models

import "time"

// Wallet is the balance snapshot for one customer. LastSeq is the sequence of
// the newest BalanceTransaction and moves in lockstep with Balance.
type Wallet struct {
	CustomerPhone string    `gorm:"column:customer_phone;primaryKey"`
	Balance       int64     `gorm:"column:balance;not null;default:0"`
	TotalTopup    int64     `gorm:"column:total_topup;not null;default:0"`
	TotalSpent    int64     `gorm:"column:total_spent;not null;default:0"`
	LastSeq       int64     `gorm:"column:last_seq;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
