package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/posledger-backend/pkg/enums"
)

// RefundRequest holds a wallet refund awaiting a privileged decision. The
// partial unique index allows a single pending request per order.
type RefundRequest struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       uuid.UUID          `gorm:"column:order_id;type:uuid;not null;uniqueIndex:uq_refund_requests_pending_order,where:status = 'pending'"`
	OrderCode     string             `gorm:"column:order_code;not null"`
	CustomerPhone string             `gorm:"column:customer_phone;not null;index"`
	Amount        int64              `gorm:"column:amount;not null"`
	Status        enums.RefundStatus `gorm:"column:status;not null;default:'pending'"`
	Reason        string             `gorm:"column:reason;not null"`
	RequestedBy   string             `gorm:"column:requested_by;not null"`
	DecidedBy     *string            `gorm:"column:decided_by"`
	DecisionNote  *string            `gorm:"column:decision_note"`
	DecidedAt     *time.Time         `gorm:"column:decided_at"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *RefundRequest) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
