package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/posledger-backend/pkg/enums"
)

// Order is a settled sale. Amounts are fixed at creation; only Status and the
// cancel/refund audit fields change afterwards.
type Order struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Code           string              `gorm:"column:code;not null;uniqueIndex"`
	CustomerPhone  *string             `gorm:"column:customer_phone;index"`
	Subtotal       int64               `gorm:"column:subtotal;not null"`
	DiscountType   *enums.DiscountType `gorm:"column:discount_type"`
	DiscountValue  decimal.NullDecimal `gorm:"column:discount_value;type:numeric(12,2)"`
	DiscountCode   *string             `gorm:"column:discount_code"`
	DiscountAmount int64               `gorm:"column:discount_amount;not null;default:0"`
	ShippingFee    int64               `gorm:"column:shipping_fee;not null;default:0"`
	Total          int64               `gorm:"column:total;not null"`
	PaymentMethod  enums.PaymentMethod `gorm:"column:payment_method;not null"`
	CashAmount     int64               `gorm:"column:cash_amount;not null;default:0"`
	TransferAmount int64               `gorm:"column:transfer_amount;not null;default:0"`
	WalletAmount   int64               `gorm:"column:wallet_amount;not null;default:0"`
	Status         enums.OrderStatus   `gorm:"column:status;not null;default:'completed'"`
	Notes          *string             `gorm:"column:notes"`
	CreatedBy      string              `gorm:"column:created_by;not null"`
	CancelledBy    *string             `gorm:"column:cancelled_by"`
	CancelReason   *string             `gorm:"column:cancel_reason"`
	CancelledAt    *time.Time          `gorm:"column:cancelled_at"`
	RefundedBy     *string             `gorm:"column:refunded_by"`
	RefundedAt     *time.Time          `gorm:"column:refunded_at"`
	Items          []OrderItem         `gorm:"foreignKey:OrderID"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
