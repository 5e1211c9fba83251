package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/posledger-backend/pkg/enums"
)

// DiscountCode is a reusable coupon. Code is stored upper-case so lookups are
// case-insensitive.
type DiscountCode struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Code           string             `gorm:"column:code;not null;uniqueIndex"`
	DiscountType   enums.DiscountType `gorm:"column:discount_type;not null"`
	Value          decimal.Decimal    `gorm:"column:value;type:numeric(12,2);not null"`
	MinOrderAmount int64              `gorm:"column:min_order_amount;not null;default:0"`
	MaxDiscount    *int64             `gorm:"column:max_discount"`
	UsageLimit     *int64             `gorm:"column:usage_limit"`
	UsedCount      int64              `gorm:"column:used_count;not null;default:0"`
	ValidFrom      *time.Time         `gorm:"column:valid_from"`
	ValidTo        *time.Time         `gorm:"column:valid_to"`
	Active         bool               `gorm:"column:active;not null"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (d *DiscountCode) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
