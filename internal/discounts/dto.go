package discounts

import (
	"time"

	"github.com/angelmondragon/posledger-backend/pkg/db/models"
	"github.com/angelmondragon/posledger-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Quote is the result of validating a code against a subtotal.
type Quote struct {
	DiscountID     uuid.UUID          `json:"-"`
	Code           string             `json:"code"`
	Type           enums.DiscountType `json:"type"`
	Value          decimal.Decimal    `json:"value"`
	DiscountAmount int64              `json:"discount_amount"`
}

// CreateInput describes a new discount code.
type CreateInput struct {
	Code           string
	Type           enums.DiscountType
	Value          decimal.Decimal
	MinOrderAmount int64
	MaxDiscount    *int64
	UsageLimit     *int64
	ValidFrom      *time.Time
	ValidTo        *time.Time
}

// CodeDTO is the API shape of a discount code.
type CodeDTO struct {
	ID             uuid.UUID          `json:"id"`
	Code           string             `json:"code"`
	Type           enums.DiscountType `json:"type"`
	Value          decimal.Decimal    `json:"value"`
	MinOrderAmount int64              `json:"min_order_amount"`
	MaxDiscount    *int64             `json:"max_discount,omitempty"`
	UsageLimit     *int64             `json:"usage_limit,omitempty"`
	UsedCount      int64              `json:"used_count"`
	ValidFrom      *time.Time         `json:"valid_from,omitempty"`
	ValidTo        *time.Time         `json:"valid_to,omitempty"`
	Active         bool               `json:"active"`
}

func toCodeDTO(m *models.DiscountCode) *CodeDTO {
	return &CodeDTO{
		ID:             m.ID,
		Code:           m.Code,
		Type:           m.DiscountType,
		Value:          m.Value,
		MinOrderAmount: m.MinOrderAmount,
		MaxDiscount:    m.MaxDiscount,
		UsageLimit:     m.UsageLimit,
		UsedCount:      m.UsedCount,
		ValidFrom:      m.ValidFrom,
		ValidTo:        m.ValidTo,
		Active:         m.Active,
	}
}
