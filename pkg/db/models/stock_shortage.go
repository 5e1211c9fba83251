package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/posledger-backend/pkg/enums"
)

// StockShortage records a line item the warehouse could not fully supply, for
// manual reconciliation.
type StockShortage struct {
	ID               uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	OrderCode        string                    `gorm:"column:order_code;not null;index"`
	ProductCode      string                    `gorm:"column:product_code;not null"`
	InventoryTypeKey string                    `gorm:"column:inventory_type_key;not null"`
	Requested        int                       `gorm:"column:requested;not null"`
	Allocated        int                       `gorm:"column:allocated;not null"`
	Shortfall        int                       `gorm:"column:shortfall;not null"`
	Reason           enums.StockShortageReason `gorm:"column:reason;not null"`
	Detail           string                    `gorm:"column:detail;not null;default:''"`
	ResolvedAt       *time.Time                `gorm:"column:resolved_at"`
	CreatedAt        time.Time                 `gorm:"column:created_at;autoCreateTime"`
}

func (s *StockShortage) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
