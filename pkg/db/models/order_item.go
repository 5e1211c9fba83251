package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/posledger-backend/pkg/enums"
)

// OrderItem snapshots the product as sold. It never references the live
// catalog row, so later price changes leave history untouched.
type OrderItem struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	ProductCode  string            `gorm:"column:product_code;not null"`
	ProductName  string            `gorm:"column:product_name;not null"`
	UnitPrice    int64             `gorm:"column:unit_price;not null"`
	Quantity     int               `gorm:"column:quantity;not null"`
	LineTotal    int64             `gorm:"column:line_total;not null"`
	StockStatus  enums.StockStatus `gorm:"column:stock_status;not null;default:'untracked'"`
	AllocatedQty int               `gorm:"column:allocated_qty;not null;default:0"`
	ShortfallQty int               `gorm:"column:shortfall_qty;not null;default:0"`
	Allocations  json.RawMessage   `gorm:"column:allocations;type:jsonb"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
