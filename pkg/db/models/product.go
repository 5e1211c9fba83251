package models

import "time"

// Product is the catalog row consulted for authoritative pricing. A nil
// UnitPrice means the product cannot be sold yet.
type Product struct {
	Code             string    `gorm:"column:code;primaryKey"`
	Name             string    `gorm:"column:name;not null"`
	UnitPrice        *int64    `gorm:"column:unit_price"`
	Active           bool      `gorm:"column:active;not null"`
	InventoryTypeKey *string   `gorm:"column:inventory_type_key"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
