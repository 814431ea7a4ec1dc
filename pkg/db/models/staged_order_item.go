package models

import (
	"time"

	"github.com/google/uuid"
)

// StagedOrderItem is one line of a staged order. SKULot is stamped at upload
// time from the active lot assignment. One row per (order, sku).
type StagedOrderItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StagedOrderID  uuid.UUID `gorm:"column:staged_order_id;type:uuid;not null;uniqueIndex:staged_order_items_order_sku_key"`
	SKU            string    `gorm:"column:sku;not null;uniqueIndex:staged_order_items_order_sku_key"`
	SKULot         *string   `gorm:"column:sku_lot"`
	Qty            int       `gorm:"column:qty;not null"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
