package models

import (
	"time"

	"github.com/google/uuid"
)

// ShippedItem attributes shipped quantity to a (sku, lot). The dedup key makes
// reconciliation retries idempotent: conflicts are updates, not errors.
type ShippedItem struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber string    `gorm:"column:order_number;not null;uniqueIndex:shipped_items_dedup_key"`
	BaseSKU     string    `gorm:"column:base_sku;not null;uniqueIndex:shipped_items_dedup_key"`
	SKULot      string    `gorm:"column:sku_lot;not null;default:'';uniqueIndex:shipped_items_dedup_key"`
	Qty         int       `gorm:"column:qty;not null"`
	ShipDate    time.Time `gorm:"column:ship_date;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
