package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harborops/fulfillment-backend/pkg/enums"
)

// InventoryTransaction is one immutable entry in the append-only inventory
// audit trail. Balances are always re-derivable from these rows plus shipment
// history.
type InventoryTransaction struct {
	ID        uuid.UUID                      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU       string                         `gorm:"column:sku;not null"`
	Lot       string                         `gorm:"column:lot;not null"`
	Type      enums.InventoryTransactionType `gorm:"column:type;not null"`
	QtyDelta  int                            `gorm:"column:qty_delta;not null"`
	Note      *string                        `gorm:"column:note"`
	CreatedAt time.Time                      `gorm:"column:created_at;autoCreateTime"`
}
