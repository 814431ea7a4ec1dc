package models

import (
	"time"

	"github.com/google/uuid"
)

// LotAssignment records which lot is stamped onto outgoing line items for a
// sku. A partial unique index guarantees at most one active row per sku.
type LotAssignment struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU       string    `gorm:"column:sku;not null;uniqueIndex:lot_assignments_sku_lot_key"`
	Lot       string    `gorm:"column:lot;not null;uniqueIndex:lot_assignments_sku_lot_key"`
	Active    bool      `gorm:"column:active;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
