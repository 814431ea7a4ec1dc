package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harborops/fulfillment-backend/pkg/enums"
)

// LotBalance tracks the receipt quantities for a (sku, lot) pair. Current
// on-hand quantity is derived: initial + manual adjustment - shipped since
// received_date. It is never stored.
type LotBalance struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU              string          `gorm:"column:sku;not null;uniqueIndex:lot_balances_sku_lot_key"`
	Lot              string          `gorm:"column:lot;not null;uniqueIndex:lot_balances_sku_lot_key"`
	InitialQty       int             `gorm:"column:initial_qty;not null;default:0"`
	ManualAdjustment int             `gorm:"column:manual_adjustment;not null;default:0"`
	ReceivedDate     time.Time       `gorm:"column:received_date;not null"`
	Status           enums.LotStatus `gorm:"column:status;not null;default:'active'"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
