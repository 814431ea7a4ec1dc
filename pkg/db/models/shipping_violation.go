package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harborops/fulfillment-backend/pkg/enums"
)

// ShippingViolation records an observed carrier/service that breaks a
// business rule. Resolution is manual; the monitor never deletes rows.
type ShippingViolation struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber   string              `gorm:"column:order_number;not null;uniqueIndex:shipping_violations_order_type_key"`
	ViolationType enums.ViolationType `gorm:"column:violation_type;not null;uniqueIndex:shipping_violations_order_type_key"`
	ExpectedValue string              `gorm:"column:expected_value;not null"`
	ActualValue   string              `gorm:"column:actual_value;not null"`
	Resolved      bool                `gorm:"column:resolved;not null;default:false"`
	ResolvedAt    *time.Time          `gorm:"column:resolved_at"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
