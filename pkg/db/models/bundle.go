package models

import (
	"time"

	"github.com/google/uuid"
)

// BundleSKU is a composite SKU customers order that expands into real SKUs at
// import time.
type BundleSKU struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU         string            `gorm:"column:sku;not null;uniqueIndex"`
	Description string            `gorm:"column:description;not null;default:''"`
	Active      bool              `gorm:"column:active;not null;default:true"`
	Components  []BundleComponent `gorm:"foreignKey:BundleID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// BundleComponent maps a bundle to one constituent SKU with a quantity
// multiplier. Sequence preserves the original component ordering.
type BundleComponent struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BundleID     uuid.UUID `gorm:"column:bundle_id;type:uuid;not null;uniqueIndex:bundle_components_bundle_sku_key"`
	ComponentSKU string    `gorm:"column:component_sku;not null;uniqueIndex:bundle_components_bundle_sku_key"`
	Multiplier   int       `gorm:"column:multiplier;not null"`
	Sequence     int       `gorm:"column:sequence;not null;default:0"`
}
