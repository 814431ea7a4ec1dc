package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harborops/fulfillment-backend/pkg/enums"
)

// DuplicateOrderAlert flags an order number seen more than once on the
// platform. At most one active alert exists per (order_number, base_sku);
// resolution is always manual.
type DuplicateOrderAlert struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber    string            `gorm:"column:order_number;not null"`
	BaseSKU        string            `gorm:"column:base_sku;not null"`
	DuplicateCount int               `gorm:"column:duplicate_count;not null;default:2"`
	PlatformIDs    []string          `gorm:"column:platform_ids;type:jsonb;serializer:json"`
	Status         enums.AlertStatus `gorm:"column:status;not null;default:'active'"`
	FirstSeenAt    time.Time         `gorm:"column:first_seen_at;not null"`
	LastSeenAt     time.Time         `gorm:"column:last_seen_at;not null"`
	ResolvedAt     *time.Time        `gorm:"column:resolved_at"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// DuplicateOrderExclusion suppresses alerts for a known-legitimate
// (order_number, base_sku) pair.
type DuplicateOrderExclusion struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber string    `gorm:"column:order_number;not null;uniqueIndex:duplicate_order_exclusions_key"`
	BaseSKU     string    `gorm:"column:base_sku;not null;uniqueIndex:duplicate_order_exclusions_key"`
	Note        *string   `gorm:"column:note"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
