package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harborops/fulfillment-backend/pkg/enums"
)

// StagedOrder holds an imported order between XML intake and the shipping
// platform. Rows become historical once shipped and are purged after the
// retention window.
type StagedOrder struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber     string                  `gorm:"column:order_number;not null;uniqueIndex"`
	OrderDate       time.Time               `gorm:"column:order_date;not null"`
	CustomerName    string                  `gorm:"column:customer_name;not null;default:''"`
	CustomerEmail   string                  `gorm:"column:customer_email;not null;default:''"`
	Status          enums.StagedOrderStatus `gorm:"column:status;not null;default:'pending'"`
	PlatformOrderID *string                 `gorm:"column:platform_order_id"`
	TotalItems      int                     `gorm:"column:total_items;not null;default:0"`
	TotalCents      int64                   `gorm:"column:total_cents;not null;default:0"`
	IsFlagged       bool                    `gorm:"column:is_flagged;not null;default:false"`
	FlagReason      *string                 `gorm:"column:flag_reason"`
	FailureReason   *string                 `gorm:"column:failure_reason"`
	Carrier         *string                 `gorm:"column:carrier"`
	ServiceCode     *string                 `gorm:"column:service_code"`
	TrackingNumber  *string                 `gorm:"column:tracking_number"`
	ShipDate        *time.Time              `gorm:"column:ship_date"`
	Historical      bool                    `gorm:"column:historical;not null;default:false"`
	ClaimedAt       *time.Time              `gorm:"column:claimed_at"`
	ClaimedBy       *string                 `gorm:"column:claimed_by"`
	UploadedAt      *time.Time              `gorm:"column:uploaded_at"`
	Items           []StagedOrderItem       `gorm:"foreignKey:StagedOrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
