package models

import (
	"time"

	"github.com/google/uuid"
)

// ShippedOrder is the immutable historical record written when a staged order
// reaches a terminal shipped state on the platform.
type ShippedOrder struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber        string    `gorm:"column:order_number;not null;uniqueIndex"`
	PlatformOrderID    string    `gorm:"column:platform_order_id;not null;default:''"`
	Carrier            string    `gorm:"column:carrier;not null;default:''"`
	ServiceCode        string    `gorm:"column:service_code;not null;default:''"`
	TrackingNumber     string    `gorm:"column:tracking_number;not null;default:''"`
	DestinationState   string    `gorm:"column:destination_state;not null;default:''"`
	DestinationCountry string    `gorm:"column:destination_country;not null;default:''"`
	TotalCents         int64     `gorm:"column:total_cents;not null;default:0"`
	ShipDate           time.Time `gorm:"column:ship_date;not null"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
}
