package models

import (
	"time"

	"github.com/google/uuid"
)

// WeeklyShippedHistory is one calendar-week aggregation bucket per sku.
// Re-running a week overwrites the bucket rather than duplicating it.
type WeeklyShippedHistory struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WeekStart time.Time `gorm:"column:week_start;not null;uniqueIndex:weekly_shipped_history_bucket_key"`
	WeekEnd   time.Time `gorm:"column:week_end;not null;uniqueIndex:weekly_shipped_history_bucket_key"`
	SKU       string    `gorm:"column:sku;not null;uniqueIndex:weekly_shipped_history_bucket_key"`
	Qty       int       `gorm:"column:qty;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
