package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harborops/fulfillment-backend/pkg/enums"
)

// ReportRun tracks one reporting execution. The (type, run_for_date) key makes
// re-runs overwrite instead of duplicate.
type ReportRun struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReportType  enums.ReportType `gorm:"column:report_type;not null;uniqueIndex:report_runs_type_date_key"`
	RunForDate  time.Time        `gorm:"column:run_for_date;not null;uniqueIndex:report_runs_type_date_key"`
	CompletedAt *time.Time       `gorm:"column:completed_at"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// MonthlyBillingSummary carries the billing-relevant counts for one calendar
// month. This is the one place order counts (not unit counts) matter.
type MonthlyBillingSummary struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Month            time.Time `gorm:"column:month;not null;uniqueIndex"`
	OrderCount       int       `gorm:"column:order_count;not null;default:0"`
	PackageCount     int       `gorm:"column:package_count;not null;default:0"`
	UnitCount        int       `gorm:"column:unit_count;not null;default:0"`
	StorageFeeCents  int64     `gorm:"column:storage_fee_cents;not null;default:0"`
	HandlingFeeCents int64     `gorm:"column:handling_fee_cents;not null;default:0"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
