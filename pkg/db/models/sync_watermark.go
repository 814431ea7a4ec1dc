package models

import "time"

// SyncWatermark tracks the last fully-successful reconciliation instant per
// workflow. It only ever moves forward, and only after a clean pass.
type SyncWatermark struct {
	WorkflowName string    `gorm:"column:workflow_name;primaryKey"`
	LastSyncAt   time.Time `gorm:"column:last_sync_at;not null"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
