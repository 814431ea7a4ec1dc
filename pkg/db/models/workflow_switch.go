package models

import "time"

// WorkflowSwitch is the persisted per-workflow kill switch checked at the
// start of every cycle. A missing row means enabled.
type WorkflowSwitch struct {
	Name      string    `gorm:"column:name;primaryKey"`
	Enabled   bool      `gorm:"column:enabled;not null;default:true"`
	Note      *string   `gorm:"column:note"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
