package models

import "time"

// FeedPollState is the single-row record tracking the file-drop poller.
type FeedPollState struct {
	ID             int        `gorm:"column:id;primaryKey"`
	LastFileName   string     `gorm:"column:last_file_name;not null;default:''"`
	LastFileCount  int        `gorm:"column:last_file_count;not null;default:0"`
	LastPolledAt   *time.Time `gorm:"column:last_polled_at"`
	LastImportedAt *time.Time `gorm:"column:last_imported_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
