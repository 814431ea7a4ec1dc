package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/harborops/fulfillment-backend/pkg/db/models"
)

// WatermarkStore reads and advances per-workflow sync watermarks.
type WatermarkStore interface {
	Get(ctx context.Context, workflow string) (time.Time, error)
	Advance(ctx context.Context, workflow string, to time.Time) error
}

type watermarkRepository struct {
	db *gorm.DB
}

// NewWatermarkRepository builds the watermark store.
func NewWatermarkRepository(db *gorm.DB) (WatermarkStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	return &watermarkRepository{db: db}, nil
}

// Get returns the workflow's watermark, zero when it has never synced.
func (r *watermarkRepository) Get(ctx context.Context, workflow string) (time.Time, error) {
	var row models.SyncWatermark
	err := r.db.WithContext(ctx).First(&row, "workflow_name = ?", workflow).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("loading watermark %s: %w", workflow, err)
	}
	return row.LastSyncAt, nil
}

// Advance moves the watermark forward. A value at or behind the stored one
// is a no-op so a late writer cannot shrink an already-covered window.
func (r *watermarkRepository) Advance(ctx context.Context, workflow string, to time.Time) error {
	to = to.UTC()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.SyncWatermark
		err := tx.First(&row, "workflow_name = ?", workflow).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&models.SyncWatermark{WorkflowName: workflow, LastSyncAt: to}).Error
		}
		if err != nil {
			return err
		}
		if !to.After(row.LastSyncAt) {
			return nil
		}
		return tx.Model(&models.SyncWatermark{}).
			Where("workflow_name = ?", workflow).
			Update("last_sync_at", to).Error
	})
	if err != nil {
		return fmt.Errorf("advancing watermark %s: %w", workflow, err)
	}
	return nil
}
