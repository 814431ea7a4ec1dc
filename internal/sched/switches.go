package sched

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/harborops/fulfillment-backend/pkg/db/models"
)

// SwitchStore answers whether a workflow is currently enabled. The switches
// live in Postgres so a single toggle pauses every worker instance at once.
type SwitchStore interface {
	Enabled(ctx context.Context, workflow string) (bool, error)
	Set(ctx context.Context, workflow string, enabled bool, note string) error
	List(ctx context.Context) ([]models.WorkflowSwitch, error)
}

type switchRepository struct {
	db *gorm.DB
}

// NewSwitchRepository builds the workflow switch store.
func NewSwitchRepository(db *gorm.DB) (SwitchStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	return &switchRepository{db: db}, nil
}

// Enabled reports the switch state for a workflow. A missing row means
// enabled: switches only exist once an operator has toggled them.
func (r *switchRepository) Enabled(ctx context.Context, workflow string) (bool, error) {
	var row models.WorkflowSwitch
	err := r.db.WithContext(ctx).First(&row, "name = ?", workflow).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("loading workflow switch %s: %w", workflow, err)
	}
	return row.Enabled, nil
}

func (r *switchRepository) Set(ctx context.Context, workflow string, enabled bool, note string) error {
	row := models.WorkflowSwitch{Name: workflow, Enabled: enabled}
	if note != "" {
		row.Note = &note
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"enabled", "note", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("saving workflow switch %s: %w", workflow, err)
	}
	return nil
}

func (r *switchRepository) List(ctx context.Context) ([]models.WorkflowSwitch, error) {
	var rows []models.WorkflowSwitch
	if err := r.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing workflow switches: %w", err)
	}
	return rows, nil
}
