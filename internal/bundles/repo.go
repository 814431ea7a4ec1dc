package bundles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/harborops/fulfillment-backend/pkg/db/models"
)

// Repository loads bundle definitions for the expander and the dashboard.
type Repository interface {
	GetBySKU(ctx context.Context, sku string) (*models.BundleSKU, error)
	List(ctx context.Context) ([]models.BundleSKU, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds the bundle repository.
func NewRepository(db *gorm.DB) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	return &repository{db: db}, nil
}

// GetBySKU returns the bundle definition for a SKU, active or not, with
// components in sequence order. Returns (nil, nil) when the SKU is not a
// bundle at all.
func (r *repository) GetBySKU(ctx context.Context, sku string) (*models.BundleSKU, error) {
	normalized := strings.TrimSpace(sku)
	if normalized == "" {
		return nil, nil
	}

	var bundle models.BundleSKU
	err := r.db.WithContext(ctx).
		Preload("Components", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		First(&bundle, "sku = ?", normalized).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading bundle %s: %w", normalized, err)
	}
	return &bundle, nil
}

func (r *repository) List(ctx context.Context) ([]models.BundleSKU, error) {
	var bundles []models.BundleSKU
	err := r.db.WithContext(ctx).
		Preload("Components", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Order("sku").
		Find(&bundles).Error
	if err != nil {
		return nil, fmt.Errorf("listing bundles: %w", err)
	}
	return bundles, nil
}
