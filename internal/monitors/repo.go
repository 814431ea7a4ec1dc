package monitors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harborops/fulfillment-backend/pkg/db/models"
	"github.com/harborops/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/harborops/fulfillment-backend/pkg/errors"
)

// AlertStore persists duplicate order alerts and their exclusion list.
type AlertStore interface {
	GetActive(ctx context.Context, orderNumber, baseSKU string) (*models.DuplicateOrderAlert, error)
	Create(ctx context.Context, alert *models.DuplicateOrderAlert) error
	Refresh(ctx context.Context, id uuid.UUID, duplicateCount int, platformIDs []string, seenAt time.Time) error
	Resolve(ctx context.Context, id uuid.UUID, status enums.AlertStatus) error
	List(ctx context.Context, status *enums.AlertStatus) ([]models.DuplicateOrderAlert, error)
	ListExclusions(ctx context.Context) ([]models.DuplicateOrderExclusion, error)
	CreateExclusion(ctx context.Context, exclusion *models.DuplicateOrderExclusion) error
}

// ViolationStore persists shipping rule violations.
type ViolationStore interface {
	Upsert(ctx context.Context, violation *models.ShippingViolation) error
	Resolve(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, resolved *bool) ([]models.ShippingViolation, error)
}

type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository builds the duplicate alert store.
func NewAlertRepository(db *gorm.DB) (AlertStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db connection required")
	}
	return &alertRepository{db: db}, nil
}

func (r *alertRepository) GetActive(ctx context.Context, orderNumber, baseSKU string) (*models.DuplicateOrderAlert, error) {
	var alert models.DuplicateOrderAlert
	err := r.db.WithContext(ctx).
		Where("order_number = ? AND base_sku = ? AND status = ?", orderNumber, baseSKU, enums.AlertStatusActive).
		First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active alert")
	}
	if err != nil {
		return nil, fmt.Errorf("loading duplicate alert: %w", err)
	}
	return &alert, nil
}

func (r *alertRepository) Create(ctx context.Context, alert *models.DuplicateOrderAlert) error {
	if alert == nil {
		return fmt.Errorf("alert required")
	}
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	if alert.Status == "" {
		alert.Status = enums.AlertStatusActive
	}
	if err := r.db.WithContext(ctx).Create(alert).Error; err != nil {
		return fmt.Errorf("creating duplicate alert: %w", err)
	}
	return nil
}

func (r *alertRepository) Refresh(ctx context.Context, id uuid.UUID, duplicateCount int, platformIDs []string, seenAt time.Time) error {
	// Struct update so PlatformIDs rides through the json serializer.
	result := r.db.WithContext(ctx).Model(&models.DuplicateOrderAlert{}).
		Where("id = ? AND status = ?", id, enums.AlertStatusActive).
		Updates(models.DuplicateOrderAlert{
			DuplicateCount: duplicateCount,
			PlatformIDs:    platformIDs,
			LastSeenAt:     seenAt,
		})
	if result.Error != nil {
		return fmt.Errorf("refreshing duplicate alert: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "alert is not active")
	}
	return nil
}

func (r *alertRepository) Resolve(ctx context.Context, id uuid.UUID, status enums.AlertStatus) error {
	if status != enums.AlertStatusResolved && status != enums.AlertStatusIgnored {
		return pkgerrors.New(pkgerrors.CodeValidation, "resolution status must be resolved or ignored")
	}
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&models.DuplicateOrderAlert{}).
		Where("id = ? AND status = ?", id, enums.AlertStatusActive).
		Updates(map[string]any{
			"status":      status,
			"resolved_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("resolving duplicate alert: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no active alert to resolve")
	}
	return nil
}

func (r *alertRepository) List(ctx context.Context, status *enums.AlertStatus) ([]models.DuplicateOrderAlert, error) {
	query := r.db.WithContext(ctx).Model(&models.DuplicateOrderAlert{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var alerts []models.DuplicateOrderAlert
	if err := query.Order("last_seen_at DESC").Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("listing duplicate alerts: %w", err)
	}
	return alerts, nil
}

func (r *alertRepository) ListExclusions(ctx context.Context) ([]models.DuplicateOrderExclusion, error) {
	var exclusions []models.DuplicateOrderExclusion
	if err := r.db.WithContext(ctx).Find(&exclusions).Error; err != nil {
		return nil, fmt.Errorf("listing exclusions: %w", err)
	}
	return exclusions, nil
}

func (r *alertRepository) CreateExclusion(ctx context.Context, exclusion *models.DuplicateOrderExclusion) error {
	if exclusion == nil {
		return fmt.Errorf("exclusion required")
	}
	if exclusion.ID == uuid.Nil {
		exclusion.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(exclusion).Error; err != nil {
		return fmt.Errorf("creating exclusion: %w", err)
	}
	return nil
}

type violationRepository struct {
	db *gorm.DB
}

// NewViolationRepository builds the shipping violation store.
func NewViolationRepository(db *gorm.DB) (ViolationStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db connection required")
	}
	return &violationRepository{db: db}, nil
}

// Upsert records a violation, updating the observed value when the same
// order already carries the same violation type. Resolved rows stay
// resolved: the monitor observes, the operator decides.
func (r *violationRepository) Upsert(ctx context.Context, violation *models.ShippingViolation) error {
	if violation == nil {
		return fmt.Errorf("violation required")
	}

	var existing models.ShippingViolation
	err := r.db.WithContext(ctx).
		Where("order_number = ? AND violation_type = ?", violation.OrderNumber, violation.ViolationType).
		First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if violation.ID == uuid.Nil {
			violation.ID = uuid.New()
		}
		if err := r.db.WithContext(ctx).Create(violation).Error; err != nil {
			return fmt.Errorf("creating violation: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("loading violation: %w", err)
	case existing.Resolved:
		return nil
	default:
		err := r.db.WithContext(ctx).Model(&existing).Updates(map[string]any{
			"expected_value": violation.ExpectedValue,
			"actual_value":   violation.ActualValue,
		}).Error
		if err != nil {
			return fmt.Errorf("updating violation: %w", err)
		}
		return nil
	}
}

func (r *violationRepository) Resolve(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&models.ShippingViolation{}).
		Where("id = ? AND resolved = ?", id, false).
		Updates(map[string]any{
			"resolved":    true,
			"resolved_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("resolving violation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no open violation to resolve")
	}
	return nil
}

func (r *violationRepository) List(ctx context.Context, resolved *bool) ([]models.ShippingViolation, error) {
	query := r.db.WithContext(ctx).Model(&models.ShippingViolation{})
	if resolved != nil {
		query = query.Where("resolved = ?", *resolved)
	}
	var violations []models.ShippingViolation
	if err := query.Order("created_at DESC").Find(&violations).Error; err != nil {
		return nil, fmt.Errorf("listing violations: %w", err)
	}
	return violations, nil
}
