package staging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/harborops/fulfillment-backend/pkg/db"
	"github.com/harborops/fulfillment-backend/pkg/db/models"
	"github.com/harborops/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/harborops/fulfillment-backend/pkg/errors"
	"github.com/harborops/fulfillment-backend/pkg/pagination"
)

// Repository persists staged orders between feed import and shipment.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.StagedOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.StagedOrder, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*models.StagedOrder, error)
	List(ctx context.Context, filter ListFilter) ([]models.StagedOrder, string, error)
	CountByStatus(ctx context.Context) (map[enums.StagedOrderStatus]int64, error)
	ClaimPendingBatch(ctx context.Context, limit int, claimedBy string) ([]models.StagedOrder, error)
	MarkUploaded(ctx context.Context, id uuid.UUID, platformOrderID string, status enums.StagedOrderStatus) error
	StampItemLot(ctx context.Context, itemID uuid.UUID, lot string) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	ReleaseClaim(ctx context.Context, id uuid.UUID) error
	UpdateShipmentState(ctx context.Context, update ShipmentStateUpdate) error
	PurgeHistorical(ctx context.Context, olderThan time.Time) (int64, error)
}

// ListFilter narrows the staged order listing.
type ListFilter struct {
	Status     *enums.StagedOrderStatus
	Flagged    *bool
	Historical *bool
	Page       pagination.Params
}

// ShipmentStateUpdate carries the reconciler's per-order changes.
type ShipmentStateUpdate struct {
	ID             uuid.UUID
	Status         enums.StagedOrderStatus
	Carrier        *string
	ServiceCode    *string
	TrackingNumber *string
	ShipDate       *time.Time
	Historical     bool
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds the staged order repository.
func NewRepository(conn *gorm.DB) (Repository, error) {
	if conn == nil {
		return nil, fmt.Errorf("db required")
	}
	return &repository{db: conn}, nil
}

// WithTx returns a repository bound to the given transaction.
func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.StagedOrder) error {
	if order == nil {
		return fmt.Errorf("order required")
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.Items {
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
		order.Items[i].StagedOrderID = order.ID
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, fmt.Sprintf("order %s already staged", order.OrderNumber))
		}
		return fmt.Errorf("creating staged order %s: %w", order.OrderNumber, err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.StagedOrder, error) {
	var order models.StagedOrder
	err := r.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "staged order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("loading staged order: %w", err)
	}
	return &order, nil
}

func (r *repository) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.StagedOrder, error) {
	var order models.StagedOrder
	err := r.db.WithContext(ctx).Preload("Items").First(&order, "order_number = ?", orderNumber).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "staged order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("loading staged order %s: %w", orderNumber, err)
	}
	return &order, nil
}

// List returns a page of staged orders newest first plus the cursor for the
// next page, empty when the listing is exhausted.
func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.StagedOrder, string, error) {
	limit := pagination.NormalizeLimit(filter.Page.Limit)

	query := r.db.WithContext(ctx).Model(&models.StagedOrder{}).Preload("Items")
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Flagged != nil {
		query = query.Where("is_flagged = ?", *filter.Flagged)
	}
	if filter.Historical != nil {
		query = query.Where("historical = ?", *filter.Historical)
	}

	cursor, err := pagination.ParseCursor(filter.Page.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var orders []models.StagedOrder
	err = query.Order("created_at DESC, id DESC").Limit(limit + 1).Find(&orders).Error
	if err != nil {
		return nil, "", fmt.Errorf("listing staged orders: %w", err)
	}

	next := ""
	if len(orders) > limit {
		orders = orders[:limit]
		last := orders[len(orders)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return orders, next, nil
}

func (r *repository) CountByStatus(ctx context.Context) (map[enums.StagedOrderStatus]int64, error) {
	type row struct {
		Status enums.StagedOrderStatus
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&models.StagedOrder{}).
		Select("status, COUNT(*) AS count").
		Where("historical = ?", false).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("counting staged orders: %w", err)
	}

	counts := make(map[enums.StagedOrderStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// ClaimPendingBatch locks and claims up to limit pending orders in one
// transaction. SKIP LOCKED keeps concurrent dispatcher runs from blocking on
// or double-claiming each other's rows.
func (r *repository) ClaimPendingBatch(ctx context.Context, limit int, claimedBy string) ([]models.StagedOrder, error) {
	if limit <= 0 {
		return nil, nil
	}

	var claimed []models.StagedOrder
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx
		// sqlite has no row locks and a single writer; the clause only
		// exists on postgres.
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}

		var rows []models.StagedOrder
		err := query.
			Where("status = ? AND platform_order_id IS NULL", enums.StagedOrderStatusPending).
			Order("created_at ASC").
			Limit(limit).
			Find(&rows).Error
		if err != nil {
			return fmt.Errorf("locking pending orders: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}

		now := time.Now().UTC()
		ids := make([]uuid.UUID, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
		}
		err = tx.Model(&models.StagedOrder{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"status":     enums.StagedOrderStatusUploading,
				"claimed_at": now,
				"claimed_by": claimedBy,
			}).Error
		if err != nil {
			return fmt.Errorf("stamping claim: %w", err)
		}

		if err := tx.Preload("Items").Where("id IN ?", ids).Order("created_at ASC").Find(&claimed).Error; err != nil {
			return fmt.Errorf("reloading claimed orders: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *repository) MarkUploaded(ctx context.Context, id uuid.UUID, platformOrderID string, status enums.StagedOrderStatus) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&models.StagedOrder{}).
		Where("id = ? AND status = ?", id, enums.StagedOrderStatusUploading).
		Updates(map[string]any{
			"status":            status,
			"platform_order_id": platformOrderID,
			"uploaded_at":       now,
			"failure_reason":    nil,
			"claimed_at":        nil,
			"claimed_by":        nil,
		})
	if result.Error != nil {
		return fmt.Errorf("marking order uploaded: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not in an uploading state")
	}
	return nil
}

// StampItemLot records the lot a line item was uploaded under.
func (r *repository) StampItemLot(ctx context.Context, itemID uuid.UUID, lot string) error {
	result := r.db.WithContext(ctx).Model(&models.StagedOrderItem{}).
		Where("id = ?", itemID).
		Update("sku_lot", lot)
	if result.Error != nil {
		return fmt.Errorf("stamping item lot: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "staged order item not found")
	}
	return nil
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	result := r.db.WithContext(ctx).Model(&models.StagedOrder{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":         enums.StagedOrderStatusFailed,
			"failure_reason": reason,
			"claimed_at":     nil,
			"claimed_by":     nil,
		})
	if result.Error != nil {
		return fmt.Errorf("marking order failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "staged order not found")
	}
	return nil
}

// ReleaseClaim puts a claimed order back to pending so the next cycle can
// retry it after a transient platform failure.
func (r *repository) ReleaseClaim(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&models.StagedOrder{}).
		Where("id = ? AND status = ?", id, enums.StagedOrderStatusUploading).
		Updates(map[string]any{
			"status":     enums.StagedOrderStatusPending,
			"claimed_at": nil,
			"claimed_by": nil,
		})
	if result.Error != nil {
		return fmt.Errorf("releasing claim: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not in an uploading state")
	}
	return nil
}

// UpdateShipmentState applies reconciler changes. Orders marked synced_manual
// were corrected by an operator and are never touched again.
func (r *repository) UpdateShipmentState(ctx context.Context, update ShipmentStateUpdate) error {
	changes := map[string]any{
		"status":     update.Status,
		"historical": update.Historical,
	}
	if update.Carrier != nil {
		changes["carrier"] = *update.Carrier
	}
	if update.ServiceCode != nil {
		changes["service_code"] = *update.ServiceCode
	}
	if update.TrackingNumber != nil {
		changes["tracking_number"] = *update.TrackingNumber
	}
	if update.ShipDate != nil {
		changes["ship_date"] = *update.ShipDate
	}

	result := r.db.WithContext(ctx).Model(&models.StagedOrder{}).
		Where("id = ? AND status <> ?", update.ID, enums.StagedOrderStatusSyncedManual).
		Updates(changes)
	if result.Error != nil {
		return fmt.Errorf("updating shipment state: %w", result.Error)
	}
	return nil
}

// PurgeHistorical deletes historical orders older than the cutoff. Line items
// cascade with their order.
func (r *repository) PurgeHistorical(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("historical = ? AND updated_at < ?", true, olderThan).
		Delete(&models.StagedOrder{})
	if result.Error != nil {
		return 0, fmt.Errorf("purging historical orders: %w", result.Error)
	}
	return result.RowsAffected, nil
}
