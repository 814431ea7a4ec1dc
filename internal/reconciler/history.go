package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/harborops/fulfillment-backend/pkg/db/models"
)

// HistoryStore writes the immutable shipped record. All writes are upserts so
// re-scanning an overlapping window is harmless.
type HistoryStore interface {
	WithTx(tx *gorm.DB) HistoryStore
	UpsertShippedOrder(ctx context.Context, order *models.ShippedOrder) error
	UpsertShippedItems(ctx context.Context, items []models.ShippedItem) error
	ListShippedItemsBetween(ctx context.Context, start, end time.Time) ([]models.ShippedItem, error)
	ListShippedOrdersBetween(ctx context.Context, start, end time.Time) ([]models.ShippedOrder, error)
}

type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository builds the shipped history store.
func NewHistoryRepository(db *gorm.DB) (HistoryStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	return &historyRepository{db: db}, nil
}

func (r *historyRepository) WithTx(tx *gorm.DB) HistoryStore {
	if tx == nil {
		return r
	}
	return &historyRepository{db: tx}
}

func (r *historyRepository) UpsertShippedOrder(ctx context.Context, order *models.ShippedOrder) error {
	if order == nil {
		return fmt.Errorf("order required")
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "order_number"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"platform_order_id", "carrier", "service_code", "tracking_number",
				"destination_state", "destination_country", "ship_date",
			}),
		}).
		Create(order).Error
	if err != nil {
		return fmt.Errorf("upserting shipped order %s: %w", order.OrderNumber, err)
	}
	return nil
}

// UpsertShippedItems writes item attributions keyed by (order_number,
// base_sku, sku_lot). Conflicts update quantity instead of erroring, which is
// what makes reconciliation retries idempotent.
func (r *historyRepository) UpsertShippedItems(ctx context.Context, items []models.ShippedItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "order_number"}, {Name: "base_sku"}, {Name: "sku_lot"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"qty", "ship_date"}),
		}).
		Create(&items).Error
	if err != nil {
		return fmt.Errorf("upserting shipped items: %w", err)
	}
	return nil
}

func (r *historyRepository) ListShippedItemsBetween(ctx context.Context, start, end time.Time) ([]models.ShippedItem, error) {
	var items []models.ShippedItem
	err := r.db.WithContext(ctx).
		Where("ship_date >= ? AND ship_date < ?", start, end).
		Order("ship_date ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("listing shipped items: %w", err)
	}
	return items, nil
}

func (r *historyRepository) ListShippedOrdersBetween(ctx context.Context, start, end time.Time) ([]models.ShippedOrder, error) {
	var orders []models.ShippedOrder
	err := r.db.WithContext(ctx).
		Where("ship_date >= ? AND ship_date < ?", start, end).
		Order("ship_date ASC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("listing shipped orders: %w", err)
	}
	return orders, nil
}
