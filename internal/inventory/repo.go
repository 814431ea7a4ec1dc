package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harborops/fulfillment-backend/pkg/db"
	"github.com/harborops/fulfillment-backend/pkg/db/models"
	"github.com/harborops/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/harborops/fulfillment-backend/pkg/errors"
)

// Repository persists the lot ledger: assignments, balances, and the
// append-only transaction log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ActiveLots(ctx context.Context, skus []string) (map[string]string, error)
	SetActiveLot(ctx context.Context, sku, lot string) error
	ClearActiveLot(ctx context.Context, sku string) error
	GetBalance(ctx context.Context, sku, lot string) (*models.LotBalance, error)
	ListBalances(ctx context.Context, sku string) ([]models.LotBalance, error)
	CreateBalance(ctx context.Context, balance *models.LotBalance) error
	AddManualAdjustment(ctx context.Context, sku, lot string, delta int) error
	SetBalanceStatus(ctx context.Context, sku, lot string, status enums.LotStatus) error
	AppendTransaction(ctx context.Context, txn *models.InventoryTransaction) error
	ListTransactions(ctx context.Context, sku, lot string) ([]models.InventoryTransaction, error)
	ShippedSince(ctx context.Context, sku, lot string, since time.Time) (int, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds the lot ledger repository.
func NewRepository(conn *gorm.DB) (Repository, error) {
	if conn == nil {
		return nil, fmt.Errorf("db required")
	}
	return &repository{db: conn}, nil
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// ActiveLots resolves the active lot per sku for the given set. SKUs without
// an active assignment are absent from the result.
func (r *repository) ActiveLots(ctx context.Context, skus []string) (map[string]string, error) {
	if len(skus) == 0 {
		return map[string]string{}, nil
	}

	var rows []models.LotAssignment
	err := r.db.WithContext(ctx).
		Where("sku IN ? AND active = ?", skus, true).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading active lot assignments: %w", err)
	}

	lots := make(map[string]string, len(rows))
	for _, row := range rows {
		lots[row.SKU] = row.Lot
	}
	return lots, nil
}

// SetActiveLot makes lot the single active assignment for sku, creating the
// assignment row if it does not exist yet.
func (r *repository) SetActiveLot(ctx context.Context, sku, lot string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.LotAssignment{}).
			Where("sku = ? AND active = ?", sku, true).
			Update("active", false).Error
		if err != nil {
			return fmt.Errorf("deactivating lots for %s: %w", sku, err)
		}

		result := tx.Model(&models.LotAssignment{}).
			Where("sku = ? AND lot = ?", sku, lot).
			Update("active", true)
		if result.Error != nil {
			return fmt.Errorf("activating lot %s/%s: %w", sku, lot, result.Error)
		}
		if result.RowsAffected == 0 {
			assignment := models.LotAssignment{ID: uuid.New(), SKU: sku, Lot: lot, Active: true}
			if err := tx.Create(&assignment).Error; err != nil {
				return fmt.Errorf("creating lot assignment %s/%s: %w", sku, lot, err)
			}
		}
		return nil
	})
}

// ClearActiveLot removes the active assignment for a sku entirely. The
// dispatcher fails orders for skus with no active lot.
func (r *repository) ClearActiveLot(ctx context.Context, sku string) error {
	err := r.db.WithContext(ctx).Model(&models.LotAssignment{}).
		Where("sku = ? AND active = ?", sku, true).
		Update("active", false).Error
	if err != nil {
		return fmt.Errorf("clearing active lot for %s: %w", sku, err)
	}
	return nil
}

func (r *repository) GetBalance(ctx context.Context, sku, lot string) (*models.LotBalance, error) {
	var balance models.LotBalance
	err := r.db.WithContext(ctx).First(&balance, "sku = ? AND lot = ?", sku, lot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no balance for %s/%s", sku, lot))
	}
	if err != nil {
		return nil, fmt.Errorf("loading balance %s/%s: %w", sku, lot, err)
	}
	return &balance, nil
}

// ListBalances returns balances for a sku oldest receipt first, or all
// balances when sku is empty.
func (r *repository) ListBalances(ctx context.Context, sku string) ([]models.LotBalance, error) {
	query := r.db.WithContext(ctx).Order("received_date ASC, lot ASC")
	if sku != "" {
		query = query.Where("sku = ?", sku)
	}
	var balances []models.LotBalance
	if err := query.Find(&balances).Error; err != nil {
		return nil, fmt.Errorf("listing balances: %w", err)
	}
	return balances, nil
}

func (r *repository) CreateBalance(ctx context.Context, balance *models.LotBalance) error {
	if balance == nil {
		return fmt.Errorf("balance required")
	}
	if balance.ID == uuid.Nil {
		balance.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(balance).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err,
				fmt.Sprintf("lot %s/%s already received", balance.SKU, balance.Lot))
		}
		return fmt.Errorf("creating balance %s/%s: %w", balance.SKU, balance.Lot, err)
	}
	return nil
}

func (r *repository) AddManualAdjustment(ctx context.Context, sku, lot string, delta int) error {
	result := r.db.WithContext(ctx).Model(&models.LotBalance{}).
		Where("sku = ? AND lot = ?", sku, lot).
		Update("manual_adjustment", gorm.Expr("manual_adjustment + ?", delta))
	if result.Error != nil {
		return fmt.Errorf("adjusting balance %s/%s: %w", sku, lot, result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no balance for %s/%s", sku, lot))
	}
	return nil
}

func (r *repository) SetBalanceStatus(ctx context.Context, sku, lot string, status enums.LotStatus) error {
	result := r.db.WithContext(ctx).Model(&models.LotBalance{}).
		Where("sku = ? AND lot = ?", sku, lot).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("updating lot status %s/%s: %w", sku, lot, result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no balance for %s/%s", sku, lot))
	}
	return nil
}

func (r *repository) AppendTransaction(ctx context.Context, txn *models.InventoryTransaction) error {
	if txn == nil {
		return fmt.Errorf("transaction required")
	}
	if !txn.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction type %q", txn.Type))
	}
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		return fmt.Errorf("appending inventory transaction: %w", err)
	}
	return nil
}

func (r *repository) ListTransactions(ctx context.Context, sku, lot string) ([]models.InventoryTransaction, error) {
	query := r.db.WithContext(ctx).Order("created_at ASC, id ASC")
	if sku != "" {
		query = query.Where("sku = ?", sku)
	}
	if lot != "" {
		query = query.Where("lot = ?", lot)
	}
	var txns []models.InventoryTransaction
	if err := query.Find(&txns).Error; err != nil {
		return nil, fmt.Errorf("listing inventory transactions: %w", err)
	}
	return txns, nil
}

// ShippedSince sums shipped quantity attributed to (sku, lot) on or after the
// given date.
func (r *repository) ShippedSince(ctx context.Context, sku, lot string, since time.Time) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.ShippedItem{}).
		Select("COALESCE(SUM(qty), 0)").
		Where("base_sku = ? AND sku_lot = ? AND ship_date >= ?", sku, lot, since).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("summing shipped qty %s/%s: %w", sku, lot, err)
	}
	return int(total), nil
}
