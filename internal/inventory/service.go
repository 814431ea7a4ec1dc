package inventory

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/harborops/fulfillment-backend/pkg/db/models"
	"github.com/harborops/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/harborops/fulfillment-backend/pkg/errors"
	"github.com/harborops/fulfillment-backend/pkg/logger"
)

// LedgerParams configure the lot ledger service.
type LedgerParams struct {
	Repo   Repository
	Logger *logger.Logger
}

// Ledger owns lot arithmetic: receipts, adjustments, repacks, derived
// balances, and active lot rotation.
type Ledger struct {
	repo Repository
	logg *logger.Logger
}

// NewLedger builds the lot ledger service.
func NewLedger(params LedgerParams) (*Ledger, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Ledger{repo: params.Repo, logg: params.Logger}, nil
}

// WithTx returns a ledger bound to the given transaction.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	if tx == nil {
		return l
	}
	return &Ledger{repo: l.repo.WithTx(tx), logg: l.logg}
}

// Receive records a new lot arriving. The first lot for a sku becomes active
// immediately; later lots wait as pending until rotation reaches them.
func (l *Ledger) Receive(ctx context.Context, sku, lot string, qty int, receivedDate time.Time, note string) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "receive quantity must be positive")
	}

	active, err := l.repo.ActiveLots(ctx, []string{sku})
	if err != nil {
		return err
	}
	status := enums.LotStatusPending
	if _, ok := active[sku]; !ok {
		status = enums.LotStatusActive
	}

	balance := models.LotBalance{
		SKU:          sku,
		Lot:          lot,
		InitialQty:   qty,
		ReceivedDate: receivedDate,
		Status:       status,
	}
	if err := l.repo.CreateBalance(ctx, &balance); err != nil {
		return err
	}

	txn := models.InventoryTransaction{
		SKU:      sku,
		Lot:      lot,
		Type:     enums.InventoryTransactionReceive,
		QtyDelta: qty,
	}
	if note != "" {
		txn.Note = &note
	}
	if err := l.repo.AppendTransaction(ctx, &txn); err != nil {
		return err
	}

	if status == enums.LotStatusActive {
		if err := l.repo.SetActiveLot(ctx, sku, lot); err != nil {
			return err
		}
	}
	return nil
}

// Adjust applies a signed manual correction. An adjustment that would leave
// the lot with a negative derived balance is rejected.
func (l *Ledger) Adjust(ctx context.Context, sku, lot string, delta int, note string) error {
	if delta == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "adjustment delta must be non-zero")
	}

	current, err := l.CurrentBalance(ctx, sku, lot)
	if err != nil {
		return err
	}
	if current+delta < 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("adjustment would leave %s/%s at %d", sku, lot, current+delta))
	}

	if err := l.repo.AddManualAdjustment(ctx, sku, lot, delta); err != nil {
		return err
	}

	txnType := enums.InventoryTransactionAdjustUp
	if delta < 0 {
		txnType = enums.InventoryTransactionAdjustDown
	}
	txn := models.InventoryTransaction{SKU: sku, Lot: lot, Type: txnType, QtyDelta: delta}
	if note != "" {
		txn.Note = &note
	}
	return l.repo.AppendTransaction(ctx, &txn)
}

// Repack moves quantity between two lots of the same sku, recording a paired
// set of repack transactions.
func (l *Ledger) Repack(ctx context.Context, sku, fromLot, toLot string, qty int, note string) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "repack quantity must be positive")
	}
	if fromLot == toLot {
		return pkgerrors.New(pkgerrors.CodeValidation, "repack lots must differ")
	}

	fromBalance, err := l.CurrentBalance(ctx, sku, fromLot)
	if err != nil {
		return err
	}
	if fromBalance < qty {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("repack of %d exceeds %s/%s balance %d", qty, sku, fromLot, fromBalance))
	}
	if _, err := l.repo.GetBalance(ctx, sku, toLot); err != nil {
		return err
	}

	if err := l.repo.AddManualAdjustment(ctx, sku, fromLot, -qty); err != nil {
		return err
	}
	if err := l.repo.AddManualAdjustment(ctx, sku, toLot, qty); err != nil {
		return err
	}

	for _, entry := range []struct {
		lot   string
		delta int
	}{{fromLot, -qty}, {toLot, qty}} {
		txn := models.InventoryTransaction{
			SKU:      sku,
			Lot:      entry.lot,
			Type:     enums.InventoryTransactionRepack,
			QtyDelta: entry.delta,
		}
		if note != "" {
			txn.Note = &note
		}
		if err := l.repo.AppendTransaction(ctx, &txn); err != nil {
			return err
		}
	}
	return nil
}

// CurrentBalance derives the on-hand quantity for a lot: initial receipt plus
// manual adjustments minus shipments attributed to it since it arrived.
func (l *Ledger) CurrentBalance(ctx context.Context, sku, lot string) (int, error) {
	balance, err := l.repo.GetBalance(ctx, sku, lot)
	if err != nil {
		return 0, err
	}
	shipped, err := l.repo.ShippedSince(ctx, sku, lot, balance.ReceivedDate)
	if err != nil {
		return 0, err
	}
	return balance.InitialQty + balance.ManualAdjustment - shipped, nil
}

// RecomputeFromLog rebuilds the balance from the transaction log plus
// shipment history, independent of the balance row's quantities. The two
// derivations must agree; a mismatch means ledger drift.
func (l *Ledger) RecomputeFromLog(ctx context.Context, sku, lot string) (int, error) {
	balance, err := l.repo.GetBalance(ctx, sku, lot)
	if err != nil {
		return 0, err
	}
	txns, err := l.repo.ListTransactions(ctx, sku, lot)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, txn := range txns {
		total += txn.QtyDelta
	}
	shipped, err := l.repo.ShippedSince(ctx, sku, lot, balance.ReceivedDate)
	if err != nil {
		return 0, err
	}
	return total - shipped, nil
}

// AvailableLots returns the non-exhausted lots for a sku with their derived
// balances, oldest receipt first, ready for FIFO depletion.
func (l *Ledger) AvailableLots(ctx context.Context, sku string) ([]LotState, error) {
	balances, err := l.repo.ListBalances(ctx, sku)
	if err != nil {
		return nil, err
	}

	var lots []LotState
	for _, balance := range balances {
		if balance.Status == enums.LotStatusExhausted {
			continue
		}
		current, err := l.CurrentBalance(ctx, sku, balance.Lot)
		if err != nil {
			return nil, err
		}
		lots = append(lots, LotState{Lot: balance.Lot, Available: current, ReceivedDate: balance.ReceivedDate})
	}
	return lots, nil
}

// Level is one dashboard row: a lot balance with its derived quantity.
type Level struct {
	SKU              string          `json:"sku"`
	Lot              string          `json:"lot"`
	Status           enums.LotStatus `json:"status"`
	InitialQty       int             `json:"initial_qty"`
	ManualAdjustment int             `json:"manual_adjustment"`
	Available        int             `json:"available"`
	ReceivedDate     time.Time       `json:"received_date"`
}

// Levels returns the derived balance for every lot, or for one sku when
// given. Oldest receipt first, matching depletion order.
func (l *Ledger) Levels(ctx context.Context, sku string) ([]Level, error) {
	balances, err := l.repo.ListBalances(ctx, sku)
	if err != nil {
		return nil, err
	}

	levels := make([]Level, 0, len(balances))
	for _, balance := range balances {
		shipped, err := l.repo.ShippedSince(ctx, balance.SKU, balance.Lot, balance.ReceivedDate)
		if err != nil {
			return nil, err
		}
		levels = append(levels, Level{
			SKU:              balance.SKU,
			Lot:              balance.Lot,
			Status:           balance.Status,
			InitialQty:       balance.InitialQty,
			ManualAdjustment: balance.ManualAdjustment,
			Available:        balance.InitialQty + balance.ManualAdjustment - shipped,
			ReceivedDate:     balance.ReceivedDate,
		})
	}
	return levels, nil
}

// SettleAfterShipment re-derives the lot's balance once shipments have been
// recorded against it. A negative balance fails the caller's transaction; a
// zero balance exhausts the lot and rotates the next oldest one in.
func (l *Ledger) SettleAfterShipment(ctx context.Context, sku, lot string) error {
	current, err := l.CurrentBalance(ctx, sku, lot)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			// Lots that predate the ledger ship without balance rows.
			return nil
		}
		return err
	}
	if current < 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("shipment drives %s/%s negative (%d)", sku, lot, current))
	}
	if current > 0 {
		return nil
	}

	if err := l.repo.SetBalanceStatus(ctx, sku, lot, enums.LotStatusExhausted); err != nil {
		return err
	}
	l.logg.Info(l.logg.WithFields(ctx, map[string]any{"sku": sku, "lot": lot}), "lot exhausted")
	return l.rotate(ctx, sku, lot)
}

// rotate promotes the next oldest pending lot after the given one runs dry.
func (l *Ledger) rotate(ctx context.Context, sku, exhaustedLot string) error {
	balances, err := l.repo.ListBalances(ctx, sku)
	if err != nil {
		return err
	}
	for _, balance := range balances {
		if balance.Lot == exhaustedLot || balance.Status == enums.LotStatusExhausted {
			continue
		}
		if err := l.repo.SetBalanceStatus(ctx, sku, balance.Lot, enums.LotStatusActive); err != nil {
			return err
		}
		if err := l.repo.SetActiveLot(ctx, sku, balance.Lot); err != nil {
			return err
		}
		next := l.logg.WithFields(ctx, map[string]any{"sku": sku, "lot": balance.Lot})
		l.logg.Info(next, "next lot activated")
		return nil
	}

	// Nothing left to promote; clear the active assignment so the
	// dispatcher fails orders for this sku instead of shipping air.
	if err := l.repo.ClearActiveLot(ctx, sku); err != nil {
		return err
	}
	l.logg.Warn(l.logg.WithSKU(ctx, sku), "no lots remain for sku")
	return nil
}
