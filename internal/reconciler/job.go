package reconciler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/harborops/fulfillment-backend/internal/inventory"
	"github.com/harborops/fulfillment-backend/internal/staging"
	"github.com/harborops/fulfillment-backend/pkg/config"
	"github.com/harborops/fulfillment-backend/pkg/db"
	"github.com/harborops/fulfillment-backend/pkg/db/models"
	"github.com/harborops/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/harborops/fulfillment-backend/pkg/errors"
	"github.com/harborops/fulfillment-backend/pkg/logger"
	"github.com/harborops/fulfillment-backend/pkg/shipstation"
)

// PlatformReader is the read-only slice of the platform client the
// reconciler needs.
type PlatformReader interface {
	ListOrdersModifiedSince(ctx context.Context, since time.Time) ([]shipstation.Order, error)
	ListShipmentsSince(ctx context.Context, since time.Time) ([]shipstation.Shipment, error)
}

// JobParams configure the status reconciler.
type JobParams struct {
	DB         *db.Client
	Orders     staging.Repository
	History    HistoryStore
	Watermarks WatermarkStore
	Ledger     *inventory.Ledger
	Client     PlatformReader
	Logger     *logger.Logger
	Workflows  config.WorkflowsConfig
}

// Job polls the platform for order and shipment changes, mirrors them onto
// staged orders, and writes the shipped history when orders go terminal.
type Job struct {
	dbc        *db.Client
	orders     staging.Repository
	history    HistoryStore
	watermarks WatermarkStore
	ledger     *inventory.Ledger
	client     PlatformReader
	logg       *logger.Logger
	lookback   time.Duration
	interval   time.Duration
}

// NewJob builds the status reconciler job.
func NewJob(params JobParams) (*Job, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("staging repository required")
	}
	if params.History == nil {
		return nil, fmt.Errorf("history store required")
	}
	if params.Watermarks == nil {
		return nil, fmt.Errorf("watermark store required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if params.Client == nil {
		return nil, fmt.Errorf("platform client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}

	lookback := params.Workflows.ReconcileLookback
	if lookback <= 0 {
		lookback = 14 * 24 * time.Hour
	}
	return &Job{
		dbc:        params.DB,
		orders:     params.Orders,
		history:    params.History,
		watermarks: params.Watermarks,
		ledger:     params.Ledger,
		client:     params.Client,
		logg:       params.Logger,
		lookback:   lookback,
		interval:   params.Workflows.ReconcileInterval,
	}, nil
}

func (j *Job) Name() string { return enums.WorkflowShipmentSync }

func (j *Job) Interval() time.Duration { return j.interval }

// Run executes one reconciliation pass. Any unrecoverable error aborts the
// whole run before the watermark moves, so the next run re-covers the same
// window; the unique keys on shipped history make the overlap harmless.
func (j *Job) Run(ctx context.Context) error {
	runStart := time.Now().UTC()

	watermark, err := j.watermarks.Get(ctx, j.Name())
	if err != nil {
		return err
	}
	since := watermark.Add(-j.lookback)
	if watermark.IsZero() {
		since = runStart.Add(-j.lookback)
	}

	if err := j.reconcileOrderStatuses(ctx, since); err != nil {
		return err
	}
	if err := j.reconcileShipments(ctx, since); err != nil {
		return err
	}

	return j.watermarks.Advance(ctx, j.Name(), runStart)
}

func (j *Job) reconcileOrderStatuses(ctx context.Context, since time.Time) error {
	platformOrders, err := j.client.ListOrdersModifiedSince(ctx, since)
	if err != nil {
		return err
	}

	for _, platformOrder := range platformOrders {
		status, ok := mapPlatformStatus(platformOrder.OrderStatus)
		if !ok || status == enums.StagedOrderStatusShipped {
			// Shipped orders are settled from the shipments pass, where
			// tracking data lives.
			continue
		}

		staged, err := j.orders.GetByOrderNumber(ctx, platformOrder.OrderNumber)
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
				continue
			}
			return err
		}
		if staged.Status == status || staged.Historical {
			continue
		}

		err = j.orders.UpdateShipmentState(ctx, staging.ShipmentStateUpdate{
			ID:         staged.ID,
			Status:     status,
			Historical: status == enums.StagedOrderStatusCancelled,
		})
		if err != nil {
			return err
		}
		orderCtx := j.logg.WithOrderNumber(ctx, staged.OrderNumber)
		j.logg.Info(j.logg.WithField(orderCtx, "status", string(status)), "order status reconciled")
	}
	return nil
}

func (j *Job) reconcileShipments(ctx context.Context, since time.Time) error {
	shipments, err := j.client.ListShipmentsSince(ctx, since)
	if err != nil {
		return err
	}

	for _, shipment := range shipments {
		if shipment.Voided {
			continue
		}
		if err := j.settleShipment(ctx, shipment); err != nil {
			return fmt.Errorf("shipment for order %s: %w", shipment.OrderNumber, err)
		}
	}
	return nil
}

// settleShipment marks one staged order shipped and writes its history rows
// in a single transaction.
func (j *Job) settleShipment(ctx context.Context, shipment shipstation.Shipment) error {
	staged, err := j.orders.GetByOrderNumber(ctx, shipment.OrderNumber)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			// Orders created directly on the platform have no staged row.
			return nil
		}
		return err
	}
	if staged.Historical || staged.Status == enums.StagedOrderStatusSyncedManual {
		return nil
	}

	shipDate, err := shipment.ShipDateTime()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unparseable ship date")
	}

	return j.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		txOrders := j.orders.WithTx(tx)
		txHistory := j.history.WithTx(tx)
		txLedger := j.ledger.WithTx(tx)

		err := txOrders.UpdateShipmentState(ctx, staging.ShipmentStateUpdate{
			ID:             staged.ID,
			Status:         enums.StagedOrderStatusShipped,
			Carrier:        &shipment.CarrierCode,
			ServiceCode:    &shipment.ServiceCode,
			TrackingNumber: &shipment.TrackingNumber,
			ShipDate:       &shipDate,
			Historical:     true,
		})
		if err != nil {
			return err
		}

		shipped := models.ShippedOrder{
			OrderNumber:     staged.OrderNumber,
			PlatformOrderID: strconv.FormatInt(shipment.OrderID, 10),
			Carrier:         shipment.CarrierCode,
			ServiceCode:     shipment.ServiceCode,
			TrackingNumber:  shipment.TrackingNumber,
			TotalCents:      staged.TotalCents,
			ShipDate:        shipDate,
		}
		if shipment.ShipTo != nil {
			shipped.DestinationState = shipment.ShipTo.State
			shipped.DestinationCountry = shipment.ShipTo.Country
		}
		if err := txHistory.UpsertShippedOrder(ctx, &shipped); err != nil {
			return err
		}

		items := make([]models.ShippedItem, 0, len(staged.Items))
		for _, item := range staged.Items {
			lot := ""
			if item.SKULot != nil {
				lot = *item.SKULot
			}
			items = append(items, models.ShippedItem{
				OrderNumber: staged.OrderNumber,
				BaseSKU:     item.SKU,
				SKULot:      lot,
				Qty:         item.Qty,
				ShipDate:    shipDate,
			})
		}
		if err := txHistory.UpsertShippedItems(ctx, items); err != nil {
			return err
		}

		for _, item := range items {
			if item.SKULot == "" {
				continue
			}
			if err := txLedger.SettleAfterShipment(ctx, item.BaseSKU, item.SKULot); err != nil {
				return err
			}
		}

		orderCtx := j.logg.WithOrderNumber(ctx, staged.OrderNumber)
		j.logg.Info(j.logg.WithField(orderCtx, "tracking", shipment.TrackingNumber), "order shipped")
		return nil
	})
}

func mapPlatformStatus(raw string) (enums.StagedOrderStatus, bool) {
	switch raw {
	case "awaiting_shipment":
		return enums.StagedOrderStatusAwaitingShipment, true
	case "awaiting_payment":
		return enums.StagedOrderStatusAwaitingPayment, true
	case "on_hold":
		return enums.StagedOrderStatusOnHold, true
	case "cancelled":
		return enums.StagedOrderStatusCancelled, true
	case "shipped":
		return enums.StagedOrderStatusShipped, true
	default:
		return "", false
	}
}
