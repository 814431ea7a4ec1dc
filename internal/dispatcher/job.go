package dispatcher

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/harborops/fulfillment-backend/internal/inventory"
	"github.com/harborops/fulfillment-backend/internal/staging"
	"github.com/harborops/fulfillment-backend/pkg/config"
	"github.com/harborops/fulfillment-backend/pkg/db/models"
	"github.com/harborops/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/harborops/fulfillment-backend/pkg/errors"
	"github.com/harborops/fulfillment-backend/pkg/instance"
	"github.com/harborops/fulfillment-backend/pkg/logger"
	"github.com/harborops/fulfillment-backend/pkg/shipstation"
)

// Uploader is the slice of the platform client the dispatcher needs.
type Uploader interface {
	Mode() shipstation.Mode
	CreateOrder(ctx context.Context, params shipstation.CreateOrderParams) (*shipstation.Order, error)
}

// JobParams configure the upload dispatcher.
type JobParams struct {
	Orders    staging.Repository
	Inventory inventory.Repository
	Client    Uploader
	Logger    *logger.Logger
	App       config.AppConfig
	Ship      config.ShipStationConfig
	Workflows config.WorkflowsConfig
}

// Job claims pending staged orders, stamps active lots onto their lines, and
// uploads them to the shipping platform.
type Job struct {
	orders    staging.Repository
	inv       inventory.Repository
	client    Uploader
	logg      *logger.Logger
	app       config.AppConfig
	ship      config.ShipStationConfig
	batchSize int
	interval  time.Duration
	claimedBy string
}

// NewJob builds the upload dispatcher job.
func NewJob(params JobParams) (*Job, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("staging repository required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Client == nil {
		return nil, fmt.Errorf("platform client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}

	batchSize := params.Workflows.UploadBatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Job{
		orders:    params.Orders,
		inv:       params.Inventory,
		client:    params.Client,
		logg:      params.Logger,
		app:       params.App,
		ship:      params.Ship,
		batchSize: batchSize,
		interval:  params.Workflows.UploadInterval,
		claimedBy: instance.GetID(),
	}, nil
}

func (j *Job) Name() string { return enums.WorkflowUploadDisp }

func (j *Job) Interval() time.Duration { return j.interval }

// Run claims one batch and processes each order in isolation: a failure on
// one order never blocks the rest of the batch.
func (j *Job) Run(ctx context.Context) error {
	claimed, err := j.orders.ClaimPendingBatch(ctx, j.batchSize, j.claimedBy)
	if err != nil {
		return err
	}
	if len(claimed) == 0 {
		return nil
	}

	if err := j.checkEnvironment(ctx, claimed); err != nil {
		return err
	}

	var errs error
	for _, order := range claimed {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		if err := j.uploadOne(ctx, order); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.OrderNumber, err))
		}
	}
	return errs
}

// checkEnvironment is the dispatcher-side gate. The client carries its own
// mode gate; both must independently allow live uploads before any order
// leaves the building. Outside production the whole batch is released back to
// pending untouched.
func (j *Job) checkEnvironment(ctx context.Context, claimed []models.StagedOrder) error {
	live := j.app.IsProd() && j.ship.LiveUploads && j.client.Mode() == shipstation.ModeLive
	if live {
		return nil
	}

	for _, order := range claimed {
		if err := j.orders.ReleaseClaim(ctx, order.ID); err != nil {
			j.logg.Error(j.logg.WithOrderNumber(ctx, order.OrderNumber), "releasing claim after env block", err)
		}
	}
	j.logg.Warn(ctx, "uploads blocked outside production; batch released")
	return pkgerrors.New(pkgerrors.CodeEnvBlocked, "upload dispatch blocked outside production")
}

func (j *Job) uploadOne(ctx context.Context, order models.StagedOrder) error {
	orderCtx := j.logg.WithOrderNumber(ctx, order.OrderNumber)

	skus := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		skus = append(skus, item.SKU)
	}
	lots, err := j.inv.ActiveLots(orderCtx, skus)
	if err != nil {
		if releaseErr := j.orders.ReleaseClaim(orderCtx, order.ID); releaseErr != nil {
			err = multierr.Append(err, releaseErr)
		}
		return err
	}

	var missing []string
	for _, sku := range skus {
		if lots[sku] == "" {
			missing = append(missing, sku)
		}
	}
	if len(missing) > 0 {
		reason := "no active lot for " + strings.Join(missing, ", ")
		j.logg.Warn(j.logg.WithField(orderCtx, "missing_skus", missing), "order failed lot stamping")
		return j.orders.MarkFailed(orderCtx, order.ID, reason)
	}

	params := shipstation.CreateOrderParams{
		OrderNumber:   order.OrderNumber,
		OrderDate:     order.OrderDate,
		CustomerEmail: order.CustomerEmail,
		AmountCents:   order.TotalCents,
		Items:         make([]shipstation.OrderItem, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		lot := lots[item.SKU]
		params.Items = append(params.Items, shipstation.OrderItem{
			SKU:       item.SKU,
			Name:      fmt.Sprintf("%s - %s", item.SKU, lot),
			Quantity:  item.Qty,
			UnitPrice: float64(item.UnitPriceCents) / 100,
		})
	}

	uploaded, err := j.client.CreateOrder(orderCtx, params)
	if err != nil {
		if pkgerrors.IsRetryable(err) {
			j.logg.Warn(orderCtx, "transient upload failure; order returned to pending")
			if releaseErr := j.orders.ReleaseClaim(orderCtx, order.ID); releaseErr != nil {
				return multierr.Append(err, releaseErr)
			}
			return nil
		}
		j.logg.Error(orderCtx, "order rejected by platform", err)
		return j.orders.MarkFailed(orderCtx, order.ID, trimReason(err.Error()))
	}

	status := enums.StagedOrderStatusUploaded
	if strings.EqualFold(uploaded.OrderStatus, string(enums.StagedOrderStatusAwaitingShipment)) {
		status = enums.StagedOrderStatusAwaitingShipment
	}
	if err := j.orders.MarkUploaded(orderCtx, order.ID, strconv.FormatInt(uploaded.OrderID, 10), status); err != nil {
		return err
	}

	if err := j.stampLots(orderCtx, order, lots); err != nil {
		return err
	}
	j.logg.Info(j.logg.WithField(orderCtx, "platform_order_id", uploaded.OrderID), "order uploaded")
	return nil
}

// stampLots persists the lot each line shipped under so reconciliation can
// attribute shipments without re-reading assignments that may have rotated.
func (j *Job) stampLots(ctx context.Context, order models.StagedOrder, lots map[string]string) error {
	for _, item := range order.Items {
		lot := lots[item.SKU]
		if err := j.orders.StampItemLot(ctx, item.ID, lot); err != nil {
			return err
		}
	}
	return nil
}

func trimReason(reason string) string {
	if len(reason) > 500 {
		return reason[:500]
	}
	return reason
}
