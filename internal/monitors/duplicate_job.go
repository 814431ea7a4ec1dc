package monitors

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/harborops/fulfillment-backend/pkg/config"
	"github.com/harborops/fulfillment-backend/pkg/db/models"
	"github.com/harborops/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/harborops/fulfillment-backend/pkg/errors"
	"github.com/harborops/fulfillment-backend/pkg/logger"
	"github.com/harborops/fulfillment-backend/pkg/shipstation"
)

// OrderLister is the platform surface the duplicate monitor reads.
type OrderLister interface {
	ListOrdersModifiedSince(ctx context.Context, since time.Time) ([]shipstation.Order, error)
}

// CheckpointStore records when a monitor last completed a clean scan.
type CheckpointStore interface {
	Get(ctx context.Context, workflow string) (time.Time, error)
	Advance(ctx context.Context, workflow string, to time.Time) error
}

// DuplicateJobParams configure the duplicate order monitor.
type DuplicateJobParams struct {
	Alerts      AlertStore
	Client      OrderLister
	Checkpoints CheckpointStore
	Logger      *logger.Logger
	Workflows   config.WorkflowsConfig
	Monitors    config.MonitorsConfig
}

// DuplicateJob scans the platform for order numbers that appear more than
// once inside the lookback window and raises one active alert per
// (order_number, base_sku). Alerts are never auto-resolved; a failed scan
// leaves everything, checkpoint included, exactly as it was.
type DuplicateJob struct {
	alerts      AlertStore
	client      OrderLister
	checkpoints CheckpointStore
	logg        *logger.Logger
	interval    time.Duration
	lookback    time.Duration
}

// NewDuplicateJob builds the duplicate order monitor job.
func NewDuplicateJob(params DuplicateJobParams) (*DuplicateJob, error) {
	if params.Alerts == nil {
		return nil, fmt.Errorf("alert store required")
	}
	if params.Client == nil {
		return nil, fmt.Errorf("platform client required")
	}
	if params.Checkpoints == nil {
		return nil, fmt.Errorf("checkpoint store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}

	lookbackDays := params.Monitors.DuplicateLookbackDays
	if lookbackDays <= 0 {
		lookbackDays = 90
	}
	return &DuplicateJob{
		alerts:      params.Alerts,
		client:      params.Client,
		checkpoints: params.Checkpoints,
		logg:        params.Logger,
		interval:    params.Workflows.DuplicateInterval,
		lookback:    time.Duration(lookbackDays) * 24 * time.Hour,
	}, nil
}

func (j *DuplicateJob) Name() string { return enums.WorkflowDuplicateScan }

func (j *DuplicateJob) Interval() time.Duration { return j.interval }

// Run executes one scan. The checkpoint only moves after every offending
// pair has been recorded.
func (j *DuplicateJob) Run(ctx context.Context) error {
	scanStart := time.Now().UTC()

	orders, err := j.client.ListOrdersModifiedSince(ctx, scanStart.Add(-j.lookback))
	if err != nil {
		return err
	}

	excluded, err := j.exclusionSet(ctx)
	if err != nil {
		return err
	}

	for _, group := range groupDuplicates(orders) {
		baseSKU := firstBaseSKU(group)
		if excluded[exclusionKey(group[0].OrderNumber, baseSKU)] {
			continue
		}
		if err := j.raiseOrRefresh(ctx, group[0].OrderNumber, baseSKU, group, scanStart); err != nil {
			return err
		}
	}

	return j.checkpoints.Advance(ctx, j.Name(), scanStart)
}

func (j *DuplicateJob) exclusionSet(ctx context.Context) (map[string]bool, error) {
	exclusions, err := j.alerts.ListExclusions(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(exclusions))
	for _, exclusion := range exclusions {
		set[exclusionKey(exclusion.OrderNumber, exclusion.BaseSKU)] = true
	}
	return set, nil
}

func (j *DuplicateJob) raiseOrRefresh(ctx context.Context, orderNumber, baseSKU string, group []shipstation.Order, seenAt time.Time) error {
	platformIDs := make([]string, 0, len(group))
	for _, order := range group {
		platformIDs = append(platformIDs, strconv.FormatInt(order.OrderID, 10))
	}

	existing, err := j.alerts.GetActive(ctx, orderNumber, baseSKU)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			alert := &models.DuplicateOrderAlert{
				OrderNumber:    orderNumber,
				BaseSKU:        baseSKU,
				DuplicateCount: len(group),
				PlatformIDs:    platformIDs,
				FirstSeenAt:    seenAt,
				LastSeenAt:     seenAt,
			}
			if err := j.alerts.Create(ctx, alert); err != nil {
				return err
			}
			orderCtx := j.logg.WithOrderNumber(ctx, orderNumber)
			j.logg.Warn(j.logg.WithField(orderCtx, "duplicate_count", len(group)), "duplicate order detected")
			return nil
		}
		return err
	}

	return j.alerts.Refresh(ctx, existing.ID, len(group), platformIDs, seenAt)
}

// groupDuplicates buckets platform orders by order number and keeps only the
// numbers seen more than once, each group in a stable platform id order.
func groupDuplicates(orders []shipstation.Order) [][]shipstation.Order {
	byNumber := make(map[string][]shipstation.Order)
	for _, order := range orders {
		if order.OrderNumber == "" {
			continue
		}
		byNumber[order.OrderNumber] = append(byNumber[order.OrderNumber], order)
	}

	numbers := make([]string, 0, len(byNumber))
	for number, group := range byNumber {
		if len(group) > 1 {
			numbers = append(numbers, number)
		}
	}
	sort.Strings(numbers)

	groups := make([][]shipstation.Order, 0, len(numbers))
	for _, number := range numbers {
		group := byNumber[number]
		sort.Slice(group, func(i, k int) bool { return group[i].OrderID < group[k].OrderID })
		groups = append(groups, group)
	}
	return groups
}

// firstBaseSKU pulls the base sku off the first line item, stripping the
// " - LOT" suffix stamped at upload time.
func firstBaseSKU(group []shipstation.Order) string {
	for _, order := range group {
		for _, item := range order.Items {
			if item.SKU == "" {
				continue
			}
			if base, _, found := strings.Cut(item.SKU, " - "); found {
				return base
			}
			return item.SKU
		}
	}
	return ""
}

func exclusionKey(orderNumber, baseSKU string) string {
	return orderNumber + "\x00" + baseSKU
}
