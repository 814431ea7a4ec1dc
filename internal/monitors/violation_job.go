package monitors

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/harborops/fulfillment-backend/pkg/config"
	"github.com/harborops/fulfillment-backend/pkg/db/models"
	"github.com/harborops/fulfillment-backend/pkg/enums"
	"github.com/harborops/fulfillment-backend/pkg/logger"
)

// ShippedOrderReader is the slice of the shipped history the violation
// monitor scans.
type ShippedOrderReader interface {
	ListShippedOrdersBetween(ctx context.Context, start, end time.Time) ([]models.ShippedOrder, error)
}

// ViolationJobParams configure the shipping violation monitor.
type ViolationJobParams struct {
	Violations ViolationStore
	History    ShippedOrderReader
	Logger     *logger.Logger
	Workflows  config.WorkflowsConfig
	Monitors   config.MonitorsConfig
}

// ViolationJob checks shipped orders against the carrier and service rules:
// Hawaii ships priority mail, Benco orders ship FedEx, Canada ships UPS
// standard. Violations are recorded for manual resolution only.
type ViolationJob struct {
	violations ViolationStore
	history    ShippedOrderReader
	logg       *logger.Logger
	interval   time.Duration
	lookback   time.Duration
	rules      config.MonitorsConfig
}

// NewViolationJob builds the shipping violation monitor job.
func NewViolationJob(params ViolationJobParams) (*ViolationJob, error) {
	if params.Violations == nil {
		return nil, fmt.Errorf("violation store required")
	}
	if params.History == nil {
		return nil, fmt.Errorf("shipped history reader required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}

	rules := params.Monitors
	if rules.HawaiiExpectedService == "" {
		rules.HawaiiExpectedService = "usps_priority_mail"
	}
	if rules.BencoExpectedCarrier == "" {
		rules.BencoExpectedCarrier = "fedex"
	}
	if rules.BencoOrderPrefix == "" {
		rules.BencoOrderPrefix = "BEN"
	}
	if rules.CanadaExpectedService == "" {
		rules.CanadaExpectedService = "ups_standard"
	}

	lookbackDays := rules.DuplicateLookbackDays
	if lookbackDays <= 0 {
		lookbackDays = 90
	}
	return &ViolationJob{
		violations: params.Violations,
		history:    params.History,
		logg:       params.Logger,
		interval:   params.Workflows.ViolationInterval,
		lookback:   time.Duration(lookbackDays) * 24 * time.Hour,
		rules:      rules,
	}, nil
}

func (j *ViolationJob) Name() string { return enums.WorkflowViolationScan }

func (j *ViolationJob) Interval() time.Duration { return j.interval }

// Run scans recently shipped orders. One bad order does not stop the scan;
// errors are accumulated and reported together.
func (j *ViolationJob) Run(ctx context.Context) error {
	now := time.Now().UTC()
	orders, err := j.history.ListShippedOrdersBetween(ctx, now.Add(-j.lookback), now)
	if err != nil {
		return err
	}

	var errs error
	for _, order := range orders {
		for _, violation := range j.evaluate(order) {
			if err := j.violations.Upsert(ctx, violation); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.OrderNumber, err))
				continue
			}
			orderCtx := j.logg.WithOrderNumber(ctx, order.OrderNumber)
			j.logg.Warn(j.logg.WithFields(orderCtx, map[string]any{
				"violation_type": string(violation.ViolationType),
				"expected":       violation.ExpectedValue,
				"actual":         violation.ActualValue,
			}), "shipping rule violation")
		}
	}
	return errs
}

func (j *ViolationJob) evaluate(order models.ShippedOrder) []*models.ShippingViolation {
	var found []*models.ShippingViolation

	if order.DestinationState == "HI" && order.ServiceCode != j.rules.HawaiiExpectedService {
		found = append(found, &models.ShippingViolation{
			OrderNumber:   order.OrderNumber,
			ViolationType: enums.ViolationHawaiianService,
			ExpectedValue: j.rules.HawaiiExpectedService,
			ActualValue:   order.ServiceCode,
		})
	}
	if strings.HasPrefix(order.OrderNumber, j.rules.BencoOrderPrefix) && order.Carrier != j.rules.BencoExpectedCarrier {
		found = append(found, &models.ShippingViolation{
			OrderNumber:   order.OrderNumber,
			ViolationType: enums.ViolationBencoCarrier,
			ExpectedValue: j.rules.BencoExpectedCarrier,
			ActualValue:   order.Carrier,
		})
	}
	if order.DestinationCountry == "CA" && order.ServiceCode != j.rules.CanadaExpectedService {
		found = append(found, &models.ShippingViolation{
			OrderNumber:   order.OrderNumber,
			ViolationType: enums.ViolationCanadianService,
			ExpectedValue: j.rules.CanadaExpectedService,
			ActualValue:   order.ServiceCode,
		})
	}
	return found
}
