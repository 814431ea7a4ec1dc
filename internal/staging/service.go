package staging

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/harborops/fulfillment-backend/internal/bundles"
	"github.com/harborops/fulfillment-backend/pkg/db/models"
	"github.com/harborops/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/harborops/fulfillment-backend/pkg/errors"
	"github.com/harborops/fulfillment-backend/pkg/logger"
)

// ServiceParams configure the import service.
type ServiceParams struct {
	Repo     Repository
	Expander *bundles.Expander
	Logger   *logger.Logger
}

// Service turns parsed feed orders into staged orders.
type Service struct {
	repo     Repository
	expander *bundles.Expander
	logg     *logger.Logger
}

// NewService builds the staging import service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	if params.Expander == nil {
		return nil, fmt.Errorf("expander required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: params.Repo, expander: params.Expander, logg: params.Logger}, nil
}

// ImportResult summarizes one feed import pass.
type ImportResult struct {
	Imported int
	Skipped  int
	Failed   int
}

// ImportOrders stages each parsed order. Orders already staged are skipped,
// which makes re-importing the same file a no-op. An order with a line that
// fails bundle expansion is staged as failed with a reason so it surfaces on
// the dashboard instead of vanishing.
func (s *Service) ImportOrders(ctx context.Context, orders []ParsedOrder) (ImportResult, error) {
	var result ImportResult
	var errs error

	for _, parsed := range orders {
		orderCtx := s.logg.WithOrderNumber(ctx, parsed.OrderNumber)
		outcome, err := s.importOne(orderCtx, parsed)
		switch {
		case err != nil:
			result.Failed++
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", parsed.OrderNumber, err))
			s.logg.Error(orderCtx, "feed order import failed", err)
		case outcome == outcomeSkipped:
			result.Skipped++
		case outcome == outcomeFailedLine:
			result.Failed++
			s.logg.Warn(orderCtx, "feed order staged as failed")
		default:
			result.Imported++
		}
	}
	return result, errs
}

type importOutcome int

const (
	outcomeImported importOutcome = iota
	outcomeSkipped
	outcomeFailedLine
)

func (s *Service) importOne(ctx context.Context, parsed ParsedOrder) (importOutcome, error) {
	order := models.StagedOrder{
		OrderNumber:   parsed.OrderNumber,
		OrderDate:     parsed.OrderDate,
		CustomerName:  parsed.CustomerName,
		CustomerEmail: parsed.CustomerEmail,
		Status:        enums.StagedOrderStatusPending,
	}

	var lineFailures []string
	merged := make(map[string]int)
	var sequence []string
	prices := make(map[string]int64)

	for _, item := range parsed.Items {
		lines, err := s.expander.Expand(ctx, item.SKU, item.Qty, item.UnitPriceCents)
		if err != nil {
			if pkgerrors.As(err) == nil {
				return 0, err
			}
			lineFailures = append(lineFailures, fmt.Sprintf("%s: %s", item.SKU, pkgerrors.As(err).Message()))
			continue
		}
		// The order total is priced from the feed lines, not the expanded
		// ones; a bundle is sold at its own price.
		order.TotalCents += item.UnitPriceCents * int64(item.Qty)
		for _, line := range lines {
			if _, seen := merged[line.SKU]; !seen {
				sequence = append(sequence, line.SKU)
			}
			merged[line.SKU] += line.Qty
			if prices[line.SKU] == 0 {
				prices[line.SKU] = line.UnitPriceCents
			}
		}
	}

	for _, sku := range sequence {
		order.Items = append(order.Items, models.StagedOrderItem{
			SKU:            sku,
			Qty:            merged[sku],
			UnitPriceCents: prices[sku],
		})
		order.TotalItems += merged[sku]
	}

	if len(lineFailures) > 0 {
		reason := "line import failed: " + strings.Join(lineFailures, "; ")
		order.Status = enums.StagedOrderStatusFailed
		order.FailureReason = &reason
	}

	if err := s.repo.Create(ctx, &order); err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConflict {
			return outcomeSkipped, nil
		}
		return 0, err
	}
	if order.Status == enums.StagedOrderStatusFailed {
		return outcomeFailedLine, nil
	}
	return outcomeImported, nil
}
