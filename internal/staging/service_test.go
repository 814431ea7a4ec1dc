package staging

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/harborops/fulfillment-backend/internal/bundles"
	"github.com/harborops/fulfillment-backend/pkg/db/models"
	"github.com/harborops/fulfillment-backend/pkg/enums"
	"github.com/harborops/fulfillment-backend/pkg/logger"
)

type stubBundleRepo struct {
	bundles map[string]*models.BundleSKU
}

func (s *stubBundleRepo) GetBySKU(ctx context.Context, sku string) (*models.BundleSKU, error) {
	return s.bundles[sku], nil
}

func (s *stubBundleRepo) List(ctx context.Context) ([]models.BundleSKU, error) {
	return nil, nil
}

func newImportService(t *testing.T, repo Repository, bundleDefs map[string]*models.BundleSKU) *Service {
	t.Helper()
	expander, err := bundles.NewExpander(&stubBundleRepo{bundles: bundleDefs})
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Expander: expander,
		Logger:   logger.New(logger.Options{Level: zerolog.ErrorLevel, Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc
}

func testBundleA(active bool) *models.BundleSKU {
	id := uuid.New()
	return &models.BundleSKU{
		ID:     id,
		SKU:    "BUNDLE-A",
		Active: active,
		Components: []models.BundleComponent{
			{ID: uuid.New(), BundleID: id, ComponentSKU: "SKU-100", Multiplier: 2, Sequence: 1},
			{ID: uuid.New(), BundleID: id, ComponentSKU: "SKU-200", Multiplier: 1, Sequence: 2},
		},
	}
}

func parsedOrder(orderNumber string, items ...ParsedItem) ParsedOrder {
	return ParsedOrder{
		OrderNumber: orderNumber,
		OrderDate:   time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
		Items:       items,
	}
}

func TestImportExpandsBundles(t *testing.T) {
	repo := newStagingRepo(t)
	svc := newImportService(t, repo, map[string]*models.BundleSKU{"BUNDLE-A": testBundleA(true)})

	result, err := svc.ImportOrders(context.Background(), []ParsedOrder{
		parsedOrder("X-1001", ParsedItem{SKU: "BUNDLE-A", Qty: 3, UnitPriceCents: 4999}),
	})
	require.NoError(t, err)
	require.Equal(t, ImportResult{Imported: 1}, result)

	order, err := repo.GetByOrderNumber(context.Background(), "X-1001")
	require.NoError(t, err)
	require.Equal(t, enums.StagedOrderStatusPending, order.Status)
	require.Len(t, order.Items, 2)

	bySKU := map[string]models.StagedOrderItem{}
	for _, item := range order.Items {
		bySKU[item.SKU] = item
	}
	require.Equal(t, 6, bySKU["SKU-100"].Qty)
	require.Equal(t, 3, bySKU["SKU-200"].Qty)
	require.Equal(t, 9, order.TotalItems)
	require.Equal(t, int64(3*4999), order.TotalCents)
}

func TestImportIsIdempotentPerOrderNumber(t *testing.T) {
	repo := newStagingRepo(t)
	svc := newImportService(t, repo, nil)

	feed := []ParsedOrder{parsedOrder("X-1001", ParsedItem{SKU: "WIDGET-RED", Qty: 1, UnitPriceCents: 1250})}

	first, err := svc.ImportOrders(context.Background(), feed)
	require.NoError(t, err)
	require.Equal(t, 1, first.Imported)

	second, err := svc.ImportOrders(context.Background(), feed)
	require.NoError(t, err)
	require.Equal(t, ImportResult{Skipped: 1}, second)

	order, err := repo.GetByOrderNumber(context.Background(), "X-1001")
	require.NoError(t, err)
	require.Len(t, order.Items, 1, "re-import must not duplicate line items")
}

func TestImportStagesInactiveBundleAsFailed(t *testing.T) {
	repo := newStagingRepo(t)
	svc := newImportService(t, repo, map[string]*models.BundleSKU{"BUNDLE-A": testBundleA(false)})

	result, err := svc.ImportOrders(context.Background(), []ParsedOrder{
		parsedOrder("X-1001",
			ParsedItem{SKU: "BUNDLE-A", Qty: 1, UnitPriceCents: 4999},
			ParsedItem{SKU: "WIDGET-RED", Qty: 2, UnitPriceCents: 1250},
		),
	})
	require.NoError(t, err)
	require.Equal(t, ImportResult{Failed: 1}, result)

	order, err := repo.GetByOrderNumber(context.Background(), "X-1001")
	require.NoError(t, err)
	require.Equal(t, enums.StagedOrderStatusFailed, order.Status)
	require.NotNil(t, order.FailureReason)
	require.Contains(t, *order.FailureReason, "BUNDLE-A")
	require.Len(t, order.Items, 1, "good lines survive alongside the failure reason")
}

func TestImportMergesRepeatedSKUs(t *testing.T) {
	repo := newStagingRepo(t)
	svc := newImportService(t, repo, map[string]*models.BundleSKU{"BUNDLE-A": testBundleA(true)})

	// SKU-100 arrives both directly and via the bundle.
	result, err := svc.ImportOrders(context.Background(), []ParsedOrder{
		parsedOrder("X-1001",
			ParsedItem{SKU: "SKU-100", Qty: 1, UnitPriceCents: 500},
			ParsedItem{SKU: "BUNDLE-A", Qty: 1, UnitPriceCents: 4999},
		),
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Imported)

	order, err := repo.GetByOrderNumber(context.Background(), "X-1001")
	require.NoError(t, err)
	require.Len(t, order.Items, 2)

	bySKU := map[string]int{}
	for _, item := range order.Items {
		bySKU[item.SKU] = item.Qty
	}
	require.Equal(t, 3, bySKU["SKU-100"])
	require.Equal(t, 1, bySKU["SKU-200"])
}
