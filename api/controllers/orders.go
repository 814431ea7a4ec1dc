package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/harborops/fulfillment-backend/api/responses"
	"github.com/harborops/fulfillment-backend/api/validators"
	"github.com/harborops/fulfillment-backend/internal/staging"
	"github.com/harborops/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/harborops/fulfillment-backend/pkg/errors"
	"github.com/harborops/fulfillment-backend/pkg/logger"
	"github.com/harborops/fulfillment-backend/pkg/pagination"
)

type stagedOrdersPage struct {
	Orders     any    `json:"orders"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// ListStagedOrders serves the staged order listing with optional status,
// flagged, and historical filters plus cursor pagination.
func ListStagedOrders(repo staging.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		filter := staging.ListFilter{}

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.StagedOrderStatus(raw)
			if !status.IsValid() {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
					WithDetails(map[string]any{"status": raw}))
				return
			}
			filter.Status = &status
		}
		if flagged, ok, err := parseBoolQuery(r, "flagged"); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		} else if ok {
			filter.Flagged = &flagged
		}
		if historical, ok, err := parseBoolQuery(r, "historical"); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		} else if ok {
			filter.Historical = &historical
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		filter.Page = pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		orders, next, err := repo.List(ctx, filter)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, stagedOrdersPage{Orders: orders, NextCursor: next})
	}
}

// GetStagedOrder serves one staged order with its line items.
func GetStagedOrder(repo staging.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
		if orderNumber == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order number required"))
			return
		}

		order, err := repo.GetByOrderNumber(ctx, orderNumber)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func parseBoolQuery(r *http.Request, key string) (bool, bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return false, false, nil
	}
	switch strings.ToLower(raw) {
	case "true", "1":
		return true, true, nil
	case "false", "0":
		return false, true, nil
	default:
		return false, false, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be boolean").
			WithDetails(map[string]any{"field": key})
	}
}
