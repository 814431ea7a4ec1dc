package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/harborops/fulfillment-backend/api/responses"
	"github.com/harborops/fulfillment-backend/api/validators"
	"github.com/harborops/fulfillment-backend/internal/inventory"
	pkgerrors "github.com/harborops/fulfillment-backend/pkg/errors"
	"github.com/harborops/fulfillment-backend/pkg/logger"
)

// ListInventoryLevels serves derived lot balances, optionally narrowed to a
// single sku with ?sku=.
func ListInventoryLevels(ledger *inventory.Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sku := validators.SanitizeString(r.URL.Query().Get("sku"), 64)
		levels, err := ledger.Levels(ctx, sku)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"levels": levels})
	}
}

// GetSKULots serves the non-exhausted lots for one sku in depletion order.
func GetSKULots(ledger *inventory.Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sku := validators.SanitizeString(chi.URLParam(r, "sku"), 64)
		if sku == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "sku required"))
			return
		}

		lots, err := ledger.AvailableLots(ctx, sku)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"sku": sku, "lots": lots})
	}
}
