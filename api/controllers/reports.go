package controllers

import (
	"net/http"

	"github.com/harborops/fulfillment-backend/api/responses"
	"github.com/harborops/fulfillment-backend/api/validators"
	"github.com/harborops/fulfillment-backend/internal/reporting"
	pkgerrors "github.com/harborops/fulfillment-backend/pkg/errors"
	"github.com/harborops/fulfillment-backend/pkg/logger"
)

// WeeklyReport serves the weekly shipped buckets for a sku along with its
// rolling average.
func WeeklyReport(store reporting.Store, engine *reporting.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sku := validators.SanitizeString(r.URL.Query().Get("sku"), 64)
		if sku == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "sku query parameter required"))
			return
		}
		weeks, err := validators.ParseQueryInt(r, "weeks", 52, 1, 260)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		buckets, err := store.ListWeeklyBySKU(ctx, sku, weeks)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		average, err := engine.RollingAverage(ctx, sku)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"sku":             sku,
			"weeks":           buckets,
			"rolling_average": average,
		})
	}
}

// MonthlyReport serves the recent monthly billing summaries.
func MonthlyReport(store reporting.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		months, err := validators.ParseQueryInt(r, "months", 12, 1, 60)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		summaries, err := store.ListMonthlySummaries(ctx, months)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"months": summaries})
	}
}
