package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/harborops/fulfillment-backend/api/responses"
	"github.com/harborops/fulfillment-backend/api/validators"
	"github.com/harborops/fulfillment-backend/internal/monitors"
	"github.com/harborops/fulfillment-backend/pkg/db/models"
	"github.com/harborops/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/harborops/fulfillment-backend/pkg/errors"
	"github.com/harborops/fulfillment-backend/pkg/logger"
)

// ListDuplicateAlerts serves duplicate order alerts, newest sighting first,
// optionally filtered by ?status=.
func ListDuplicateAlerts(alerts monitors.AlertStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var status *enums.AlertStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseAlertStatus(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown alert status"))
				return
			}
			status = &parsed
		}

		rows, err := alerts.List(ctx, status)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"alerts": rows})
	}
}

type resolveAlertRequest struct {
	Status string `json:"status" validate:"required,oneof=resolved ignored"`
}

// ResolveDuplicateAlert closes an active alert as resolved or ignored.
// Alerts only ever close by operator action.
func ResolveDuplicateAlert(alerts monitors.AlertStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := uuid.Parse(chi.URLParam(r, "alertID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid alert id"))
			return
		}

		var payload resolveAlertRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		status, err := enums.ParseAlertStatus(payload.Status)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown alert status"))
			return
		}

		if err := alerts.Resolve(ctx, id, status); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": string(status)})
	}
}

type createExclusionRequest struct {
	OrderNumber string  `json:"order_number" validate:"required"`
	BaseSKU     string  `json:"base_sku" validate:"required"`
	Note        *string `json:"note,omitempty"`
}

// CreateDuplicateExclusion marks an (order, sku) pair as known-legitimate so
// future scans stop alerting on it.
func CreateDuplicateExclusion(alerts monitors.AlertStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var payload createExclusionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		exclusion := &models.DuplicateOrderExclusion{
			OrderNumber: validators.SanitizeString(payload.OrderNumber, 64),
			BaseSKU:     validators.SanitizeString(payload.BaseSKU, 64),
			Note:        payload.Note,
		}
		if err := alerts.CreateExclusion(ctx, exclusion); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, exclusion)
	}
}
