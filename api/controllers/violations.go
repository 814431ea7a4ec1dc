package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/harborops/fulfillment-backend/api/responses"
	"github.com/harborops/fulfillment-backend/internal/monitors"
	pkgerrors "github.com/harborops/fulfillment-backend/pkg/errors"
	"github.com/harborops/fulfillment-backend/pkg/logger"
)

// ListViolations serves shipping rule violations, optionally filtered by
// ?resolved=.
func ListViolations(violations monitors.ViolationStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var resolved *bool
		if value, ok, err := parseBoolQuery(r, "resolved"); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		} else if ok {
			resolved = &value
		}

		rows, err := violations.List(ctx, resolved)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"violations": rows})
	}
}

// ResolveViolation closes one open violation.
func ResolveViolation(violations monitors.ViolationStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := uuid.Parse(chi.URLParam(r, "violationID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid violation id"))
			return
		}

		if err := violations.Resolve(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "resolved"})
	}
}
