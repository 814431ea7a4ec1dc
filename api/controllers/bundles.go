package controllers

import (
	"net/http"

	"github.com/harborops/fulfillment-backend/api/responses"
	"github.com/harborops/fulfillment-backend/internal/bundles"
	"github.com/harborops/fulfillment-backend/pkg/logger"
)

// ListBundles serves the bundle catalog with components in expansion order.
func ListBundles(repo bundles.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		rows, err := repo.List(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"bundles": rows})
	}
}
