package controllers

import (
	"net/http"

	"github.com/harborops/fulfillment-backend/api/responses"
	"github.com/harborops/fulfillment-backend/pkg/db"
	pkgerrors "github.com/harborops/fulfillment-backend/pkg/errors"
	"github.com/harborops/fulfillment-backend/pkg/logger"
	"github.com/harborops/fulfillment-backend/pkg/redis"
)

// HealthLive reports process liveness only.
func HealthLive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady verifies the datasources the dashboard reads from.
func HealthReady(dbP db.Pinger, redisP redis.Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{"database": "ok", "redis": "ok"}

		if dbP == nil {
			checks["database"] = "not configured"
		} else if err := dbP.Ping(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable"))
			return
		}

		// The dashboard still works without its cache.
		if redisP == nil {
			checks["redis"] = "not configured"
		} else if err := redisP.Ping(r.Context()); err != nil {
			checks["redis"] = "degraded"
		}

		responses.WriteSuccess(w, checks)
	}
}
