package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/harborops/fulfillment-backend/api/responses"
	"github.com/harborops/fulfillment-backend/internal/monitors"
	"github.com/harborops/fulfillment-backend/internal/staging"
	"github.com/harborops/fulfillment-backend/pkg/enums"
	"github.com/harborops/fulfillment-backend/pkg/logger"
	"github.com/harborops/fulfillment-backend/pkg/redis"
)

// KPISnapshot is the dashboard's headline banner.
type KPISnapshot struct {
	OrdersByStatus map[enums.StagedOrderStatus]int64 `json:"orders_by_status"`
	ActiveAlerts   int                               `json:"active_alerts"`
	OpenViolations int                               `json:"open_violations"`
	GeneratedAt    time.Time                         `json:"generated_at"`
}

// KPIs serves the snapshot, cached briefly in redis so dashboard refreshes
// do not hammer the database.
func KPIs(orders staging.Repository, alerts monitors.AlertStore, violations monitors.ViolationStore, cache *redis.Client, ttl time.Duration, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if cache != nil {
			if cached, err := cache.Get(ctx, cache.KPIKey("dashboard")); err == nil {
				var snapshot KPISnapshot
				if err := json.Unmarshal([]byte(cached), &snapshot); err == nil {
					responses.WriteSuccess(w, snapshot)
					return
				}
			} else if !errors.Is(err, redis.Nil) {
				logg.Warn(ctx, "kpi cache read failed")
			}
		}

		counts, err := orders.CountByStatus(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		active := enums.AlertStatusActive
		activeAlerts, err := alerts.List(ctx, &active)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		open := false
		openViolations, err := violations.List(ctx, &open)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		snapshot := KPISnapshot{
			OrdersByStatus: counts,
			ActiveAlerts:   len(activeAlerts),
			OpenViolations: len(openViolations),
			GeneratedAt:    time.Now().UTC(),
		}

		if cache != nil {
			if payload, err := json.Marshal(snapshot); err == nil {
				if err := cache.Set(ctx, cache.KPIKey("dashboard"), payload, ttl); err != nil {
					logg.Warn(ctx, "kpi cache write failed")
				}
			}
		}

		responses.WriteSuccess(w, snapshot)
	}
}
