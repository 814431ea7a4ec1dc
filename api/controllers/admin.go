package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/harborops/fulfillment-backend/api/responses"
	"github.com/harborops/fulfillment-backend/api/validators"
	"github.com/harborops/fulfillment-backend/internal/sched"
	"github.com/harborops/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/harborops/fulfillment-backend/pkg/errors"
	"github.com/harborops/fulfillment-backend/pkg/logger"
)

// PlatformOrderDeleter is the mutating slice of the platform client the
// remediation endpoint needs.
type PlatformOrderDeleter interface {
	DeleteOrder(ctx context.Context, platformOrderID int64) error
}

var knownWorkflows = map[string]bool{
	enums.WorkflowFeedImport:    true,
	enums.WorkflowUploadDisp:    true,
	enums.WorkflowShipmentSync:  true,
	enums.WorkflowDuplicateScan: true,
	enums.WorkflowViolationScan: true,
	enums.WorkflowReporting:     true,
	enums.WorkflowRetention:     true,
}

// ListWorkflowSwitches serves the persisted enable/disable switches.
func ListWorkflowSwitches(switches sched.SwitchStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		rows, err := switches.List(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"workflows": rows})
	}
}

type setWorkflowRequest struct {
	Enabled bool   `json:"enabled"`
	Note    string `json:"note,omitempty"`
}

// SetWorkflowSwitch enables or disables one workflow. Workers pick the
// change up on their next cycle.
func SetWorkflowSwitch(switches sched.SwitchStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		workflow := strings.TrimSpace(chi.URLParam(r, "workflow"))
		if !knownWorkflows[workflow] {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "unknown workflow").
				WithDetails(map[string]any{"workflow": workflow}))
			return
		}

		var payload setWorkflowRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := switches.Set(ctx, workflow, payload.Enabled, payload.Note); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		ctx = logg.WithWorkflow(ctx, workflow)
		logg.Info(logg.WithField(ctx, "enabled", payload.Enabled), "workflow switch updated")
		responses.WriteSuccess(w, map[string]any{"workflow": workflow, "enabled": payload.Enabled})
	}
}

// DeletePlatformOrder removes an order directly on the shipping platform,
// the remediation step for a confirmed duplicate. Blocked outside
// production by the client's own environment gate.
func DeletePlatformOrder(client PlatformOrderDeleter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := strconv.ParseInt(chi.URLParam(r, "platformOrderID"), 10, 64)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid platform order id"))
			return
		}

		if err := client.DeleteOrder(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": id})
	}
}
