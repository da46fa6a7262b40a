package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"wellwatch/internal/core"
	"wellwatch/internal/wells"
)

// RoutePlanner is satisfied by *wells.Service.
type RoutePlanner interface {
	PlanRoute(ctx context.Context, req wells.RouteRequest) (*wells.RouteResult, error)
}

// RouteHandler serves field-route planning.
type RouteHandler struct {
	service   RoutePlanner
	validator *core.Validator
	logger    *slog.Logger
}

// NewRouteHandler creates a RouteHandler. A nil logger falls back to slog.Default.
func NewRouteHandler(svc RoutePlanner, val *core.Validator, logger *slog.Logger) *RouteHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RouteHandler{service: svc, validator: val, logger: logger}
}

// RegisterRoutes mounts the route endpoints on the /v1 router.
func (h *RouteHandler) RegisterRoutes(r chi.Router) {
	r.Post("/routes", h.HandlePlan)
}

// HandlePlan handles POST /v1/routes.
func (h *RouteHandler) HandlePlan(w http.ResponseWriter, r *http.Request) {
	var req wells.RouteRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	plan, err := h.service.PlanRoute(r.Context(), req)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	h.logger.DebugContext(r.Context(), "route planned",
		"owner_id", req.OwnerID, "stops", len(plan.Stops), "excluded", len(plan.Excluded))
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: plan})
}
