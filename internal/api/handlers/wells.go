// Package handlers maps the /v1 HTTP surface onto the wells service.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"wellwatch/internal/core"
	"wellwatch/internal/types"
	"wellwatch/internal/wells"
)

// --- Service Interfaces ---

// WellService is the registry slice of *wells.Service used by WellHandler.
type WellService interface {
	ListWells(ctx context.Context, filter wells.WellFilter) ([]wells.WellView, error)
	GetWell(ctx context.Context, id string) (*wells.WellView, error)
	UpsertWells(ctx context.Context, inputs []wells.WellInput) ([]types.Well, error)
	RenameWell(ctx context.Context, id, name string) (*types.Well, error)
	DeleteWell(ctx context.Context, id string) error
	FleetSummary(ctx context.Context, filter wells.WellFilter) (*wells.Summary, error)
}

// --- Request Types ---

// RenameWellRequest is the body of PATCH /v1/wells/{id}.
type RenameWellRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// --- Handler ---

// WellHandler serves the well registry endpoints.
type WellHandler struct {
	service   WellService
	validator *core.Validator
	logger    *slog.Logger
}

// NewWellHandler creates a WellHandler. A nil logger falls back to slog.Default.
func NewWellHandler(svc WellService, val *core.Validator, logger *slog.Logger) *WellHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WellHandler{service: svc, validator: val, logger: logger}
}

// RegisterRoutes mounts the registry endpoints. /wells/summary is registered
// before /wells/{id} so that it is not captured as an ID.
func (h *WellHandler) RegisterRoutes(r chi.Router) {
	r.Get("/wells", h.HandleList)
	r.Post("/wells", h.HandleUpsert)
	r.Get("/wells/summary", h.HandleSummary)
	r.Get("/wells/{id}", h.HandleGet)
	r.Patch("/wells/{id}", h.HandleRename)
	r.Delete("/wells/{id}", h.HandleDelete)
}

// filterFromQuery reads owner_id and a comma-separated ids list.
func filterFromQuery(r *http.Request) wells.WellFilter {
	q := r.URL.Query()
	f := wells.WellFilter{OwnerID: strings.TrimSpace(q.Get("owner_id"))}
	for _, id := range strings.Split(q.Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			f.IDs = append(f.IDs, id)
		}
	}
	return f
}

// HandleList handles GET /v1/wells.
func (h *WellHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListWells(r.Context(), filterFromQuery(r))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: views, Meta: &core.ResponseMeta{Count: len(views)}})
}

// HandleUpsert handles POST /v1/wells. The body is a single well or
// {"wells": [...]}; the whole batch is validated before anything is written.
func (h *WellHandler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	var req wells.UpsertRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if len(req.Wells) == 0 {
		core.Error(w, r, types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField,
			"at least one well is required", nil, map[string]any{"field": "wells"}))
		return
	}

	stored, err := h.service.UpsertWells(r.Context(), req.Wells)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: stored, Meta: &core.ResponseMeta{Count: len(stored)}})
}

// HandleSummary handles GET /v1/wells/summary.
func (h *WellHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.FleetSummary(r.Context(), filterFromQuery(r))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: sum})
}

// HandleGet handles GET /v1/wells/{id}.
func (h *WellHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetWell(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: view})
}

// HandleRename handles PATCH /v1/wells/{id}.
func (h *WellHandler) HandleRename(w http.ResponseWriter, r *http.Request) {
	var req RenameWellRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	well, err := h.service.RenameWell(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: well})
}

// HandleDelete handles DELETE /v1/wells/{id}.
func (h *WellHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteWell(r.Context(), chi.URLParam(r, "id")); err != nil {
		core.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
