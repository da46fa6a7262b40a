package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"wellwatch/internal/core"
	"wellwatch/internal/types"
	"wellwatch/internal/wells"
)

// ReadingService covers ingestion, history, forecasting and stateless
// assessment.
type ReadingService interface {
	IngestReading(ctx context.Context, req wells.IngestRequest) (*wells.IngestResult, error)
	History(ctx context.Context, wellID string) ([]types.MetricReading, error)
	Forecast(ctx context.Context, wellID string, horizon int) (*wells.ForecastResult, error)
	DefaultHorizon() int
	Assess(raw map[string]any) wells.AssessmentResult
}

// ReadingHandler serves reading ingestion, history, forecasts and assessments.
type ReadingHandler struct {
	service ReadingService
	logger  *slog.Logger
}

// NewReadingHandler creates a ReadingHandler. A nil logger falls back to slog.Default.
func NewReadingHandler(svc ReadingService, logger *slog.Logger) *ReadingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReadingHandler{service: svc, logger: logger}
}

// RegisterRoutes mounts the reading endpoints on the /v1 router.
func (h *ReadingHandler) RegisterRoutes(r chi.Router) {
	r.Post("/wells/{id}/readings", h.HandleIngest)
	r.Get("/wells/{id}/readings", h.HandleHistory)
	r.Get("/wells/{id}/forecast", h.HandleForecast)
	r.Post("/assessments", h.HandleAssess)
}

// HandleIngest handles POST /v1/wells/{id}/readings. The body is a raw
// reading object; unknown keys are ignored by the normalizer.
func (h *ReadingHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := core.DecodeJSON(w, r, &raw); err != nil {
		core.Error(w, r, err)
		return
	}

	res, err := h.service.IngestReading(r.Context(), wells.IngestRequestFromMap(chi.URLParam(r, "id"), raw))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: res})
}

// HandleHistory handles GET /v1/wells/{id}/readings.
func (h *ReadingHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	readings, err := h.service.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: readings, Meta: &core.ResponseMeta{Count: len(readings)}})
}

// HandleForecast handles GET /v1/wells/{id}/forecast?hours=N.
func (h *ReadingHandler) HandleForecast(w http.ResponseWriter, r *http.Request) {
	horizon := h.service.DefaultHorizon()
	if s := r.URL.Query().Get("hours"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			core.Error(w, r, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidHorizon,
				"hours must be an integer", nil, map[string]any{"got": s}))
			return
		}
		horizon = n
	}

	res, err := h.service.Forecast(r.Context(), chi.URLParam(r, "id"), horizon)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: res})
}

// HandleAssess handles POST /v1/assessments. Nothing is stored.
func (h *ReadingHandler) HandleAssess(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := core.DecodeJSON(w, r, &raw); err != nil {
		core.Error(w, r, err)
		return
	}
	if nested, ok := raw["metrics"].(map[string]any); ok {
		raw = nested
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: h.service.Assess(raw)})
}
