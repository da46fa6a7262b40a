package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"wellwatch/internal/types"
	"wellwatch/internal/wells"
)

type mockReadingService struct {
	gotIngest   wells.IngestRequest
	ingestRes   *wells.IngestResult
	ingestErr   error
	history     []types.MetricReading
	historyErr  error
	gotHorizon  int
	forecastErr error
	gotRaw      map[string]any
}

func (m *mockReadingService) IngestReading(_ context.Context, req wells.IngestRequest) (*wells.IngestResult, error) {
	m.gotIngest = req
	return m.ingestRes, m.ingestErr
}

func (m *mockReadingService) History(_ context.Context, _ string) ([]types.MetricReading, error) {
	return m.history, m.historyErr
}

func (m *mockReadingService) Forecast(_ context.Context, wellID string, horizon int) (*wells.ForecastResult, error) {
	m.gotHorizon = horizon
	if m.forecastErr != nil {
		return nil, m.forecastErr
	}
	return &wells.ForecastResult{WellID: wellID, Horizon: horizon, Points: []types.ForecastPoint{}}, nil
}

func (m *mockReadingService) DefaultHorizon() int { return 12 }

func (m *mockReadingService) Assess(raw map[string]any) wells.AssessmentResult {
	m.gotRaw = raw
	return wells.AssessmentResult{Verdict: types.VerdictCritical, Status: types.WellStatusCritical}
}

func newReadingRouter(svc *mockReadingService) http.Handler {
	return makeRouter(NewReadingHandler(svc, quietLogger()))
}

func TestReadingHandler_Ingest(t *testing.T) {
	svc := &mockReadingService{ingestRes: &wells.IngestResult{Status: types.WellStatusWarning, Alerted: true}}

	rec := do(t, newReadingRouter(svc), http.MethodPost, "/v1/wells/w1/readings",
		`{"well_id":"other","pH":"6.1","TDS":900,"recorded_at":"2026-03-01T09:30:00Z","notes":"after rain"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	got := svc.gotIngest
	if got.WellID != "w1" {
		t.Errorf("well id = %q, want path value", got.WellID)
	}
	if !got.RecordedAt.Equal(time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("recorded_at = %v", got.RecordedAt)
	}
	if got.Notes != "after rain" || got.Raw["TDS"] != 900.0 {
		t.Errorf("request = %+v", got)
	}
	var res wells.IngestResult
	decodeData(t, rec, &res)
	if !res.Alerted || res.Status != types.WellStatusWarning {
		t.Errorf("result = %+v", res)
	}
}

func TestReadingHandler_IngestEmptyReading(t *testing.T) {
	svc := &mockReadingService{ingestErr: types.NewAppError(types.ErrCodeValidationEmptyReading, "reading has no numeric measurements", nil)}
	rec := do(t, newReadingRouter(svc), http.MethodPost, "/v1/wells/w1/readings", `{"notes":"nothing"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if code := errorCode(t, rec); code != string(types.ErrCodeValidationEmptyReading) {
		t.Errorf("code = %s", code)
	}
}

func TestReadingHandler_IngestMalformedJSON(t *testing.T) {
	rec := do(t, newReadingRouter(&mockReadingService{}), http.MethodPost, "/v1/wells/w1/readings", `{"ph":`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestReadingHandler_History(t *testing.T) {
	svc := &mockReadingService{history: []types.MetricReading{{ID: 1, WellID: "w1"}, {ID: 2, WellID: "w1"}}}
	rec := do(t, newReadingRouter(svc), http.MethodGet, "/v1/wells/w1/readings", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got []types.MetricReading
	if meta := decodeData(t, rec, &got); meta.Count != 2 {
		t.Errorf("count = %d", meta.Count)
	}
}

func TestReadingHandler_Forecast(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantStatus  int
		wantHorizon int
	}{
		{"default horizon", "", http.StatusOK, 12},
		{"explicit", "?hours=48", http.StatusOK, 48},
		{"zero", "?hours=0", http.StatusOK, 0},
		{"not a number", "?hours=soon", http.StatusBadRequest, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockReadingService{gotHorizon: -1}
			rec := do(t, newReadingRouter(svc), http.MethodGet, "/v1/wells/w1/forecast"+tt.query, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d", rec.Code)
			}
			if svc.gotHorizon != tt.wantHorizon {
				t.Errorf("horizon = %d, want %d", svc.gotHorizon, tt.wantHorizon)
			}
		})
	}
}

func TestReadingHandler_ForecastOutOfRange(t *testing.T) {
	svc := &mockReadingService{forecastErr: types.NewAppError(types.ErrCodeValidationInvalidHorizon, "forecast horizon out of range", nil)}
	rec := do(t, newReadingRouter(svc), http.MethodGet, "/v1/wells/w1/forecast?hours=999", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestReadingHandler_Assess(t *testing.T) {
	svc := &mockReadingService{}
	rec := do(t, newReadingRouter(svc), http.MethodPost, "/v1/assessments", `{"metrics":{"arsenic":0.2}}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.gotRaw["arsenic"] != 0.2 {
		t.Errorf("raw = %v", svc.gotRaw)
	}
	var res wells.AssessmentResult
	decodeData(t, rec, &res)
	if res.Verdict != types.VerdictCritical {
		t.Errorf("verdict = %q", res.Verdict)
	}
}
