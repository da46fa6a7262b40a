package wells

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"wellwatch/internal/config"
	"wellwatch/internal/forecast"
	"wellwatch/internal/health"
	"wellwatch/internal/normalize"
	"wellwatch/internal/route"
	"wellwatch/internal/status"
	"wellwatch/internal/types"
)

// Options tunes the service. OptionsFromConfig fills it from Config.
type Options struct {
	Rules            []health.Rule
	InactivityWindow time.Duration
	HistoryWindow    time.Duration
	DefaultHorizon   int
	MaxHorizon       int
	AverageSpeedKmh  float64
	MaxBatchSize     int
}

// OptionsFromConfig maps the loaded configuration onto service Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Rules:            health.RulesFromConfig(cfg.Health),
		InactivityWindow: cfg.Health.InactivityWindow,
		HistoryWindow:    cfg.Health.HistoryWindow,
		DefaultHorizon:   cfg.Forecast.DefaultHorizon,
		MaxHorizon:       cfg.Forecast.MaxHorizon,
		AverageSpeedKmh:  cfg.Route.AverageSpeedKmh,
		MaxBatchSize:     cfg.Server.MaxBatchSize,
	}
}

// Service implements the well operations exposed over HTTP, MQTT and bulk
// import.
type Service struct {
	store      Store
	publisher  AlertPublisher
	classifier *health.Classifier
	aggregator status.Aggregator
	planner    route.Planner
	opts       Options
	logger     *slog.Logger
	now        func() time.Time
}

// NewService wires a Service. A nil publisher drops status-change events.
func NewService(store Store, publisher AlertPublisher, opts Options, logger *slog.Logger) *Service {
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = 24 * time.Hour
	}
	if opts.DefaultHorizon < 0 {
		opts.DefaultHorizon = forecast.DefaultHorizon
	}
	if opts.MaxHorizon <= 0 {
		opts.MaxHorizon = 168
	}
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = 500
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      store,
		publisher:  publisher,
		classifier: health.NewClassifier(opts.Rules),
		aggregator: status.NewAggregator(opts.InactivityWindow),
		planner:    route.NewPlanner(opts.AverageSpeedKmh),
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// --- Views ---

// WellView is a well with its live status. The embedded Status is the
// effective status; StoredStatus is the cached column.
type WellView struct {
	types.Well
	StoredStatus  types.WellStatus                        `json:"stored_status"`
	LatestReading *types.MetricReading                    `json:"latest_reading"`
	Grades        map[types.MetricField]types.DisplayGrade `json:"grades,omitempty"`
}

// AssessmentResult is the outcome of a stateless assessment.
type AssessmentResult struct {
	Measurements types.Measurements                      `json:"measurements"`
	Verdict      types.HealthVerdict                     `json:"verdict"`
	Status       types.WellStatus                        `json:"status"`
	Issues       []health.Issue                          `json:"issues"`
	Grades       map[types.MetricField]types.DisplayGrade `json:"grades"`
}

// IngestRequest carries one raw reading.
type IngestRequest struct {
	WellID     string
	RecordedAt time.Time // zero means now
	Source     types.ReadingSource
	Notes      string
	Raw        map[string]any
}

// IngestResult reports what ingesting a reading changed.
type IngestResult struct {
	Reading        types.MetricReading `json:"reading"`
	Issues         []health.Issue      `json:"issues"`
	PreviousStatus types.WellStatus    `json:"previous_status"`
	Status         types.WellStatus    `json:"status"`
	// Current is false for a backdated reading that is not the well's
	// latest; such readings leave the cached status untouched.
	Current        bool                `json:"current"`
	Alerted        bool                `json:"alerted"`
}

// ForecastResult is a history window followed by hourly projections.
type ForecastResult struct {
	WellID  string                `json:"well_id"`
	Horizon int                   `json:"horizon_hours"`
	Trend   *forecast.Line        `json:"trend,omitempty"`
	Points  []types.ForecastPoint `json:"points"`
}

// RouteRequest asks for a field route over an owner's wells.
type RouteRequest struct {
	OwnerID   string          `json:"owner_id" validate:"required"`
	Origin    *types.GeoPoint `json:"origin,omitempty"`
	Selection route.Selection `json:"selection"`
}

// RouteResult is a plan plus live distances for every candidate well.
type RouteResult struct {
	route.Plan
	Distances []route.WellDistance `json:"distances,omitempty"`
}

// Summary counts wells by effective status.
type Summary struct {
	Total       int                      `json:"total"`
	ByStatus    map[types.WellStatus]int `json:"by_status"`
	GeneratedAt time.Time                `json:"generated_at"`
}

// --- Stateless ---

// Assess normalizes and classifies raw without touching the store. A fresh
// reading is assumed, so the status is never offline.
func (s *Service) Assess(raw map[string]any) AssessmentResult {
	m := normalize.Measurements(raw)
	a := s.classifier.Assess(m)
	st, _ := status.FromVerdict(a.Verdict)
	return AssessmentResult{
		Measurements: m,
		Verdict:      a.Verdict,
		Status:       st,
		Issues:       a.Issues,
		Grades:       health.DisplayGrades(m),
	}
}

// --- Readings ---

// IngestReading stores one reading with its verdict, refreshes the cached
// well status and publishes an event when the well enters warning or
// critical.
func (s *Service) IngestReading(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if req.Source == "" {
		req.Source = types.SourceManual
	}
	if !req.Source.Valid() {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidSource, "source must be one of device, manual, bulk_import", nil)
	}

	m := normalize.Measurements(req.Raw)
	if m.Empty() {
		return nil, types.NewAppError(types.ErrCodeValidationEmptyReading, "reading has no numeric measurements", nil)
	}

	well, err := s.store.GetWell(ctx, req.WellID)
	if err != nil {
		return nil, err
	}

	recordedAt := req.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = s.now()
	}
	a := s.classifier.Assess(m)
	reading := types.MetricReading{
		WellID:       well.ID,
		RecordedAt:   recordedAt.UTC(),
		Source:       req.Source,
		Notes:        strings.TrimSpace(req.Notes),
		Verdict:      a.Verdict,
		Measurements: m,
	}
	if err := s.store.InsertReading(ctx, &reading); err != nil {
		return nil, err
	}

	res := &IngestResult{Reading: reading, Issues: a.Issues, PreviousStatus: well.Status, Status: well.Status}
	latest, err := s.store.LatestReadings(ctx, WellFilter{IDs: []string{well.ID}})
	if err != nil {
		return nil, err
	}
	if cur, ok := latest[well.ID]; ok && cur.ID != reading.ID {
		s.logger.InfoContext(ctx, "backdated reading ingested",
			"well_id", well.ID,
			"reading_id", reading.ID,
			"latest_reading_id", cur.ID,
			"recorded_at", reading.RecordedAt,
		)
		return res, nil
	}
	res.Current = true

	next, _ := status.FromVerdict(a.Verdict)
	res.Status = next
	if next != well.Status {
		if err := s.store.UpdateWellStatus(ctx, well.ID, next); err != nil {
			return nil, err
		}
	}
	if status.ShouldAlert(well.Status, next) {
		res.Alerted = s.publish(ctx, well, well.Status, next, a.Verdict, reading.ID)
	}

	s.logger.InfoContext(ctx, "reading ingested",
		"well_id", well.ID,
		"reading_id", reading.ID,
		"source", reading.Source,
		"verdict", a.Verdict,
		"status", next,
	)
	return res, nil
}

// History returns the readings inside the history window, oldest first.
func (s *Service) History(ctx context.Context, wellID string) ([]types.MetricReading, error) {
	if _, err := s.store.GetWell(ctx, wellID); err != nil {
		return nil, err
	}
	readings, err := s.store.ReadingsSince(ctx, wellID, s.now().Add(-s.opts.HistoryWindow))
	if err != nil {
		return nil, err
	}
	if readings == nil {
		readings = []types.MetricReading{}
	}
	return readings, nil
}

// DefaultHorizon is the horizon used when a caller does not pick one.
func (s *Service) DefaultHorizon() int {
	return s.opts.DefaultHorizon
}

// Forecast projects the well's water level horizon hours past its history.
func (s *Service) Forecast(ctx context.Context, wellID string, horizon int) (*ForecastResult, error) {
	if horizon < 0 || horizon > s.opts.MaxHorizon {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidHorizon,
			"forecast horizon out of range", nil,
			map[string]any{"min": 0, "max": s.opts.MaxHorizon, "got": horizon})
	}

	readings, err := s.History(ctx, wellID)
	if err != nil {
		return nil, err
	}
	samples := forecast.SamplesFromReadings(readings)

	res := &ForecastResult{WellID: wellID, Horizon: horizon, Points: forecast.Project(samples, horizon)}
	if len(samples) >= forecast.MinPoints {
		line := forecast.Fit(samples)
		res.Trend = &line
	}
	return res, nil
}

// --- Registry ---

// ListWells returns wells with their latest reading and effective status.
func (s *Service) ListWells(ctx context.Context, filter WellFilter) ([]WellView, error) {
	var (
		wells  []types.Well
		latest map[string]types.MetricReading
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		wells, err = s.store.ListWells(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		latest, err = s.store.LatestReadings(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]WellView, 0, len(wells))
	for _, w := range wells {
		var r *types.MetricReading
		if lr, ok := latest[w.ID]; ok {
			r = &lr
		}
		views = append(views, s.view(w, r, now))
	}
	return views, nil
}

// GetWell returns one well with its live status.
func (s *Service) GetWell(ctx context.Context, id string) (*WellView, error) {
	w, err := s.store.GetWell(ctx, id)
	if err != nil {
		return nil, err
	}
	latest, err := s.store.LatestReadings(ctx, WellFilter{IDs: []string{id}})
	if err != nil {
		return nil, err
	}
	var r *types.MetricReading
	if lr, ok := latest[id]; ok {
		r = &lr
	}
	v := s.view(*w, r, s.now())
	return &v, nil
}

func (s *Service) view(w types.Well, latest *types.MetricReading, now time.Time) WellView {
	in := status.Input{Stored: w.Status}
	v := WellView{StoredStatus: w.Status, LatestReading: latest}
	if latest != nil {
		in.Verdict = latest.Verdict
		at := latest.RecordedAt
		in.LastReadingAt = &at
		v.Grades = health.DisplayGrades(latest.Measurements)
	}
	w.Status = s.aggregator.Resolve(in, now)
	v.Well = w
	return v
}

// UpsertWells registers or replaces wells. Every input is validated before
// anything is written. Moving a well into warning or critical publishes an
// event.
func (s *Service) UpsertWells(ctx context.Context, inputs []WellInput) ([]types.Well, error) {
	if len(inputs) == 0 {
		return nil, types.NewAppError(types.ErrCodeValidationMissingField, "at least one well is required", nil)
	}
	if len(inputs) > s.opts.MaxBatchSize {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationBatchSize,
			"too many wells in one request", nil, map[string]any{"max": s.opts.MaxBatchSize})
	}
	for i, in := range inputs {
		if err := validateWellInput(in); err != nil {
			return nil, err.WithDetails(map[string]any{"index": i})
		}
	}

	out := make([]types.Well, 0, len(inputs))
	for _, in := range inputs {
		w, err := s.upsertOne(ctx, in)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, nil
}

func (s *Service) upsertOne(ctx context.Context, in WellInput) (*types.Well, error) {
	var prev *types.Well
	if in.ID != "" {
		existing, err := s.store.GetWell(ctx, in.ID)
		var appErr *types.AppError
		switch {
		case err == nil:
			prev = existing
		case errors.As(err, &appErr) && appErr.Code == types.ErrCodeNotFoundWell:
		default:
			return nil, err
		}
	} else {
		in.ID = uuid.NewString()
	}

	if prev != nil && prev.OwnerID != in.OwnerID {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeConflictWellOwner,
			"well belongs to another owner", nil, map[string]any{"well_id": in.ID})
	}

	w := &types.Well{
		ID:            in.ID,
		OwnerID:       in.OwnerID,
		Name:          in.Name,
		PanchayatName: in.PanchayatName,
		VillageName:   in.VillageName,
		ContactPhone:  in.ContactPhone,
		Lat:           in.Lat,
		Lng:           in.Lng,
		Status:        in.Status,
	}
	if w.Status == "" {
		w.Status = types.WellStatusActive
		if prev != nil {
			w.Status = prev.Status
		}
	}

	stored, err := s.store.UpsertWell(ctx, w)
	if err != nil {
		return nil, err
	}

	var before types.WellStatus
	if prev != nil {
		before = prev.Status
	}
	if status.ShouldAlert(before, stored.Status) {
		s.publish(ctx, stored, before, stored.Status, "", 0)
	}
	return stored, nil
}

func validateWellInput(in WellInput) *types.AppError {
	switch {
	case in.OwnerID == "":
		return types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField, "owner_id is required", nil, map[string]any{"field": "owner_id"})
	case in.Name == "":
		return types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField, "name is required", nil, map[string]any{"field": "name"})
	case len(in.Name) > types.MaxNameLength:
		return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidField, "name is too long", nil, map[string]any{"field": "name"})
	case (in.Lat == nil) != (in.Lng == nil):
		return types.NewAppError(types.ErrCodeValidationMissingField, "lat and lng must be given together", nil)
	case in.Lat != nil && (*in.Lat < types.MinLat || *in.Lat > types.MaxLat):
		return types.NewAppError(types.ErrCodeValidationInvalidLat, "lat must be between -90 and 90", nil)
	case in.Lng != nil && (*in.Lng < types.MinLng || *in.Lng > types.MaxLng):
		return types.NewAppError(types.ErrCodeValidationInvalidLng, "lng must be between -180 and 180", nil)
	case in.Status == types.WellStatusOffline:
		return types.NewAppError(types.ErrCodeValidationInvalidStatus, "offline is derived and cannot be stored", nil)
	case in.Status != "" && !in.Status.Valid():
		return types.NewAppError(types.ErrCodeValidationInvalidStatus, "status must be one of active, warning, critical", nil)
	}
	return nil
}

// RenameWell changes a well's display name.
func (s *Service) RenameWell(ctx context.Context, id, name string) (*types.Well, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField, "name is required", nil, map[string]any{"field": "name"})
	}
	if len(name) > types.MaxNameLength {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidField, "name is too long", nil, map[string]any{"field": "name"})
	}
	return s.store.RenameWell(ctx, id, name)
}

// DeleteWell hard-deletes a well and its readings.
func (s *Service) DeleteWell(ctx context.Context, id string) error {
	if err := s.store.DeleteWell(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "well deleted", "well_id", id)
	return nil
}

// --- Routing & fleet ---

// PlanRoute plans a visit over the owner's wells.
func (s *Service) PlanRoute(ctx context.Context, req RouteRequest) (*RouteResult, error) {
	if req.OwnerID == "" {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField, "owner_id is required", nil, map[string]any{"field": "owner_id"})
	}
	if o := req.Origin; o != nil && !types.ValidCoordinates(o.Lat, o.Lng) {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidField, "origin is outside WGS84 bounds", nil)
	}

	wells, err := s.store.ListWells(ctx, WellFilter{OwnerID: req.OwnerID})
	if err != nil {
		return nil, err
	}

	plan := s.planner.Plan(wells, req.Origin, req.Selection)
	plan.DirectionsURL = route.DirectionsURL(req.Origin, plan.Stops)

	res := &RouteResult{Plan: plan}
	if req.Origin != nil {
		res.Distances = route.Distances(*req.Origin, wells)
	}
	return res, nil
}

// FleetSummary counts wells by effective status.
func (s *Service) FleetSummary(ctx context.Context, filter WellFilter) (*Summary, error) {
	views, err := s.ListWells(ctx, filter)
	if err != nil {
		return nil, err
	}
	sum := &Summary{
		Total: len(views),
		ByStatus: map[types.WellStatus]int{
			types.WellStatusActive:   0,
			types.WellStatusWarning:  0,
			types.WellStatusCritical: 0,
			types.WellStatusOffline:  0,
		},
		GeneratedAt: s.now().UTC(),
	}
	for _, v := range views {
		sum.ByStatus[v.Status]++
	}
	return sum, nil
}

// publish reports whether the event was handed off.
func (s *Service) publish(ctx context.Context, w *types.Well, prev, next types.WellStatus, verdict types.HealthVerdict, readingID int64) bool {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "no alert publisher configured, dropping status change", "well_id", w.ID, "status", next)
		return false
	}
	evt := types.StatusChangeEvent{
		EventID:        uuid.NewString(),
		EventType:      types.EventWellStatusChanged,
		WellID:         w.ID,
		WellName:       w.Name,
		OwnerID:        w.OwnerID,
		PreviousStatus: prev,
		Status:         next,
		Verdict:        verdict,
		ReadingID:      readingID,
		OccurredAt:     s.now().UTC(),
		TraceID:        types.GetRequestID(ctx),
	}
	if err := s.publisher.PublishStatusChange(ctx, evt); err != nil {
		s.logger.WarnContext(ctx, "failed to publish status change", "well_id", w.ID, "status", next, "error", err)
		return false
	}
	return true
}
