package wells

import (
	"context"
	"sort"
	"sync"
	"time"

	"wellwatch/internal/types"
)

// memStore is an in-memory Store for service tests.
type memStore struct {
	mu       sync.Mutex
	wells    map[string]types.Well
	readings []types.MetricReading
	nextID   int64
	err      error
}

func newMemStore(wells ...types.Well) *memStore {
	s := &memStore{wells: map[string]types.Well{}}
	for _, w := range wells {
		s.wells[w.ID] = w
	}
	return s
}

func notFound(id string) error {
	return types.NewAppError(types.ErrCodeNotFoundWell, "well not found: "+id, nil)
}

func (s *memStore) matches(w types.Well, f WellFilter) bool {
	if f.OwnerID != "" && w.OwnerID != f.OwnerID {
		return false
	}
	if len(f.IDs) == 0 {
		return true
	}
	for _, id := range f.IDs {
		if id == w.ID {
			return true
		}
	}
	return false
}

func (s *memStore) ListWells(_ context.Context, f WellFilter) ([]types.Well, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []types.Well
	for _, w := range s.wells {
		if s.matches(w, f) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) GetWell(_ context.Context, id string) (*types.Well, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	w, ok := s.wells[id]
	if !ok {
		return nil, notFound(id)
	}
	return &w, nil
}

func (s *memStore) LatestReadings(_ context.Context, f WellFilter) (map[string]types.MetricReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := map[string]types.MetricReading{}
	for _, r := range s.readings {
		w, ok := s.wells[r.WellID]
		if !ok || !s.matches(w, f) {
			continue
		}
		cur, seen := out[r.WellID]
		if !seen || r.RecordedAt.After(cur.RecordedAt) || (r.RecordedAt.Equal(cur.RecordedAt) && r.ID > cur.ID) {
			out[r.WellID] = r
		}
	}
	return out, nil
}

func (s *memStore) ReadingsSince(_ context.Context, wellID string, since time.Time) ([]types.MetricReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.MetricReading
	for _, r := range s.readings {
		if r.WellID == wellID && !r.RecordedAt.Before(since) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

func (s *memStore) UpsertWell(_ context.Context, w *types.Well) (*types.Well, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	stored := *w
	stored.UpdatedAt = time.Now().UTC()
	if prev, ok := s.wells[w.ID]; ok {
		stored.CreatedAt = prev.CreatedAt
	} else {
		stored.CreatedAt = stored.UpdatedAt
	}
	s.wells[w.ID] = stored
	return &stored, nil
}

func (s *memStore) RenameWell(_ context.Context, id, name string) (*types.Well, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wells[id]
	if !ok {
		return nil, notFound(id)
	}
	w.Name = name
	s.wells[id] = w
	return &w, nil
}

func (s *memStore) DeleteWell(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wells[id]; !ok {
		return notFound(id)
	}
	delete(s.wells, id)
	return nil
}

func (s *memStore) InsertReading(_ context.Context, r *types.MetricReading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.nextID++
	r.ID = s.nextID
	s.readings = append(s.readings, *r)
	return nil
}

func (s *memStore) UpdateWellStatus(_ context.Context, id string, st types.WellStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wells[id]
	if !ok {
		return notFound(id)
	}
	w.Status = st
	s.wells[id] = w
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []types.StatusChangeEvent
	err    error
}

func (p *recordingPublisher) PublishStatusChange(_ context.Context, evt types.StatusChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}
