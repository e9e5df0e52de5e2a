package storage

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sort"
	"sync"

	"utilityfn/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	evaluations map[string]model.EvaluationRecord
	order       []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.evaluations = make(map[string]model.EvaluationRecord)
	s.order = nil
	return nil
}

func (s *MemoryStore) SaveEvaluation(_ context.Context, record model.EvaluationRecord) error {
	if record.ID == "" {
		return errors.New("evaluation id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	if _, exists := s.evaluations[record.ID]; !exists {
		s.order = append(s.order, record.ID)
	}
	s.evaluations[record.ID] = cloneRecord(record)
	return nil
}

func (s *MemoryStore) GetEvaluation(_ context.Context, id string) (model.EvaluationRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.evaluations[id]
	if !ok {
		return model.EvaluationRecord{}, false, nil
	}
	return cloneRecord(record), true, nil
}

func (s *MemoryStore) ListEvaluations(_ context.Context, modelName string, limit int) ([]model.EvaluationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.EvaluationRecord, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		record := s.evaluations[s.order[i]]
		if modelName != "" && record.Model != modelName {
			continue
		}
		out = append(out, cloneRecord(record))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) DeleteEvaluations(_ context.Context, modelName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.order[:0]
	for _, id := range s.order {
		if modelName == "" || s.evaluations[id].Model == modelName {
			delete(s.evaluations, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return nil
}

func cloneRecord(r model.EvaluationRecord) model.EvaluationRecord {
	r.Path = slices.Clone(r.Path)
	r.Args = maps.Clone(r.Args)
	return r
}
