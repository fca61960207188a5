package webhook

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

type memoryStore struct {
	mu         sync.Mutex
	logs       map[string]Log
	deliveries map[string][]Delivery
}

// NewMemoryStore constructs an in-memory store for tests.
func NewMemoryStore() Store {
	return &memoryStore{
		logs:       make(map[string]Log),
		deliveries: make(map[string][]Delivery),
	}
}

func (s *memoryStore) CreateLog(_ context.Context, log Log) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.logs[log.ID]; exists {
		return errors.New("webhook log exists")
	}
	s.logs[log.ID] = log
	return nil
}

func (s *memoryStore) GetLog(_ context.Context, id string) (Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log, ok := s.logs[id]
	if !ok {
		return Log{}, ErrNotFound
	}
	return log, nil
}

func (s *memoryStore) ListLogs(_ context.Context, limit, offset int) ([]Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Log, 0, len(s.logs))
	for _, log := range s.logs {
		out = append(out, log)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit <= 0 {
		limit = 100
	}
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStore) FinishLog(_ context.Context, id, status, errorMessage string, processedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, ok := s.logs[id]
	if !ok {
		return ErrNotFound
	}
	log.Status = status
	log.ErrorMessage = errorMessage
	t := processedAt.UTC()
	log.ProcessedAt = &t
	s.logs[id] = log
	return nil
}

func (s *memoryStore) RecordDelivery(_ context.Context, d Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.logs[d.LogID]; !ok {
		return ErrNotFound
	}
	s.deliveries[d.LogID] = append(s.deliveries[d.LogID], d)
	return nil
}

func (s *memoryStore) Deliveries(_ context.Context, logID string) ([]Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Delivery(nil), s.deliveries[logID]...), nil
}
