package charge

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

type memoryStore struct {
	mu      sync.Mutex
	charges map[string]Charge
}

// NewMemoryStore constructs an in-memory store for tests.
func NewMemoryStore() Store {
	return &memoryStore{charges: make(map[string]Charge)}
}

func (s *memoryStore) Create(_ context.Context, c Charge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.charges[c.ID]; exists {
		return errors.New("charge exists")
	}
	s.charges[c.ID] = c
	return nil
}

func (s *memoryStore) Get(_ context.Context, id string) (Charge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.charges[id]
	if !ok {
		return Charge{}, ErrNotFound
	}
	return c, nil
}

func (s *memoryStore) List(_ context.Context, f Filter) ([]Charge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Charge
	for _, c := range s.charges {
		if f.CustomerID != "" && c.CustomerID != f.CustomerID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStore) MarkStatus(_ context.Context, id, status, paymentMethod, externalChargeID string) (Charge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.charges[id]
	if !ok {
		return Charge{}, ErrNotFound
	}
	if c.Terminal() {
		return c, ErrTerminal
	}

	c.Status = status
	if paymentMethod != "" {
		c.PaymentMethod = paymentMethod
	}
	if externalChargeID != "" {
		c.ExternalChargeID = externalChargeID
	}
	c.UpdatedAt = time.Now().UTC()
	s.charges[id] = c
	return c, nil
}
