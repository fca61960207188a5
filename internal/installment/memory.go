package installment

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

type memoryStore struct {
	mu           sync.Mutex
	orders       map[string]Order
	installments map[string]Installment
}

// NewMemoryStore constructs an in-memory store for tests.
func NewMemoryStore() Store {
	return &memoryStore{
		orders:       make(map[string]Order),
		installments: make(map[string]Installment),
	}
}

func (s *memoryStore) CreateOrder(_ context.Context, o Order, installments []Installment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[o.ID]; exists {
		return errors.New("order exists")
	}
	s.orders[o.ID] = o
	for _, inst := range installments {
		s.installments[inst.ID] = inst
	}
	return nil
}

func (s *memoryStore) GetOrder(_ context.Context, id string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (s *memoryStore) ListOrders(_ context.Context, f OrderFilter) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Order
	for _, o := range s.orders {
		if f.CustomerID != "" && o.CustomerID != f.CustomerID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, o)
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

func (s *memoryStore) SetOrderStatus(_ context.Context, id, status string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	s.orders[id] = o
	return o, nil
}

func (s *memoryStore) InstallmentsByOrder(_ context.Context, orderID string) ([]Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Installment
	for _, inst := range s.installments {
		if inst.OrderID == orderID {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *memoryStore) GetInstallment(_ context.Context, id string) (Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.installments[id]
	if !ok {
		return Installment{}, ErrNotFound
	}
	return inst, nil
}

func (s *memoryStore) Due(_ context.Context, now time.Time) ([]Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.due(now), nil
}

func (s *memoryStore) ClaimDue(_ context.Context, now time.Time) ([]Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	claimed := s.due(now)
	for i, inst := range claimed {
		inst.Status = StatusProcessing
		inst.UpdatedAt = now.UTC()
		s.installments[inst.ID] = inst
		claimed[i] = inst
	}
	return claimed, nil
}

func (s *memoryStore) MarkInstallment(_ context.Context, id, status string) (Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.installments[id]
	if !ok {
		return Installment{}, ErrNotFound
	}
	inst.Status = status
	inst.UpdatedAt = time.Now().UTC()
	s.installments[id] = inst
	return inst, nil
}

func (s *memoryStore) UnpaidCount(_ context.Context, orderID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, inst := range s.installments {
		if inst.OrderID == orderID && inst.Status != StatusPaid {
			count++
		}
	}
	return count, nil
}

// due returns pending installments past their due date, oldest first. Callers
// hold the lock.
func (s *memoryStore) due(now time.Time) []Installment {
	var out []Installment
	for _, inst := range s.installments {
		if inst.Status == StatusPending && !inst.DueDate.After(now) {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out
}
