package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu         sync.Mutex
	wallets    map[string]Wallet
	byCustomer map[string]string
	entries    map[string][]LedgerEntry
}

// NewMemoryStore constructs an in-memory store for tests. The single mutex
// gives the same per-wallet serialization the Postgres row lock provides.
func NewMemoryStore() Store {
	return &memoryStore{
		wallets:    make(map[string]Wallet),
		byCustomer: make(map[string]string),
		entries:    make(map[string][]LedgerEntry),
	}
}

func (s *memoryStore) Create(_ context.Context, w Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.wallets[w.ID]; exists {
		return errors.New("wallet exists")
	}
	if _, exists := s.byCustomer[w.CustomerID]; exists {
		return fmt.Errorf("wallet exists for customer %s", w.CustomerID)
	}
	s.wallets[w.ID] = w
	s.byCustomer[w.CustomerID] = w.ID
	return nil
}

func (s *memoryStore) Get(_ context.Context, id string) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[id]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return w, nil
}

func (s *memoryStore) GetByCustomer(_ context.Context, customerID string) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byCustomer[customerID]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return s.wallets[id], nil
}

func (s *memoryStore) Apply(_ context.Context, walletID string, amount int64, entryType, description, referenceID string) (Wallet, error) {
	if amount <= 0 {
		return Wallet{}, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[walletID]
	if !ok {
		return Wallet{}, ErrNotFound
	}

	before := w.Balance
	switch entryType {
	case EntryCredit:
		w.Balance += amount
	case EntryDebit:
		if w.Balance < amount {
			return Wallet{}, ErrInsufficientFunds
		}
		w.Balance -= amount
	default:
		return Wallet{}, fmt.Errorf("unknown entry type %q", entryType)
	}

	s.record(&w, before, amount, entryType, description, referenceID)
	return w, nil
}

func (s *memoryStore) DebitAvailable(_ context.Context, walletID string, max int64, description, partialDescription, referenceID string) (int64, Wallet, error) {
	if max <= 0 {
		return 0, Wallet{}, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[walletID]
	if !ok {
		return 0, Wallet{}, ErrNotFound
	}
	if w.Balance <= 0 {
		return 0, w, nil
	}

	amount := max
	if w.Balance < amount {
		amount = w.Balance
		if partialDescription != "" {
			description = partialDescription
		}
	}

	before := w.Balance
	w.Balance -= amount
	s.record(&w, before, amount, EntryDebit, description, referenceID)
	return amount, w, nil
}

func (s *memoryStore) Entries(_ context.Context, walletID string, limit, offset int) ([]LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.wallets[walletID]; !ok {
		return nil, ErrNotFound
	}

	all := s.entries[walletID]
	// newest first
	out := make([]LedgerEntry, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// record appends a ledger entry and stores the updated wallet. Callers hold the lock.
func (s *memoryStore) record(w *Wallet, before, amount int64, entryType, description, referenceID string) {
	now := time.Now().UTC()
	w.UpdatedAt = now
	s.wallets[w.ID] = *w
	s.entries[w.ID] = append(s.entries[w.ID], LedgerEntry{
		ID:            uuid.NewString(),
		WalletID:      w.ID,
		Type:          entryType,
		Amount:        amount,
		Description:   description,
		ReferenceID:   referenceID,
		BalanceBefore: before,
		BalanceAfter:  w.Balance,
		CreatedAt:     now,
	})
}
