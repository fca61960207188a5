package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const defaultCurrency = "USD"

// Service exposes wallet operations on top of the ledgered store.
type Service struct {
	store Store
}

// NewService builds a wallet service instance.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// CreateInput captures data required to create a wallet.
type CreateInput struct {
	CustomerID string
	Currency   string
}

// Create provisions an empty wallet for a customer.
func (s *Service) Create(ctx context.Context, input CreateInput) (Wallet, error) {
	currency := input.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	w := Wallet{
		ID:         uuid.NewString(),
		CustomerID: input.CustomerID,
		Balance:    0,
		Currency:   currency,
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}
	w.UpdatedAt = w.CreatedAt

	if err := s.store.Create(ctx, w); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// GetByCustomer retrieves a customer's wallet.
func (s *Service) GetByCustomer(ctx context.Context, customerID string) (Wallet, error) {
	return s.store.GetByCustomer(ctx, customerID)
}

// Credit adds funds to a customer's wallet through the ledger.
func (s *Service) Credit(ctx context.Context, customerID string, amount int64, description string) (Wallet, error) {
	w, err := s.store.GetByCustomer(ctx, customerID)
	if err != nil {
		return Wallet{}, err
	}
	if description == "" {
		description = "Wallet credit"
	}
	return s.store.Apply(ctx, w.ID, amount, EntryCredit, description, "")
}

// Ledger lists a customer's ledger entries, newest first.
func (s *Service) Ledger(ctx context.Context, customerID string, limit, offset int) ([]LedgerEntry, error) {
	w, err := s.store.GetByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return s.store.Entries(ctx, w.ID, limit, offset)
}
