package wallet

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the requested wallet does not exist.
	ErrNotFound = errors.New("wallet not found")

	// ErrInsufficientFunds occurs when a debit exceeds the available balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount occurs when a mutation is requested for a non-positive amount.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Store persists wallets and their append-only ledger. Apply and DebitAvailable
// are the only paths that mutate a balance; both append the matching ledger
// entry within the same transaction boundary and are serialized per wallet.
type Store interface {
	Create(ctx context.Context, w Wallet) error
	Get(ctx context.Context, id string) (Wallet, error)
	GetByCustomer(ctx context.Context, customerID string) (Wallet, error)

	// Apply credits or debits the wallet by exactly amount. A debit for more
	// than the current balance fails with ErrInsufficientFunds and leaves the
	// balance unchanged.
	Apply(ctx context.Context, walletID string, amount int64, entryType, description, referenceID string) (Wallet, error)

	// DebitAvailable debits min(balance, max) and reports the amount taken.
	// A wallet with no funds is left untouched and debits zero. The ledger
	// entry carries partialDescription when the balance covered only part of
	// max, description otherwise.
	DebitAvailable(ctx context.Context, walletID string, max int64, description, partialDescription, referenceID string) (int64, Wallet, error)

	// Entries lists ledger entries for the wallet, newest first.
	Entries(ctx context.Context, walletID string, limit, offset int) ([]LedgerEntry, error)
}
