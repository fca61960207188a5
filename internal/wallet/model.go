package wallet

import "time"

const (
	// EntryCredit increases the wallet balance.
	EntryCredit = "credit"
	// EntryDebit decreases the wallet balance.
	EntryDebit = "debit"
)

// Wallet is a customer's stored-value balance. Amounts are minor currency units.
type Wallet struct {
	ID         string
	CustomerID string
	Balance    int64
	Currency   string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// LedgerEntry is an immutable record of one balance mutation. The wallet
// balance is, at every point, the net sum of its entries' signed amounts.
type LedgerEntry struct {
	ID            string
	WalletID      string
	Type          string
	Amount        int64
	Description   string
	ReferenceID   string
	BalanceBefore int64
	BalanceAfter  int64
	CreatedAt     time.Time
}

// Signed returns the entry amount with its direction applied.
func (e LedgerEntry) Signed() int64 {
	if e.Type == EntryDebit {
		return -e.Amount
	}
	return e.Amount
}
