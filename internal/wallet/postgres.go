package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore stores wallets and ledger entries in PostgreSQL. Balance
// mutations lock the wallet row so concurrent debits are serialized per wallet.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a wallet record.
func (s *PostgresStore) Create(ctx context.Context, w Wallet) error {
	walletID, err := uuid.Parse(w.ID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO wallets (id, customer_id, balance, currency, is_active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		walletID, w.CustomerID, w.Balance, w.Currency, w.Active, w.CreatedAt.UTC())
	return err
}

// Get fetches a wallet by identifier.
func (s *PostgresStore) Get(ctx context.Context, id string) (Wallet, error) {
	walletID, err := uuid.Parse(id)
	if err != nil {
		return Wallet{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT id, customer_id, balance, currency, is_active, created_at, updated_at
        FROM wallets WHERE id = $1`, walletID)
	return scanWallet(row)
}

// GetByCustomer fetches the wallet owned by the given customer.
func (s *PostgresStore) GetByCustomer(ctx context.Context, customerID string) (Wallet, error) {
	row := s.db.QueryRow(ctx, `SELECT id, customer_id, balance, currency, is_active, created_at, updated_at
        FROM wallets WHERE customer_id = $1`, customerID)
	return scanWallet(row)
}

// Apply mutates the balance by exactly amount and appends the ledger entry in
// the same transaction.
func (s *PostgresStore) Apply(ctx context.Context, walletID string, amount int64, entryType, description, referenceID string) (Wallet, error) {
	if amount <= 0 {
		return Wallet{}, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Wallet{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	w, err := lockWallet(ctx, tx, walletID)
	if err != nil {
		return Wallet{}, err
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

	if err := persistMutation(ctx, tx, &w, before, amount, entryType, description, referenceID); err != nil {
		return Wallet{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// DebitAvailable debits min(balance, max) under the wallet row lock.
func (s *PostgresStore) DebitAvailable(ctx context.Context, walletID string, max int64, description, partialDescription, referenceID string) (int64, Wallet, error) {
	if max <= 0 {
		return 0, Wallet{}, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, Wallet{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	w, err := lockWallet(ctx, tx, walletID)
	if err != nil {
		return 0, Wallet{}, err
	}

	if w.Balance <= 0 {
		return 0, w, tx.Commit(ctx)
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
	if err := persistMutation(ctx, tx, &w, before, amount, EntryDebit, description, referenceID); err != nil {
		return 0, Wallet{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, Wallet{}, err
	}
	return amount, w, nil
}

// Entries lists ledger entries for the wallet, newest first.
func (s *PostgresStore) Entries(ctx context.Context, walletID string, limit, offset int) ([]LedgerEntry, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return nil, ErrNotFound
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(ctx, `SELECT id, wallet_id, entry_type, amount, description, reference_id, balance_before, balance_after, created_at
        FROM wallet_ledger WHERE wallet_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, id, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		var entryID, wID uuid.UUID
		var description, reference *string
		var createdAt time.Time
		if err := rows.Scan(&entryID, &wID, &e.Type, &e.Amount, &description, &reference, &e.BalanceBefore, &e.BalanceAfter, &createdAt); err != nil {
			return nil, err
		}
		e.ID = entryID.String()
		e.WalletID = wID.String()
		if description != nil {
			e.Description = *description
		}
		if reference != nil {
			e.ReferenceID = *reference
		}
		e.CreatedAt = createdAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func lockWallet(ctx context.Context, tx pgx.Tx, walletID string) (Wallet, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return Wallet{}, ErrNotFound
	}
	row := tx.QueryRow(ctx, `SELECT id, customer_id, balance, currency, is_active, created_at, updated_at
        FROM wallets WHERE id = $1 FOR UPDATE`, id)
	return scanWallet(row)
}

func persistMutation(ctx context.Context, tx pgx.Tx, w *Wallet, before, amount int64, entryType, description, referenceID string) error {
	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = $2, updated_at = $3 WHERE id = $1`,
		uuid.MustParse(w.ID), w.Balance, now); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO wallet_ledger (id, wallet_id, entry_type, amount, description, reference_id, balance_before, balance_after, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.New(), uuid.MustParse(w.ID), entryType, amount, description, referenceID, before, w.Balance, now); err != nil {
		return err
	}
	w.UpdatedAt = now
	return nil
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var w Wallet
	var id uuid.UUID
	var createdAt, updatedAt time.Time
	if err := row.Scan(&id, &w.CustomerID, &w.Balance, &w.Currency, &w.Active, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, err
	}
	w.ID = id.String()
	w.CreatedAt = createdAt.UTC()
	w.UpdatedAt = updatedAt.UTC()
	return w, nil
}
