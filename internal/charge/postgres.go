package charge

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const chargeColumns = `id, customer_id, amount, currency, status, payment_method, external_charge_id, installment_id, order_id, split_instructions, created_at, updated_at`

// PostgresStore stores charges in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a charge record.
func (s *PostgresStore) Create(ctx context.Context, c Charge) error {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO charges (id, customer_id, amount, currency, status, payment_method, external_charge_id, installment_id, order_id, split_instructions, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10, $11, $11)`,
		id, c.CustomerID, c.Amount, c.Currency, c.Status, c.PaymentMethod, c.ExternalChargeID,
		nullableUUID(c.InstallmentID), nullableUUID(c.OrderID), c.SplitInstructions, c.CreatedAt.UTC())
	return err
}

// Get fetches a charge by identifier.
func (s *PostgresStore) Get(ctx context.Context, id string) (Charge, error) {
	chargeID, err := uuid.Parse(id)
	if err != nil {
		return Charge{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+chargeColumns+` FROM charges WHERE id = $1`, chargeID)
	return scanCharge(row)
}

// List returns charges matching the filter, newest first.
func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Charge, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(ctx, `SELECT `+chargeColumns+` FROM charges
        WHERE ($1 = '' OR customer_id = $1)
          AND ($2 = '' OR status = $2)
        ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		f.CustomerID, f.Status, limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var charges []Charge
	for rows.Next() {
		c, err := scanCharge(rows)
		if err != nil {
			return nil, err
		}
		charges = append(charges, c)
	}
	return charges, rows.Err()
}

// MarkStatus updates the charge status with the terminal guard enforced in the
// UPDATE itself: a settled charge matches no row and the status is inspected
// afterwards to distinguish ErrTerminal from ErrNotFound.
func (s *PostgresStore) MarkStatus(ctx context.Context, id, status, paymentMethod, externalChargeID string) (Charge, error) {
	chargeID, err := uuid.Parse(id)
	if err != nil {
		return Charge{}, ErrNotFound
	}

	row := s.db.QueryRow(ctx, `UPDATE charges
        SET status = $2,
            payment_method = COALESCE(NULLIF($3, ''), payment_method),
            external_charge_id = COALESCE(NULLIF($4, ''), external_charge_id),
            updated_at = $5
        WHERE id = $1 AND status NOT IN ('succeeded', 'failed')
        RETURNING `+chargeColumns, chargeID, status, paymentMethod, externalChargeID, time.Now().UTC())

	c, err := scanCharge(row)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Charge{}, err
	}

	existing, getErr := s.Get(ctx, id)
	if getErr != nil {
		return Charge{}, getErr
	}
	if existing.Terminal() {
		return existing, ErrTerminal
	}
	return Charge{}, ErrNotFound
}

func nullableUUID(s string) *uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

func scanCharge(row pgx.Row) (Charge, error) {
	var c Charge
	var id uuid.UUID
	var paymentMethod, externalChargeID *string
	var installmentID, orderID *uuid.UUID
	var createdAt, updatedAt time.Time
	err := row.Scan(&id, &c.CustomerID, &c.Amount, &c.Currency, &c.Status, &paymentMethod, &externalChargeID,
		&installmentID, &orderID, &c.SplitInstructions, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Charge{}, ErrNotFound
		}
		return Charge{}, err
	}
	c.ID = id.String()
	if paymentMethod != nil {
		c.PaymentMethod = *paymentMethod
	}
	if externalChargeID != nil {
		c.ExternalChargeID = *externalChargeID
	}
	if installmentID != nil {
		c.InstallmentID = installmentID.String()
	}
	if orderID != nil {
		c.OrderID = orderID.String()
	}
	c.CreatedAt = createdAt.UTC()
	c.UpdatedAt = updatedAt.UTC()
	return c, nil
}
