package installment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	orderColumns       = `id, customer_id, amount, currency, installment_count, installment_amount, status, created_at, updated_at`
	installmentColumns = `id, order_id, installment_number, amount, due_date, status, created_at, updated_at`
)

// PostgresStore stores installment orders in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateOrder inserts the order and its installments in one transaction.
func (s *PostgresStore) CreateOrder(ctx context.Context, o Order, installments []Installment) error {
	orderID, err := uuid.Parse(o.ID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, `INSERT INTO installment_orders (id, customer_id, amount, currency, installment_count, installment_amount, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		orderID, o.CustomerID, o.Amount, o.Currency, o.InstallmentCount, o.InstallmentAmount, o.Status, o.CreatedAt.UTC()); err != nil {
		return err
	}

	for _, inst := range installments {
		instID, err := uuid.Parse(inst.ID)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `INSERT INTO installments (id, order_id, installment_number, amount, due_date, status, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
			instID, orderID, inst.Number, inst.Amount, inst.DueDate.UTC(), inst.Status, inst.CreatedAt.UTC()); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// GetOrder fetches an order by identifier.
func (s *PostgresStore) GetOrder(ctx context.Context, id string) (Order, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return Order{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM installment_orders WHERE id = $1`, orderID)
	return scanOrder(row)
}

// ListOrders returns orders matching the filter, newest first.
func (s *PostgresStore) ListOrders(ctx context.Context, f OrderFilter) ([]Order, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `SELECT `+orderColumns+` FROM installment_orders
        WHERE ($1 = '' OR customer_id = $1)
          AND ($2 = '' OR status = $2)
        ORDER BY created_at DESC LIMIT $3 OFFSET $4`, f.CustomerID, f.Status, limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// SetOrderStatus updates the order status.
func (s *PostgresStore) SetOrderStatus(ctx context.Context, id, status string) (Order, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return Order{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `UPDATE installment_orders SET status = $2, updated_at = $3 WHERE id = $1
        RETURNING `+orderColumns, orderID, status, time.Now().UTC())
	return scanOrder(row)
}

// InstallmentsByOrder lists an order's installments in sequence order.
func (s *PostgresStore) InstallmentsByOrder(ctx context.Context, orderID string) ([]Installment, error) {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, ErrNotFound
	}
	rows, err := s.db.Query(ctx, `SELECT `+installmentColumns+` FROM installments
        WHERE order_id = $1 ORDER BY installment_number`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInstallments(rows)
}

// GetInstallment fetches an installment by identifier.
func (s *PostgresStore) GetInstallment(ctx context.Context, id string) (Installment, error) {
	instID, err := uuid.Parse(id)
	if err != nil {
		return Installment{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+installmentColumns+` FROM installments WHERE id = $1`, instID)
	return scanInstallment(row)
}

// Due lists pending installments whose due date has passed.
func (s *PostgresStore) Due(ctx context.Context, now time.Time) ([]Installment, error) {
	rows, err := s.db.Query(ctx, `SELECT `+installmentColumns+` FROM installments
        WHERE status = 'pending' AND due_date <= $1 ORDER BY due_date`, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInstallments(rows)
}

// ClaimDue flips due pending installments to processing in a single statement
// so concurrent sweeps cannot select the same row.
func (s *PostgresStore) ClaimDue(ctx context.Context, now time.Time) ([]Installment, error) {
	rows, err := s.db.Query(ctx, `UPDATE installments SET status = 'processing', updated_at = $1
        WHERE status = 'pending' AND due_date <= $1
        RETURNING `+installmentColumns, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInstallments(rows)
}

// MarkInstallment sets the installment status.
func (s *PostgresStore) MarkInstallment(ctx context.Context, id, status string) (Installment, error) {
	instID, err := uuid.Parse(id)
	if err != nil {
		return Installment{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `UPDATE installments SET status = $2, updated_at = $3 WHERE id = $1
        RETURNING `+installmentColumns, instID, status, time.Now().UTC())
	return scanInstallment(row)
}

// UnpaidCount reports how many installments of the order are not yet paid.
func (s *PostgresStore) UnpaidCount(ctx context.Context, orderID string) (int, error) {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return 0, ErrNotFound
	}
	var count int
	err = s.db.QueryRow(ctx, `SELECT COUNT(*) FROM installments WHERE order_id = $1 AND status <> 'paid'`, id).Scan(&count)
	return count, err
}

func collectInstallments(rows pgx.Rows) ([]Installment, error) {
	var installments []Installment
	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		installments = append(installments, inst)
	}
	return installments, rows.Err()
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var id uuid.UUID
	var createdAt, updatedAt time.Time
	if err := row.Scan(&id, &o.CustomerID, &o.Amount, &o.Currency, &o.InstallmentCount, &o.InstallmentAmount, &o.Status, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	o.ID = id.String()
	o.CreatedAt = createdAt.UTC()
	o.UpdatedAt = updatedAt.UTC()
	return o, nil
}

func scanInstallment(row pgx.Row) (Installment, error) {
	var inst Installment
	var id, orderID uuid.UUID
	var dueDate, createdAt, updatedAt time.Time
	if err := row.Scan(&id, &orderID, &inst.Number, &inst.Amount, &dueDate, &inst.Status, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Installment{}, ErrNotFound
		}
		return Installment{}, err
	}
	inst.ID = id.String()
	inst.OrderID = orderID.String()
	inst.DueDate = dueDate.UTC()
	inst.CreatedAt = createdAt.UTC()
	inst.UpdatedAt = updatedAt.UTC()
	return inst, nil
}
