package installment

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the requested order or installment does not exist.
	ErrNotFound = errors.New("installment order not found")
)

// OrderFilter narrows ListOrders results.
type OrderFilter struct {
	CustomerID string
	Status     string
	Limit      int
	Offset     int
}

// Store persists installment orders and their installments.
type Store interface {
	// CreateOrder inserts the order and its installments atomically.
	CreateOrder(ctx context.Context, o Order, installments []Installment) error
	GetOrder(ctx context.Context, id string) (Order, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]Order, error)
	SetOrderStatus(ctx context.Context, id, status string) (Order, error)

	InstallmentsByOrder(ctx context.Context, orderID string) ([]Installment, error)
	GetInstallment(ctx context.Context, id string) (Installment, error)

	// Due lists pending installments whose due date has passed.
	Due(ctx context.Context, now time.Time) ([]Installment, error)

	// ClaimDue atomically transitions due pending installments to processing
	// and returns the claimed rows. Overlapping sweeps therefore cannot claim
	// the same installment twice.
	ClaimDue(ctx context.Context, now time.Time) ([]Installment, error)

	// MarkInstallment sets the installment status.
	MarkInstallment(ctx context.Context, id, status string) (Installment, error)

	// UnpaidCount reports how many installments of the order are not yet paid.
	UnpaidCount(ctx context.Context, orderID string) (int, error)
}
