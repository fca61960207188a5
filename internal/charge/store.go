package charge

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the requested charge does not exist.
	ErrNotFound = errors.New("charge not found")

	// ErrTerminal occurs when a status update targets a charge that already
	// reached succeeded or failed. Terminal outcomes are never overwritten.
	ErrTerminal = errors.New("charge already settled")
)

// Filter narrows List results.
type Filter struct {
	CustomerID string
	Status     string
	Limit      int
	Offset     int
}

// Store persists charge records. MarkStatus must enforce the terminal guard
// atomically with the status read.
type Store interface {
	Create(ctx context.Context, c Charge) error
	Get(ctx context.Context, id string) (Charge, error)
	List(ctx context.Context, f Filter) ([]Charge, error)

	// MarkStatus sets the charge status, and optionally the payment method and
	// external reference, failing with ErrTerminal when the charge is already
	// settled.
	MarkStatus(ctx context.Context, id, status, paymentMethod, externalChargeID string) (Charge, error)
}
