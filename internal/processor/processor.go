package processor

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Request describes a charge submitted to the external payment processor.
// Amount is in minor currency units.
type Request struct {
	Amount      int64
	Currency    string
	CustomerID  string
	Description string
	Metadata    map[string]string
}

// Receipt carries the processor's reference for a successful charge.
type Receipt struct {
	Reference string
}

// Error is a processor-reported failure. The processor is an opaque dependency:
// any Error resolves the settlement to a failed terminal state.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("processor error: %s", e.Message)
	}
	return fmt.Sprintf("processor error %s: %s", e.Code, e.Message)
}

// Client represents a connector to the external payment processor.
type Client interface {
	Charge(ctx context.Context, req Request) (Receipt, error)
}

// Static simulates a processor that approves every charge. Used in development
// and as the default when no processor URL is configured.
type Static struct{}

// Charge approves the request with a synthetic reference.
func (Static) Charge(_ context.Context, _ Request) (Receipt, error) {
	return Receipt{Reference: "ch_" + uuid.NewString()}, nil
}
