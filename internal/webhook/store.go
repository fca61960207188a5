package webhook

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates the requested webhook log does not exist.
var ErrNotFound = errors.New("webhook log not found")

// Store persists webhook logs and their per-destination delivery attempts.
type Store interface {
	CreateLog(ctx context.Context, log Log) error
	GetLog(ctx context.Context, id string) (Log, error)
	ListLogs(ctx context.Context, limit, offset int) ([]Log, error)

	// FinishLog records the aggregate outcome once all destinations have been
	// attempted.
	FinishLog(ctx context.Context, id, status, errorMessage string, processedAt time.Time) error

	RecordDelivery(ctx context.Context, d Delivery) error
	Deliveries(ctx context.Context, logID string) ([]Delivery, error)
}
