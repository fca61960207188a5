package installment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/splitdue/splitdue/internal/charge"
	"github.com/splitdue/splitdue/internal/jobs"
	"github.com/splitdue/splitdue/internal/metrics"
)

const (
	// MaxInstallments caps how far a plan may stretch.
	MaxInstallments = 24

	// installmentInterval separates consecutive due dates.
	installmentInterval = 30 * 24 * time.Hour

	// maxRoundingDrift is the largest acceptable gap, in minor units, between
	// the order total and installment-amount * count.
	maxRoundingDrift = 1
)

// ValidationError rejects an order request before anything is persisted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CreateOrderInput carries the fields needed to open a payment plan.
// InstallmentAmount is optional; when zero it is derived from Amount and
// InstallmentCount.
type CreateOrderInput struct {
	CustomerID        string
	Amount            int64
	Currency          string
	InstallmentCount  int
	InstallmentAmount int64
}

// Service owns payment-plan lifecycle: creation, activation, and the due
// sweep that turns due installments into charges.
type Service struct {
	store   Store
	charges charge.Store
	queue   jobs.Queue
	logger  *slog.Logger
}

// NewService constructs the installment service.
func NewService(store Store, charges charge.Store, queue jobs.Queue, logger *slog.Logger) *Service {
	return &Service{store: store, charges: charges, queue: queue, logger: logger}
}

// CreateOrder validates the request, derives the per-installment amount, and
// persists the order with its full schedule. Installment n falls due 30×n days
// after creation, so the first collection happens one period out.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (Order, []Installment, error) {
	if in.CustomerID == "" {
		return Order{}, nil, &ValidationError{Field: "customer_id", Message: "is required"}
	}
	if in.Amount <= 0 {
		return Order{}, nil, &ValidationError{Field: "amount", Message: "must be positive"}
	}
	if in.InstallmentCount < 1 || in.InstallmentCount > MaxInstallments {
		return Order{}, nil, &ValidationError{
			Field:   "installment_count",
			Message: fmt.Sprintf("must be between 1 and %d", MaxInstallments),
		}
	}

	per := in.InstallmentAmount
	if per == 0 {
		per = in.Amount / int64(in.InstallmentCount)
	}
	drift := in.Amount - per*int64(in.InstallmentCount)
	if per <= 0 || drift < 0 || drift > maxRoundingDrift {
		return Order{}, nil, &ValidationError{
			Field:   "amount",
			Message: fmt.Sprintf("not divisible into %d equal installments", in.InstallmentCount),
		}
	}

	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}

	now := time.Now().UTC()
	o := Order{
		ID:                uuid.NewString(),
		CustomerID:        in.CustomerID,
		Amount:            in.Amount,
		Currency:          currency,
		InstallmentCount:  in.InstallmentCount,
		InstallmentAmount: per,
		Status:            OrderStatusPending,
		CreatedAt:         now,
	}

	schedule := make([]Installment, 0, in.InstallmentCount)
	for i := 0; i < in.InstallmentCount; i++ {
		amount := per
		if i == in.InstallmentCount-1 {
			// the last installment absorbs the rounding remainder
			amount += drift
		}
		schedule = append(schedule, Installment{
			ID:        uuid.NewString(),
			OrderID:   o.ID,
			Number:    i + 1,
			Amount:    amount,
			DueDate:   now.Add(time.Duration(i+1) * installmentInterval),
			Status:    StatusPending,
			CreatedAt: now,
		})
	}

	if err := s.store.CreateOrder(ctx, o, schedule); err != nil {
		return Order{}, nil, fmt.Errorf("create order: %w", err)
	}

	s.logger.Info("installment order created",
		"order_id", o.ID,
		"customer_id", o.CustomerID,
		"amount", o.Amount,
		"installments", o.InstallmentCount,
	)
	return o, schedule, nil
}

// GetOrder loads an order by id.
func (s *Service) GetOrder(ctx context.Context, id string) (Order, error) {
	return s.store.GetOrder(ctx, id)
}

// ListOrders lists orders matching the filter.
func (s *Service) ListOrders(ctx context.Context, f OrderFilter) ([]Order, error) {
	return s.store.ListOrders(ctx, f)
}

// Installments returns an order's schedule, oldest installment first.
func (s *Service) Installments(ctx context.Context, orderID string) ([]Installment, error) {
	if _, err := s.store.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.store.InstallmentsByOrder(ctx, orderID)
}

// ActivateOrder moves a pending order to active, marking the plan as
// collecting. The due sweep selects on installment status and due date alone,
// so activation records lifecycle state rather than gating collection.
func (s *Service) ActivateOrder(ctx context.Context, id string) (Order, error) {
	o, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if o.Status != OrderStatusPending {
		return Order{}, &ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("cannot activate order in status %q", o.Status),
		}
	}
	return s.store.SetOrderStatus(ctx, id, OrderStatusActive)
}

// Due lists pending installments past their due date without claiming them.
func (s *Service) Due(ctx context.Context) ([]Installment, error) {
	return s.store.Due(ctx, time.Now().UTC())
}

// ProcessDue claims every due installment, creates a charge for each, and
// enqueues the charges for settlement. The claim is atomic, so overlapping
// sweeps never charge the same installment twice. Returns the number of
// charges enqueued.
func (s *Service) ProcessDue(ctx context.Context) (int, error) {
	claimed, err := s.store.ClaimDue(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("claim due installments: %w", err)
	}
	if len(claimed) == 0 {
		return 0, nil
	}
	metrics.RecordDueClaims(len(claimed))

	enqueued := 0
	for _, inst := range claimed {
		o, err := s.store.GetOrder(ctx, inst.OrderID)
		if err != nil {
			s.logger.Error("load order for due installment", "installment_id", inst.ID, "order_id", inst.OrderID, "error", err)
			s.revertClaim(ctx, inst.ID)
			continue
		}

		c := charge.Charge{
			ID:            uuid.NewString(),
			CustomerID:    o.CustomerID,
			Amount:        inst.Amount,
			Currency:      o.Currency,
			Status:        charge.StatusPending,
			InstallmentID: inst.ID,
			OrderID:       o.ID,
			CreatedAt:     time.Now().UTC(),
		}
		if err := s.charges.Create(ctx, c); err != nil {
			s.logger.Error("create charge for installment", "installment_id", inst.ID, "error", err)
			s.revertClaim(ctx, inst.ID)
			continue
		}

		if err := s.queue.Enqueue(ctx, jobs.SettleCharge(c.ID)); err != nil {
			// the charge row exists; leave the installment processing and let a
			// later sweep of stuck pending charges pick it up
			s.logger.Error("enqueue settlement", "charge_id", c.ID, "installment_id", inst.ID, "error", err)
			continue
		}
		enqueued++
	}

	s.logger.Info("due sweep finished", "claimed", len(claimed), "enqueued", enqueued)
	return enqueued, nil
}

// revertClaim returns a claimed installment to pending so the next sweep
// retries it.
func (s *Service) revertClaim(ctx context.Context, id string) {
	if _, err := s.store.MarkInstallment(ctx, id, StatusPending); err != nil {
		s.logger.Error("revert installment claim", "installment_id", id, "error", err)
	}
}
