package installment

import "time"

const (
	// OrderStatusPending marks a freshly created payment plan.
	OrderStatusPending = "pending"
	// OrderStatusActive marks an activated plan collecting installments.
	OrderStatusActive = "active"
	// OrderStatusCompleted marks a plan whose every installment is paid.
	OrderStatusCompleted = "completed"
	// OrderStatusFailed marks a plan with a failed installment.
	OrderStatusFailed = "failed"

	// StatusPending marks an installment awaiting its due date.
	StatusPending = "pending"
	// StatusProcessing marks an installment claimed by the due sweep; a charge
	// exists or is being created for it.
	StatusProcessing = "processing"
	// StatusPaid marks a settled installment.
	StatusPaid = "paid"
	// StatusFailed marks an installment whose charge failed.
	StatusFailed = "failed"
	// StatusOverdue marks an installment flagged past due without settlement.
	StatusOverdue = "overdue"
)

// Order is a payment plan splitting a total amount into scheduled parts.
// Amounts are minor currency units.
type Order struct {
	ID                string
	CustomerID        string
	Amount            int64
	Currency          string
	InstallmentCount  int
	InstallmentAmount int64
	Status            string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Installment is one scheduled part of an order, due on a specific date.
type Installment struct {
	ID        string
	OrderID   string
	Number    int
	Amount    int64
	DueDate   time.Time
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
