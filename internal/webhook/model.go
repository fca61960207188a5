package webhook

import (
	"encoding/json"
	"time"
)

const (
	// EventChargeSucceeded notifies subscribers of a settled charge.
	EventChargeSucceeded = "charge.succeeded"
	// EventChargeFailed notifies subscribers of a failed charge.
	EventChargeFailed = "charge.failed"

	// StatusPending marks a log whose deliveries have not finished.
	StatusPending = "pending"
	// StatusProcessed marks a log whose every destination accepted the payload.
	StatusProcessed = "processed"
	// StatusFailed marks a log with at least one failed destination.
	StatusFailed = "failed"
)

// Log is the audit record for one dispatch. The payload snapshot is persisted
// before any delivery is attempted; the status becomes the aggregate of the
// per-destination attempts.
type Log struct {
	ID           string
	EventType    string
	Payload      json.RawMessage
	Status       string
	ProcessedAt  *time.Time
	ErrorMessage string
	CreatedAt    time.Time
}

// Delivery records the outcome for a single destination URL within a dispatch.
type Delivery struct {
	ID           string
	LogID        string
	URL          string
	StatusCode   int
	ErrorMessage string
	CreatedAt    time.Time
}

// Payload is the fixed-shape notification body posted to every destination.
type Payload struct {
	EventType         string          `json:"event_type"`
	ChargeID          string          `json:"charge_id"`
	CustomerID        string          `json:"customer_id"`
	Amount            int64           `json:"amount"`
	Currency          string          `json:"currency"`
	Status            string          `json:"status"`
	PaymentMethod     string          `json:"payment_method,omitempty"`
	ExternalChargeID  string          `json:"external_charge_id,omitempty"`
	SplitInstructions json.RawMessage `json:"split_instructions,omitempty"`
	CreatedAt         string          `json:"created_at"`
	Metadata          PayloadMetadata `json:"metadata"`
}

// PayloadMetadata correlates the charge with its installment plan.
type PayloadMetadata struct {
	InstallmentID string `json:"installment_id,omitempty"`
	OrderID       string `json:"installment_order_id,omitempty"`
}
