package charge

import (
	"encoding/json"
	"time"
)

const (
	// StatusPending marks a charge awaiting settlement.
	StatusPending = "pending"
	// StatusSucceeded is terminal: the charge was collected.
	StatusSucceeded = "succeeded"
	// StatusFailed is terminal: the charge could not be collected.
	StatusFailed = "failed"

	// MethodWallet indicates the charge was covered entirely by wallet funds.
	MethodWallet = "wallet"
	// MethodExternal indicates the external processor was involved.
	MethodExternal = "external"
)

// Charge is one attempt to collect a specific amount from a customer,
// optionally tied to an installment. Succeeded and failed are terminal; a new
// attempt for the same obligation gets a new charge id.
type Charge struct {
	ID                string
	CustomerID        string
	Amount            int64
	Currency          string
	Status            string
	PaymentMethod     string
	ExternalChargeID  string
	InstallmentID     string
	OrderID           string
	SplitInstructions json.RawMessage
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Terminal reports whether the charge has reached a final status.
func (c Charge) Terminal() bool {
	return c.Status == StatusSucceeded || c.Status == StatusFailed
}
