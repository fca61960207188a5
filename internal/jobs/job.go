package jobs

import "time"

const (
	// KindSettleCharge asks a worker to run the settlement waterfall.
	KindSettleCharge = "settle_charge"
	// KindSendWebhook asks a worker to dispatch a settlement outcome.
	KindSendWebhook = "send_webhook"
)

// Job is one unit of asynchronous work. Delivery is at-least-once: handlers
// must tolerate duplicates.
type Job struct {
	Kind       string    `json:"kind"`
	ChargeID   string    `json:"charge_id"`
	EventType  string    `json:"event_type,omitempty"`
	Attempts   int       `json:"attempts"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// SettleCharge builds a settlement job for the given charge.
func SettleCharge(chargeID string) Job {
	return Job{Kind: KindSettleCharge, ChargeID: chargeID, EnqueuedAt: time.Now().UTC()}
}

// SendWebhook builds a notification job for the given charge outcome.
func SendWebhook(eventType, chargeID string) Job {
	return Job{Kind: KindSendWebhook, ChargeID: chargeID, EventType: eventType, EnqueuedAt: time.Now().UTC()}
}
