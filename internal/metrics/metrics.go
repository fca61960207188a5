package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splitdue_settlements_total",
			Help: "Total number of charge settlements by outcome and payment method",
		},
		[]string{"status", "payment_method"},
	)

	CompensationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "splitdue_compensations_total",
			Help: "Total number of wallet refunds issued after a failed external charge",
		},
	)

	WebhookDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splitdue_webhook_deliveries_total",
			Help: "Total number of per-destination webhook delivery attempts",
		},
		[]string{"status"},
	)

	JobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splitdue_jobs_processed_total",
			Help: "Total number of queue jobs processed",
		},
		[]string{"kind", "result"},
	)

	DueInstallmentsClaimedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "splitdue_due_installments_claimed_total",
			Help: "Total number of installments claimed by the due-processing sweep",
		},
	)
)

func RecordSettlement(status, paymentMethod string) {
	if paymentMethod == "" {
		paymentMethod = "none"
	}
	SettlementsTotal.WithLabelValues(status, paymentMethod).Inc()
}

func RecordCompensation() {
	CompensationsTotal.Inc()
}

func RecordWebhookDelivery(status string) {
	WebhookDeliveriesTotal.WithLabelValues(status).Inc()
}

func RecordJob(kind, result string) {
	JobsProcessedTotal.WithLabelValues(kind, result).Inc()
}

func RecordDueClaims(n int) {
	DueInstallmentsClaimedTotal.Add(float64(n))
}
