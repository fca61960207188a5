package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/splitdue/splitdue/internal/charge"
	"github.com/splitdue/splitdue/internal/metrics"
)

const defaultTimeout = 30 * time.Second

// Dispatcher delivers settlement outcomes to the configured destination URLs.
// Delivery is fire-once per invocation; at-least-once semantics come from the
// job queue re-submitting the dispatch.
type Dispatcher struct {
	charges charge.Store
	store   Store
	urls    []string
	client  *http.Client
	logger  *slog.Logger
}

// NewDispatcher builds a dispatcher posting to the given destination URLs,
// each request bounded by timeout.
func NewDispatcher(charges charge.Store, store Store, urls []string, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Dispatcher{
		charges: charges,
		store:   store,
		urls:    urls,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Dispatch loads the charge, persists the payload snapshot, then posts it to
// every non-blank destination. The log finishes processed only when every
// destination accepted the payload; otherwise it finishes failed with one
// recorded error per failing destination.
func (d *Dispatcher) Dispatch(ctx context.Context, eventType, chargeID string) (Log, error) {
	c, err := d.charges.Get(ctx, chargeID)
	if err != nil {
		return Log{}, fmt.Errorf("load charge %s: %w", chargeID, err)
	}

	payload := Payload{
		EventType:         eventType,
		ChargeID:          c.ID,
		CustomerID:        c.CustomerID,
		Amount:            c.Amount,
		Currency:          c.Currency,
		Status:            c.Status,
		PaymentMethod:     c.PaymentMethod,
		ExternalChargeID:  c.ExternalChargeID,
		SplitInstructions: c.SplitInstructions,
		CreatedAt:         c.CreatedAt.UTC().Format(time.RFC3339),
		Metadata: PayloadMetadata{
			InstallmentID: c.InstallmentID,
			OrderID:       c.OrderID,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Log{}, fmt.Errorf("encode payload: %w", err)
	}

	log := Log{
		ID:        uuid.NewString(),
		EventType: eventType,
		Payload:   body,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	// durability first: the snapshot exists before any delivery attempt
	if err := d.store.CreateLog(ctx, log); err != nil {
		return Log{}, fmt.Errorf("persist webhook log: %w", err)
	}

	var failures []string
	attempted := 0
	for _, url := range d.urls {
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}
		attempted++

		statusCode, deliveryErr := d.post(ctx, url, body)
		delivery := Delivery{
			ID:         uuid.NewString(),
			LogID:      log.ID,
			URL:        url,
			StatusCode: statusCode,
			CreatedAt:  time.Now().UTC(),
		}
		if deliveryErr != "" {
			delivery.ErrorMessage = deliveryErr
			failures = append(failures, fmt.Sprintf("%s: %s", url, deliveryErr))
			metrics.RecordWebhookDelivery("failed")
			d.logger.Warn("webhook delivery failed", "url", url, "event", eventType, "charge_id", chargeID, "error", deliveryErr)
		} else {
			metrics.RecordWebhookDelivery("processed")
		}
		if err := d.store.RecordDelivery(ctx, delivery); err != nil {
			d.logger.Error("record webhook delivery", "log_id", log.ID, "error", err)
		}
	}

	log.Status = StatusProcessed
	if len(failures) > 0 || attempted == 0 {
		if attempted == 0 {
			// no destinations configured; nothing was delivered
			failures = append(failures, "no destination URLs configured")
		}
		log.Status = StatusFailed
		log.ErrorMessage = strings.Join(failures, "; ")
	}
	now := time.Now().UTC()
	log.ProcessedAt = &now

	if err := d.store.FinishLog(ctx, log.ID, log.Status, log.ErrorMessage, now); err != nil {
		return Log{}, fmt.Errorf("finish webhook log: %w", err)
	}
	return log, nil
}

// post returns the HTTP status code received and a non-empty error string when
// the destination did not accept the payload.
func (d *Dispatcher) post(ctx context.Context, url string, body []byte) (int, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err.Error()
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err.Error()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, strings.TrimSpace(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, snippet))
	}
	return resp.StatusCode, ""
}
