package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/splitdue/splitdue/internal/jobs"
	"github.com/splitdue/splitdue/internal/logging"
	"github.com/splitdue/splitdue/internal/settlement"
	"github.com/splitdue/splitdue/internal/webhook"
)

type stubSettler struct {
	mu       sync.Mutex
	calls    []string
	failures int
}

func (s *stubSettler) Settle(_ context.Context, chargeID string) (settlement.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, chargeID)
	if s.failures > 0 {
		s.failures--
		return settlement.Outcome{}, errors.New("transient store error")
	}
	return settlement.Outcome{ChargeID: chargeID, Status: "succeeded"}, nil
}

func (s *stubSettler) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type stubNotifier struct {
	mu     sync.Mutex
	events []string
	status string
	err    error
}

func (n *stubNotifier) Dispatch(_ context.Context, eventType, chargeID string) (webhook.Log, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, eventType+":"+chargeID)
	if n.err != nil {
		return webhook.Log{}, n.err
	}
	status := n.status
	if status == "" {
		status = webhook.StatusProcessed
	}
	return webhook.Log{ID: "log-1", Status: status, ErrorMessage: "destination refused"}, nil
}

func (n *stubNotifier) eventCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func runPool(t *testing.T, pool *Pool, done func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(finished)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !done() {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("pool did not finish work in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("pool did not stop after cancel")
	}
}

func TestPoolDispatchesByKind(t *testing.T) {
	queue := jobs.NewMemoryQueue(8)
	settler := &stubSettler{}
	notifier := &stubNotifier{}
	pool := NewPool(queue, settler, notifier, 2, logging.Discard())

	if err := queue.Enqueue(context.Background(), jobs.SettleCharge("ch-1")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := queue.Enqueue(context.Background(), jobs.SendWebhook(webhook.EventChargeSucceeded, "ch-1")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	runPool(t, pool, func() bool {
		return settler.callCount() == 1 && notifier.eventCount() == 1
	})

	if settler.calls[0] != "ch-1" {
		t.Fatalf("unexpected settle call %q", settler.calls[0])
	}
	if notifier.events[0] != webhook.EventChargeSucceeded+":ch-1" {
		t.Fatalf("unexpected dispatch %q", notifier.events[0])
	}
}

func TestPoolRetriesFailedJob(t *testing.T) {
	queue := jobs.NewMemoryQueue(8)
	settler := &stubSettler{failures: 1}
	pool := NewPool(queue, settler, &stubNotifier{}, 1, logging.Discard())

	if err := queue.Enqueue(context.Background(), jobs.SettleCharge("ch-1")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	// fails once, is re-enqueued, then succeeds
	runPool(t, pool, func() bool { return settler.callCount() == 2 })

	if queue.Len() != 0 {
		t.Fatalf("expected drained queue, got %d", queue.Len())
	}
}

func TestPoolDropsJobAfterMaxAttempts(t *testing.T) {
	queue := jobs.NewMemoryQueue(8)
	settler := &stubSettler{failures: 10}
	pool := NewPool(queue, settler, &stubNotifier{}, 1, logging.Discard())

	if err := queue.Enqueue(context.Background(), jobs.SettleCharge("ch-1")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	runPool(t, pool, func() bool {
		return settler.callCount() == maxAttempts && queue.Len() == 0
	})

	// give a straggling redelivery a moment to show up; none should
	time.Sleep(20 * time.Millisecond)
	if got := settler.callCount(); got != maxAttempts {
		t.Fatalf("expected %d attempts, got %d", maxAttempts, got)
	}
}

func TestPoolDoesNotRedeliverFailedWebhookLog(t *testing.T) {
	queue := jobs.NewMemoryQueue(8)
	notifier := &stubNotifier{status: webhook.StatusFailed}
	pool := NewPool(queue, &stubSettler{}, notifier, 1, logging.Discard())

	if err := queue.Enqueue(context.Background(), jobs.SendWebhook(webhook.EventChargeFailed, "ch-1")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	// a dispatch that recorded a failed log is finished, not retried
	runPool(t, pool, func() bool {
		return notifier.eventCount() == 1 && queue.Len() == 0
	})

	time.Sleep(20 * time.Millisecond)
	if got := notifier.eventCount(); got != 1 {
		t.Fatalf("failed log redelivered: %d dispatches", got)
	}
}

func TestPoolRetriesWebhookDispatchError(t *testing.T) {
	queue := jobs.NewMemoryQueue(8)
	notifier := &stubNotifier{err: errors.New("charge not found")}
	pool := NewPool(queue, &stubSettler{}, notifier, 1, logging.Discard())

	if err := queue.Enqueue(context.Background(), jobs.SendWebhook(webhook.EventChargeSucceeded, "ch-1")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	// a dispatch that never recorded an outcome burns through the attempt budget
	runPool(t, pool, func() bool {
		return notifier.eventCount() == maxAttempts && queue.Len() == 0
	})
}
